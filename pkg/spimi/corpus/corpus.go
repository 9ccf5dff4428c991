// Package corpus provides the CorpusIterator implementation the SPIMI
// pipeline treats as an external collaborator: a CSV reader that yields
// (doc-id, text) batches, grounded on the reference corpus's column
// layout (id, title, abstract).
package corpus

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/termshard/spimidx/internal/storage"
	"github.com/termshard/spimidx/pkg/spimi"
)

// CSVReader streams a CSV corpus, concatenating two text columns per row
// and skipping rows where either is empty. Columns default to the
// reference layout: id in column 0, title in column 2, abstract in
// column 7.
type CSVReader struct {
	fsys storage.FS
	path string

	idCol, text1Col, text2Col int

	rc     io.ReadCloser
	reader *csv.Reader
	opened bool

	numReadDocs int
}

// NewCSVReader returns a CSVReader over path using the reference column
// layout.
func NewCSVReader(fsys storage.FS, path string) *CSVReader {
	return &CSVReader{fsys: fsys, path: path, idCol: 0, text1Col: 2, text2Col: 7}
}

// WithColumns overrides the id/text column indices.
func (r *CSVReader) WithColumns(idCol, text1Col, text2Col int) *CSVReader {
	r.idCol, r.text1Col, r.text2Col = idCol, text1Col, text2Col
	return r
}

func (r *CSVReader) open() error {
	rc, err := storage.Open(r.fsys, r.path)
	if err != nil {
		return fmt.Errorf("%w: %v", spimi.ErrInputNotFound, err)
	}
	r.rc = rc
	r.reader = csv.NewReader(rc)
	r.reader.FieldsPerRecord = -1
	r.reader.LazyQuotes = true

	if _, err := r.reader.Read(); err != nil && err != io.EOF {
		return fmt.Errorf("corpus: read header: %w", err)
	}
	r.opened = true
	return nil
}

// NextBatch implements spimi.CorpusIterator.
func (r *CSVReader) NextBatch(n int) ([]spimi.CorpusDoc, bool, error) {
	if !r.opened {
		if err := r.open(); err != nil {
			return nil, false, err
		}
	}

	docs := make([]spimi.CorpusDoc, 0, n)
	maxCol := r.idCol
	if r.text1Col > maxCol {
		maxCol = r.text1Col
	}
	if r.text2Col > maxCol {
		maxCol = r.text2Col
	}

	for len(docs) < n {
		record, err := r.reader.Read()
		if err == io.EOF {
			r.rc.Close()
			return docs, true, nil
		}
		if err != nil {
			return docs, false, fmt.Errorf("corpus: read %s: %w", r.path, err)
		}
		r.numReadDocs++

		if len(record) <= maxCol {
			continue
		}
		t1, t2 := record[r.text1Col], record[r.text2Col]
		if t1 == "" || t2 == "" {
			continue
		}
		docs = append(docs, spimi.CorpusDoc{ID: record[r.idCol], Text: t1 + " " + t2})
	}
	return docs, false, nil
}

// NumReadDocs implements spimi.CorpusIterator.
func (r *CSVReader) NumReadDocs() int {
	return r.numReadDocs
}
