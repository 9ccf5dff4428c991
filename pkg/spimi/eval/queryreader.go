// Package eval provides the query/relevance reader and the evaluator
// (component K) that wraps the query engine with precision, recall,
// F-measure, average precision, and NDCG.
package eval

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/termshard/spimidx/internal/storage"
	"github.com/termshard/spimidx/pkg/spimi"
)

// Query is one (query_id, text) pair.
type Query struct {
	ID   string
	Text string
}

// Judgements holds the relevance grades recorded for one query: the set
// of documents judged grade 0, grade 1, and grade 2.
type Judgements struct {
	Grade0 map[string]bool
	Grade1 map[string]bool
	Grade2 map[string]bool
}

func newJudgements() Judgements {
	return Judgements{Grade0: map[string]bool{}, Grade1: map[string]bool{}, Grade2: map[string]bool{}}
}

// Relevant returns the union of grade-1 and grade-2 documents, the
// relevance set used for precision/recall at every cutoff.
func (j Judgements) Relevant() map[string]bool {
	out := make(map[string]bool, len(j.Grade1)+len(j.Grade2))
	for d := range j.Grade1 {
		out[d] = true
	}
	for d := range j.Grade2 {
		out[d] = true
	}
	return out
}

// Grade returns the relevance grade recorded for doc, 0 if unjudged.
func (j Judgements) Grade(doc string) int {
	if j.Grade2[doc] {
		return 2
	}
	if j.Grade1[doc] {
		return 1
	}
	return 0
}

// PerfectDCG sums the top numDocs grades in descending order (2s then 1s)
// with the same positional discount as DCG.
func (j Judgements) PerfectDCG(numDocs int) float64 {
	perfect := 0.0
	n := 0
	for _, grade := range []int{2, 1} {
		var docs map[string]bool
		if grade == 2 {
			docs = j.Grade2
		} else {
			docs = j.Grade1
		}
		for range docs {
			n++
			g := float64(grade)
			if n == 1 {
				perfect = g
			} else {
				perfect += g / math.Log2(float64(n))
			}
			if n == numDocs {
				return perfect
			}
		}
	}
	return perfect
}

// ReadQueries reads queries from a line-oriented file (ids auto-assigned
// starting at 1) or, if path ends in ".xml", from an XML file whose root
// holds topic elements with a number attribute and a text-bearing first
// child.
func ReadQueries(fsys storage.FS, path string) ([]Query, error) {
	if strings.HasSuffix(path, ".xml") {
		return readQueriesXML(fsys, path)
	}
	return readQueriesTxt(fsys, path)
}

func readQueriesTxt(fsys storage.FS, path string) ([]Query, error) {
	sc, closer, err := storage.OpenLines(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", spimi.ErrInputNotFound, err)
	}
	defer closer.Close()

	var queries []Query
	id := 1
	for sc.Scan() {
		queries = append(queries, Query{ID: strconv.Itoa(id), Text: sc.Text()})
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("eval: read %s: %w", path, err)
	}
	return queries, nil
}

type xmlChild struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

type xmlTopic struct {
	Number   string     `xml:"number,attr"`
	Children []xmlChild `xml:",any"`
}

type xmlRoot struct {
	Topics []xmlTopic `xml:",any"`
}

func readQueriesXML(fsys storage.FS, path string) ([]Query, error) {
	rc, err := storage.Open(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", spimi.ErrInputNotFound, err)
	}
	defer rc.Close()

	var root xmlRoot
	if err := xml.NewDecoder(bufio.NewReader(rc)).Decode(&root); err != nil {
		return nil, fmt.Errorf("eval: parse %s: %w", path, err)
	}

	queries := make([]Query, 0, len(root.Topics))
	for _, t := range root.Topics {
		if len(t.Children) == 0 {
			continue
		}
		queries = append(queries, Query{ID: t.Number, Text: strings.TrimSpace(t.Children[0].Text)})
	}
	return queries, nil
}

// ReadRelevance reads a whitespace-separated "query_id doc_id grade" file.
func ReadRelevance(fsys storage.FS, path string) (map[string]Judgements, error) {
	sc, closer, err := storage.OpenLines(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", spimi.ErrInputNotFound, err)
	}
	defer closer.Close()

	rel := make(map[string]Judgements)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 3 {
			continue
		}
		queryID, docID, gradeStr := fields[0], fields[1], fields[2]
		grade, err := strconv.Atoi(gradeStr)
		if err != nil {
			return nil, fmt.Errorf("eval: malformed grade in %s: %w", path, err)
		}

		j, ok := rel[queryID]
		if !ok {
			j = newJudgements()
			rel[queryID] = j
		}
		switch grade {
		case 0:
			j.Grade0[docID] = true
		case 1:
			j.Grade1[docID] = true
		case 2:
			j.Grade2[docID] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("eval: read %s: %w", path, err)
	}
	return rel, nil
}
