package spimi

import (
	"fmt"
	"sort"

	"github.com/termshard/spimidx/internal/storage"
)

// PartialIndex is the in-memory term→postings map the SPIMI builder fills
// between flushes (component B). Postings for a term are appended in
// document-arrival order and never reordered until Flush sorts the terms.
//
// Add/AddPosition/SetWeight return or take a slice index rather than a
// pointer: the builder needs to revisit "the postings touched by the
// current document" after the whole document has been tokenized (to apply
// cosine normalization or accumulate position counts), and an index survives
// the slice growing underneath it where a pointer would not.
type PartialIndex struct {
	postings map[string][]Posting
	bytes    int
}

// NewPartialIndex returns an empty partial index.
func NewPartialIndex() *PartialIndex {
	return &PartialIndex{postings: make(map[string][]Posting)}
}

// Add appends a new posting for term and returns its index within that
// term's posting list, for later mutation via SetWeight or AddPosition.
func (pi *PartialIndex) Add(term string, p Posting) int {
	pi.postings[term] = append(pi.postings[term], p)
	pi.bytes += len(term) + len(EncodePosting(p)) + 2
	return len(pi.postings[term]) - 1
}

// AddPosition appends pos to the positions of the posting at (term, idx)
// and increments its weight by one, matching the build-time rule that a
// positional posting's raw weight is its occurrence count.
func (pi *PartialIndex) AddPosition(term string, idx, pos int) {
	p := &pi.postings[term][idx]
	p.Positions = append(p.Positions, pos)
	p.Weight++
	pi.bytes += 4
}

// SetWeight overwrites the weight of the posting at (term, idx), used for
// the post-document cosine-normalization fixup in tf-idf builds.
func (pi *PartialIndex) SetWeight(term string, idx int, weight float64) {
	pi.postings[term][idx].Weight = weight
}

// SetDocLen overwrites the document length of the posting at (term, idx),
// used once a document's distinct-term count is known (BM25 variants).
func (pi *PartialIndex) SetDocLen(term string, idx, docLen int) {
	pi.postings[term][idx].DocLen = docLen
	pi.postings[term][idx].HasDocLen = true
}

// Get returns a copy of the posting at (term, idx).
func (pi *PartialIndex) Get(term string, idx int) Posting {
	return pi.postings[term][idx]
}

// Size reports a conservative byte estimate of the buffered content, used
// by the builder to decide when to flush.
func (pi *PartialIndex) Size() int {
	return pi.bytes
}

// Clear discards all buffered postings.
func (pi *PartialIndex) Clear() {
	pi.postings = make(map[string][]Posting)
	pi.bytes = 0
}

// Flush writes every buffered term to path, one line per term sorted
// ascending by term, using the run-file codec. The partial index is left
// untouched; the caller is expected to Clear it afterward.
func (pi *PartialIndex) Flush(fsys storage.FS, path string) error {
	terms := make([]string, 0, len(pi.postings))
	for t := range pi.postings {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	w, closer, err := storage.Create(fsys, path)
	if err != nil {
		return err
	}
	defer closer.Close()

	for _, t := range terms {
		if _, err := w.WriteString(EncodeRunLine(t, pi.postings[t])); err != nil {
			return fmt.Errorf("spimi: write %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("spimi: write %s: %w", path, err)
		}
	}
	return w.Flush()
}
