package spimi

// Mode tags which of the four scoring variants an index was built under.
// The build loop, the weighter, and the query engine branch on this tag
// rather than on a type hierarchy; the posting codec instead follows which
// optional fields (document length, positions) a posting carries.
type Mode int

const (
	TFIDF Mode = iota
	TFIDFPositional
	BM25
	BM25Positional
)

func (m Mode) String() string {
	switch m {
	case TFIDF:
		return "tfidf"
	case TFIDFPositional:
		return "tfidf-positional"
	case BM25:
		return "bm25"
	case BM25Positional:
		return "bm25-positional"
	default:
		return "unknown"
	}
}

// Positional reports whether postings built under m carry position lists.
func (m Mode) Positional() bool {
	return m == TFIDFPositional || m == BM25Positional
}

// IsBM25 reports whether m uses the BM25 weighting family.
func (m Mode) IsBM25() bool {
	return m == BM25 || m == BM25Positional
}

// HasDocLength reports whether postings built under m carry a document
// length (BM25 variants only — tf-idf normalizes at build time instead).
func (m Mode) HasDocLength() bool {
	return m.IsBM25()
}
