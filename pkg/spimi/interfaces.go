package spimi

// TermCount is one distinct term and its raw occurrence count within a
// document, the unit the non-positional tokenizer contract emits.
type TermCount struct {
	Term  string
	Count int
}

// NonPositionalTokenizer turns text into distinct terms with their raw
// frequency, for the tf-idf and BM25 (non-positional) build variants.
type NonPositionalTokenizer interface {
	Tokenize(text string) []TermCount
}

// PositionalTokenizer turns text into the ordered sequence of term
// occurrences, for the positional build variants.
type PositionalTokenizer interface {
	Tokenize(text string) []string
}

// CorpusDoc is one document handed to the builder by a CorpusIterator.
// A slice (rather than a map keyed by doc id) is what lets the iterator
// promise document-arrival order within a batch.
type CorpusDoc struct {
	ID   string
	Text string
}

// CorpusIterator yields the corpus in bounded batches. NextBatch returns at
// most n documents and reports whether the underlying source is exhausted
// after this call; rows with an empty designated text field are skipped by
// the implementation before they ever reach the batch.
type CorpusIterator interface {
	NextBatch(n int) (docs []CorpusDoc, endOfStream bool, err error)
	NumReadDocs() int
}
