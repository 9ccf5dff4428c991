package spimi

import (
	"fmt"
	"math"

	"github.com/termshard/spimidx/internal/storage"
)

// DefaultBatchDocs is the default corpus batch size requested per call to
// CorpusIterator.NextBatch.
const DefaultBatchDocs = 1000

// DefaultMemLimit is the default partial-index byte budget before a flush.
const DefaultMemLimit = 8 * 1024 * 1024

// BuildStats summarizes a completed build, carrying the counters the
// weighter needs (N and, for BM25, the sum of document lengths it averages
// over N).
type BuildStats struct {
	NumReadDocs  int
	SumDocLength int
	RunFiles     int
}

// Builder drives the SPIMI loop (component E): pull batches from a corpus,
// tokenize, accumulate postings in a PartialIndex, and flush sorted run
// files whenever the budget is exceeded. The per-document accumulation
// strategy is selected by Mode rather than by a tokenizer-specific type
// hierarchy; NewBuilder and NewPositionalBuilder just pick which tokenizer
// shape the chosen mode requires.
type Builder struct {
	fsys storage.FS
	dir  string
	mode Mode

	corpus    CorpusIterator
	nonPosTok NonPositionalTokenizer
	posTok    PositionalTokenizer

	memLimit  int
	batchDocs int

	idx    *PartialIndex
	runSeq int
}

// NewBuilder constructs a Builder for the non-positional modes (TFIDF,
// BM25). It returns an error if mode requires positions.
func NewBuilder(fsys storage.FS, dir string, mode Mode, corpus CorpusIterator, tok NonPositionalTokenizer, memLimit, batchDocs int) (*Builder, error) {
	if mode.Positional() {
		return nil, fmt.Errorf("spimi: mode %s requires a positional tokenizer", mode)
	}
	return newBuilder(fsys, dir, mode, corpus, tok, nil, memLimit, batchDocs), nil
}

// NewPositionalBuilder constructs a Builder for the positional modes
// (TFIDFPositional, BM25Positional). It returns an error if mode does not
// carry positions.
func NewPositionalBuilder(fsys storage.FS, dir string, mode Mode, corpus CorpusIterator, tok PositionalTokenizer, memLimit, batchDocs int) (*Builder, error) {
	if !mode.Positional() {
		return nil, fmt.Errorf("spimi: mode %s does not use a positional tokenizer", mode)
	}
	return newBuilder(fsys, dir, mode, corpus, nil, tok, memLimit, batchDocs), nil
}

func newBuilder(fsys storage.FS, dir string, mode Mode, corpus CorpusIterator, nonPos NonPositionalTokenizer, pos PositionalTokenizer, memLimit, batchDocs int) *Builder {
	if memLimit <= 0 {
		memLimit = DefaultMemLimit
	}
	if batchDocs <= 0 {
		batchDocs = DefaultBatchDocs
	}
	return &Builder{
		fsys:      fsys,
		dir:       dir,
		mode:      mode,
		corpus:    corpus,
		nonPosTok: nonPos,
		posTok:    pos,
		memLimit:  memLimit,
		batchDocs: batchDocs,
		idx:       NewPartialIndex(),
	}
}

// Run drains the corpus iterator to completion, flushing run files as the
// budget demands, and returns the counters the weighter needs downstream.
func (b *Builder) Run() (BuildStats, error) {
	var stats BuildStats

	for {
		docs, eof, err := b.corpus.NextBatch(b.batchDocs)
		if err != nil {
			return stats, fmt.Errorf("spimi: read batch: %w", err)
		}

		for _, doc := range docs {
			docLen := b.ingest(doc)
			if b.mode.IsBM25() {
				stats.SumDocLength += docLen
			}
			if b.idx.Size() > b.memLimit {
				if err := b.flush(); err != nil {
					return stats, err
				}
				stats.RunFiles++
			}
		}

		if eof {
			break
		}
	}

	if b.idx.Size() > 0 {
		if err := b.flush(); err != nil {
			return stats, err
		}
		stats.RunFiles++
	}

	stats.NumReadDocs = b.corpus.NumReadDocs()
	return stats, nil
}

// ingest tokenizes and accumulates one document per the chosen mode,
// returning its distinct-term document length (0 for modes that don't
// track one).
func (b *Builder) ingest(doc CorpusDoc) int {
	switch b.mode {
	case TFIDF:
		return b.ingestTFIDF(doc)
	case BM25:
		return b.ingestBM25(doc)
	case TFIDFPositional:
		return b.ingestTFIDFPositional(doc)
	case BM25Positional:
		return b.ingestBM25Positional(doc)
	default:
		return 0
	}
}

func (b *Builder) ingestTFIDF(doc CorpusDoc) int {
	freqs := b.nonPosTok.Tokenize(doc.Text)
	idxs := make([]int, len(freqs))
	docWeightSq := 0.0

	for i, tf := range freqs {
		w := 1 + math.Log10(float64(tf.Count))
		idxs[i] = b.idx.Add(tf.Term, Posting{Doc: doc.ID, Weight: w})
		docWeightSq += w * w
	}

	norm := math.Sqrt(docWeightSq)
	for i, tf := range freqs {
		w := b.idx.Get(tf.Term, idxs[i]).Weight
		b.idx.SetWeight(tf.Term, idxs[i], w/norm)
	}
	return 0
}

func (b *Builder) ingestBM25(doc CorpusDoc) int {
	freqs := b.nonPosTok.Tokenize(doc.Text)
	docLen := len(freqs)

	for _, tf := range freqs {
		b.idx.Add(tf.Term, Posting{
			Doc:       doc.ID,
			Weight:    float64(tf.Count),
			DocLen:    docLen,
			HasDocLen: true,
		})
	}
	return docLen
}

func (b *Builder) ingestTFIDFPositional(doc CorpusDoc) int {
	terms := b.posTok.Tokenize(doc.Text)
	firstIdx, order := b.pushOccurrences(doc.ID, terms, false)

	docWeightSq := 0.0
	for _, term := range order {
		count := b.idx.Get(term, firstIdx[term]).Weight
		lw := 1 + math.Log10(count)
		docWeightSq += lw * lw
	}

	norm := math.Sqrt(docWeightSq)
	for _, term := range order {
		idx := firstIdx[term]
		raw := b.idx.Get(term, idx).Weight
		b.idx.SetWeight(term, idx, raw/norm)
	}
	return 0
}

func (b *Builder) ingestBM25Positional(doc CorpusDoc) int {
	terms := b.posTok.Tokenize(doc.Text)
	firstIdx, order := b.pushOccurrences(doc.ID, terms, true)

	docLen := len(order)
	for _, term := range order {
		b.idx.SetDocLen(term, firstIdx[term], docLen)
	}
	return docLen
}

// pushOccurrences walks an ordered term stream, appending a new posting
// the first time a term is seen in this document and pushing further
// occurrences as positions onto that same posting: a posting's raw weight
// is its occurrence count by virtue of every push incrementing it. It
// returns each distinct term's posting index and the terms in first-seen
// order.
func (b *Builder) pushOccurrences(docID string, terms []string, hasDocLen bool) (map[string]int, []string) {
	firstIdx := make(map[string]int, len(terms))
	order := make([]string, 0, len(terms))

	for pos, term := range terms {
		idx, seen := firstIdx[term]
		if !seen {
			idx = b.idx.Add(term, Posting{Doc: docID, HasDocLen: hasDocLen, Positions: []int{}})
			firstIdx[term] = idx
			order = append(order, term)
		}
		b.idx.AddPosition(term, idx, pos)
	}
	return firstIdx, order
}

func (b *Builder) flush() error {
	path := fmt.Sprintf("%s/index-part-%d.txt", b.dir, b.runSeq)
	b.runSeq++
	if err := b.idx.Flush(b.fsys, path); err != nil {
		return err
	}
	b.idx.Clear()
	return nil
}
