package spimi

import (
	"math"
	"sort"

	"github.com/termshard/spimidx/pkg/spimi/docset"
)

// DefaultProxWindow is the default maximum position distance considered by
// the positional proximity boost.
const DefaultProxWindow = 50

// ScoredDoc is one ranked result.
type ScoredDoc struct {
	Doc   string
	Score float64
}

// QueryResult is the outcome of one query: a ranking and, for positional
// indexes, a proximity boost per document that the caller may fold into
// scoring or ignore.
type QueryResult struct {
	Ranking   []ScoredDoc
	Proximity map[string]float64
}

// Engine answers queries against a Reader under one scoring Mode
// (component J).
type Engine struct {
	reader     *Reader
	mode       Mode
	proxWindow int
}

// NewEngine returns an Engine. proxWindow <= 0 uses DefaultProxWindow.
func NewEngine(reader *Reader, mode Mode, proxWindow int) *Engine {
	if proxWindow <= 0 {
		proxWindow = DefaultProxWindow
	}
	return &Engine{reader: reader, mode: mode, proxWindow: proxWindow}
}

// Score ranks documents for a query already reduced to its token sequence
// (duplicates included, in the order the tokenizer produced them). tf-idf
// modes deduplicate internally to build a query weight vector; BM25 modes
// do not deduplicate, so a repeated query term contributes additively.
func (e *Engine) Score(queryTerms []string) (QueryResult, error) {
	distinct := dedupe(queryTerms)

	termPostings := make(map[string][]Posting, len(distinct))
	for _, t := range distinct {
		ps, err := e.reader.GetTokenSearch(t)
		if err != nil {
			return QueryResult{}, err
		}
		termPostings[t] = ps
	}

	var scores map[string]float64
	if e.mode.IsBM25() {
		scores = e.scoreBM25(queryTerms, termPostings)
	} else {
		scores = e.scoreTFIDF(queryTerms, distinct, termPostings)
	}

	ranking := make([]ScoredDoc, 0, len(scores))
	for doc, score := range scores {
		ranking = append(ranking, ScoredDoc{Doc: doc, Score: score})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Score != ranking[j].Score {
			return ranking[i].Score > ranking[j].Score
		}
		return ranking[i].Doc < ranking[j].Doc
	})

	result := QueryResult{Ranking: ranking}
	if e.mode.Positional() {
		result.Proximity = e.proximityBoost(distinct, termPostings)
	}
	return result, nil
}

func (e *Engine) scoreTFIDF(queryTerms, distinct []string, termPostings map[string][]Posting) map[string]float64 {
	qfreq := make(map[string]int, len(distinct))
	for _, t := range queryTerms {
		qfreq[t]++
	}

	qraw := make(map[string]float64, len(distinct))
	sumSq := 0.0
	for _, t := range distinct {
		raw := float64(qfreq[t]) * e.reader.GetTokenFreq(t)
		qraw[t] = raw
		sumSq += raw * raw
	}
	norm := math.Sqrt(sumSq)

	scores := map[string]float64{}
	if norm == 0 {
		return scores
	}
	for _, t := range distinct {
		qw := qraw[t] / norm
		if qw == 0 {
			continue
		}
		for _, p := range termPostings[t] {
			scores[p.Doc] += qw * p.Weight
		}
	}
	return scores
}

func (e *Engine) scoreBM25(queryTerms []string, termPostings map[string][]Posting) map[string]float64 {
	scores := map[string]float64{}
	for _, t := range queryTerms {
		for _, p := range termPostings[t] {
			scores[p.Doc] += p.Weight
		}
	}
	return scores
}

// proximityBoost computes the pairwise positional boost: for
// every unordered pair of distinct query terms, every document carrying
// both, and every position pair within the window, add the product of the
// two postings' weights. docset narrows the per-pair document candidates
// to the intersection before the O(|pos1|·|pos2|) scan.
func (e *Engine) proximityBoost(distinct []string, termPostings map[string][]Posting) map[string]float64 {
	boost := map[string]float64{}

	for i := 0; i < len(distinct); i++ {
		for j := i + 1; j < len(distinct); j++ {
			p1, ok1 := termPostings[distinct[i]]
			p2, ok2 := termPostings[distinct[j]]
			if !ok1 || !ok2 || len(p1) == 0 || len(p2) == 0 {
				continue
			}

			m1 := postingsByDoc(p1)
			m2 := postingsByDoc(p2)

			in := docset.NewInterner()
			s1 := docset.FromDocs(in, docsOf(m1))
			s2 := docset.FromDocs(in, docsOf(m2))

			for _, doc := range docset.Intersect(in, s1, s2) {
				pa, pb := m1[doc], m2[doc]
				for _, x := range pa.Positions {
					for _, y := range pb.Positions {
						d := x - y
						if d < 0 {
							d = -d
						}
						if d <= e.proxWindow {
							boost[doc] += pa.Weight * pb.Weight
						}
					}
				}
			}
		}
	}
	return boost
}

func postingsByDoc(ps []Posting) map[string]Posting {
	m := make(map[string]Posting, len(ps))
	for _, p := range ps {
		m[p.Doc] = p
	}
	return m
}

func docsOf(m map[string]Posting) []string {
	docs := make([]string, 0, len(m))
	for d := range m {
		docs = append(docs, d)
	}
	return docs
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
