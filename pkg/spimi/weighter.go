package spimi

import (
	"fmt"
	"math"

	"github.com/termshard/spimidx/internal/storage"
)

// DefaultK1 and DefaultB are the reference BM25 parameter defaults.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Weighter rewrites a merged file into a final file under the chosen
// scoring model (component G). It streams line by line; the whole merged
// file is never materialized in memory.
type Weighter struct {
	fsys  storage.FS
	mode  Mode
	stats BuildStats
	k1    float64
	b     float64
}

// NewWeighter returns a Weighter. k1 and b are ignored outside the BM25
// modes. Validate them with ValidateBM25Params before constructing one from
// user input.
func NewWeighter(fsys storage.FS, mode Mode, stats BuildStats, k1, b float64) *Weighter {
	return &Weighter{fsys: fsys, mode: mode, stats: stats, k1: k1, b: b}
}

// ValidateBM25Params enforces the Okapi BM25 parameter ranges: k1 in
// (1,2), b in (0,1).
func ValidateBM25Params(k1, b float64) error {
	if k1 <= 1 || k1 >= 2 {
		return fmt.Errorf("%w: bk1=%v must be in (1,2)", ErrParamRange, k1)
	}
	if b <= 0 || b >= 1 {
		return fmt.Errorf("%w: bb=%v must be in (0,1)", ErrParamRange, b)
	}
	return nil
}

// Weight reads mergedPath, writes finalPath, and deletes mergedPath on
// success.
func (wt *Weighter) Weight(mergedPath, finalPath string) error {
	avgDL := 0.0
	if wt.mode.IsBM25() && wt.stats.NumReadDocs > 0 {
		avgDL = float64(wt.stats.SumDocLength) / float64(wt.stats.NumReadDocs)
	}

	sc, inCloser, err := storage.OpenLines(wt.fsys, mergedPath)
	if err != nil {
		return err
	}
	defer inCloser.Close()

	w, outCloser, err := storage.Create(wt.fsys, finalPath)
	if err != nil {
		return err
	}
	defer outCloser.Close()

	for sc.Scan() {
		tl, err := ParseLine(sc.Text())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
		}

		idf := 0.0
		if wt.stats.NumReadDocs > 0 && len(tl.Postings) > 0 {
			idf = math.Log10(float64(wt.stats.NumReadDocs) / float64(len(tl.Postings)))
		}

		postings := tl.Postings
		if wt.mode.IsBM25() {
			postings = make([]Posting, len(tl.Postings))
			for i, p := range tl.Postings {
				postings[i] = p
				postings[i].Weight = bm25Weight(idf, wt.k1, wt.b, p.Weight, p.DocLen, avgDL)
			}
		}

		if _, err := w.WriteString(EncodeFinalLine(tl.Term, idf, postings)); err != nil {
			return fmt.Errorf("spimi: write %s: %w", finalPath, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("spimi: write %s: %w", finalPath, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("spimi: read %s: %w", mergedPath, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("spimi: write %s: %w", finalPath, err)
	}

	return storage.Remove(wt.fsys, mergedPath)
}

// bm25Weight computes the Okapi BM25 contribution of one (term, doc) pair
// under the Okapi BM25 formula.
func bm25Weight(idf, k1, b, rawFreq float64, docLen int, avgDL float64) float64 {
	lengthNorm := 1.0
	if avgDL > 0 {
		lengthNorm = (1 - b) + b*float64(docLen)/avgDL
	}
	denom := k1*lengthNorm + rawFreq
	if denom == 0 {
		return 0
	}
	return idf * (k1 + 1) * rawFreq / denom
}
