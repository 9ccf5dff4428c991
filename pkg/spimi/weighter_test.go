package spimi

import (
	"math"
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termshard/spimidx/internal/storage"
)

func TestValidateBM25Params(t *testing.T) {
	assert.NoError(t, ValidateBM25Params(1.2, 0.75))
	assert.ErrorIs(t, ValidateBM25Params(1.0, 0.75), ErrParamRange)
	assert.ErrorIs(t, ValidateBM25Params(2.0, 0.75), ErrParamRange)
	assert.ErrorIs(t, ValidateBM25Params(1.2, 0), ErrParamRange)
	assert.ErrorIs(t, ValidateBM25Params(1.2, 1), ErrParamRange)
}

func TestWeighter_TFIDF_ComputesLog10IDF(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, storage.RecreateDir(fsys, "idx"))

	writeRun(t, fsys, "idx/merged.txt",
		EncodeRunLine("rare", []Posting{{Doc: "d1", Weight: 1}}),
	)

	wt := NewWeighter(fsys, TFIDF, BuildStats{NumReadDocs: 10}, DefaultK1, DefaultB)
	require.NoError(t, wt.Weight("idx/merged.txt", "idx/final.txt"))

	sc, closer, err := storage.OpenLines(fsys, "idx/final.txt")
	require.NoError(t, err)
	defer closer.Close()

	require.True(t, sc.Scan())
	tl, err := ParseLine(sc.Text())
	require.NoError(t, err)
	assert.True(t, tl.HasIDF)
	assert.InDelta(t, math.Log10(10.0/1.0), tl.IDF, 1e-6)

	_, err = storage.OpenLines(fsys, "idx/merged.txt")
	assert.Error(t, err, "merged file should be deleted after weighting")
}

func TestWeighter_BM25_ScoreIsBoundedAndFoldsIDF(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, storage.RecreateDir(fsys, "idx"))

	writeRun(t, fsys, "idx/merged.txt",
		EncodeRunLine("fever", []Posting{{Doc: "d1", Weight: 3, DocLen: 5, HasDocLen: true}}),
	)

	stats := BuildStats{NumReadDocs: 4, SumDocLength: 20}
	wt := NewWeighter(fsys, BM25, stats, DefaultK1, DefaultB)
	require.NoError(t, wt.Weight("idx/merged.txt", "idx/final.txt"))

	sc, closer, err := storage.OpenLines(fsys, "idx/final.txt")
	require.NoError(t, err)
	defer closer.Close()

	require.True(t, sc.Scan())
	tl, err := ParseLine(sc.Text())
	require.NoError(t, err)
	require.Len(t, tl.Postings, 1)

	idf := math.Log10(4.0 / 1.0)
	// BM25 caps at idf*(k1+1) as rawFreq grows without bound.
	assert.Less(t, tl.Postings[0].Weight, idf*(DefaultK1+1))
	assert.Greater(t, tl.Postings[0].Weight, 0.0)
}

func TestBm25Weight_ZeroRawFreqYieldsZero(t *testing.T) {
	assert.Equal(t, 0.0, bm25Weight(1.5, DefaultK1, DefaultB, 0, 5, 10))
}
