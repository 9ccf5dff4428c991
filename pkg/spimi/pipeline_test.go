package spimi

import (
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termshard/spimidx/internal/storage"
)

// TestPipeline_BuildMergeWeightShardQuery_TinyCorpus drives the full
// build -> merge -> weight -> shard -> read -> query chain end to end for
// a corpus small enough to land in a single run and a single shard, the
// scenario most likely to hide a shard-naming/coverage mismatch.
func TestPipeline_BuildMergeWeightShardQuery_TinyCorpus(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, storage.RecreateDir(fsys, "idx"))
	require.NoError(t, storage.RecreateDir(fsys, "idx/shards"))

	docs := []CorpusDoc{
		{ID: "d1", Text: "the quick brown fox"},
		{ID: "d2", Text: "the lazy brown dog"},
	}

	b, err := NewBuilder(fsys, "idx", TFIDF, &fakeCorpus{docs: docs}, stubTokenizer{}, DefaultMemLimit, DefaultBatchDocs)
	require.NoError(t, err)
	stats, err := b.Run()
	require.NoError(t, err)

	m := NewMerger(fsys, "idx", DefaultFanIn)
	mergedPath, err := m.Merge()
	require.NoError(t, err)

	w := NewWeighter(fsys, TFIDF, stats, 0, 0)
	require.NoError(t, w.Weight(mergedPath, "idx/final.txt"))

	s := NewSharder(fsys, DefaultMemLimit)
	shardNames, err := s.Split("idx/final.txt", "idx/shards")
	require.NoError(t, err)
	require.Len(t, shardNames, 1, "every term fits under one byte-limited shard")

	r, err := NewReader(fsys, "idx/shards")
	require.NoError(t, err)

	engine := NewEngine(r, TFIDF, DefaultProxWindow)
	result, err := engine.Score([]string{"quick", "fox"})
	require.NoError(t, err)

	require.NotEmpty(t, result.Ranking, "quick/fox must resolve through the only shard, not just the term the shard happens to be named after")
	assert.Equal(t, "d1", result.Ranking[0].Doc)
}
