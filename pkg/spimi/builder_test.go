package spimi

import (
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termshard/spimidx/internal/storage"
)

// fakeCorpus serves a fixed slice of documents in one batch, for tests
// that don't need the real CSV reader.
type fakeCorpus struct {
	docs []CorpusDoc
	read int
	done bool
}

func (c *fakeCorpus) NextBatch(n int) ([]CorpusDoc, bool, error) {
	if c.done {
		return nil, true, nil
	}
	c.done = true
	c.read = len(c.docs)
	return c.docs, true, nil
}

func (c *fakeCorpus) NumReadDocs() int { return c.read }

type stubTokenizer struct{}

func (stubTokenizer) Tokenize(text string) []TermCount {
	words := map[string]int{}
	order := []string{}
	cur := ""
	flush := func() {
		if cur == "" {
			return
		}
		if _, ok := words[cur]; !ok {
			order = append(order, cur)
		}
		words[cur]++
		cur = ""
	}
	for _, r := range text {
		if r == ' ' {
			flush()
			continue
		}
		cur += string(r)
	}
	flush()

	out := make([]TermCount, len(order))
	for i, w := range order {
		out[i] = TermCount{Term: w, Count: words[w]}
	}
	return out
}

type stubPositionalTokenizer struct{}

func (stubPositionalTokenizer) Tokenize(text string) []string {
	var words []string
	cur := ""
	for _, r := range text {
		if r == ' ' {
			if cur != "" {
				words = append(words, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		words = append(words, cur)
	}
	return words
}

func tinyCorpus() []CorpusDoc {
	return []CorpusDoc{
		{ID: "d1", Text: "fever cough fever"},
		{ID: "d2", Text: "cough headache"},
		{ID: "d3", Text: "fever headache headache"},
	}
}

func runFiles(t *testing.T, fsys storage.FS, dir string) []string {
	t.Helper()
	names, err := storage.ListSorted(fsys, dir)
	require.NoError(t, err)
	return names
}

func TestBuilder_TFIDF_FlushesCosineNormalizedWeights(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, storage.RecreateDir(fsys, "idx"))

	b, err := NewBuilder(fsys, "idx", TFIDF, &fakeCorpus{docs: tinyCorpus()}, stubTokenizer{}, DefaultMemLimit, DefaultBatchDocs)
	require.NoError(t, err)

	stats, err := b.Run()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.NumReadDocs)

	names := runFiles(t, fsys, "idx")
	require.Len(t, names, 1)

	sc, closer, err := storage.OpenLines(fsys, "idx/"+names[0])
	require.NoError(t, err)
	defer closer.Close()

	found := false
	for sc.Scan() {
		tl, err := ParseLine(sc.Text())
		require.NoError(t, err)
		if tl.Term != "fever" {
			continue
		}
		found = true
		for _, p := range tl.Postings {
			if p.Doc == "d1" {
				// fever appears twice in d1, alongside cough once; its
				// log-tf weight dominates, so its normalized weight is
				// below 1 but the largest component for that document.
				assert.Less(t, p.Weight, 1.0)
				assert.Greater(t, p.Weight, 0.0)
			}
		}
	}
	assert.True(t, found)
}

func TestBuilder_BM25_TracksDocLength(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, storage.RecreateDir(fsys, "idx"))

	b, err := NewBuilder(fsys, "idx", BM25, &fakeCorpus{docs: tinyCorpus()}, stubTokenizer{}, DefaultMemLimit, DefaultBatchDocs)
	require.NoError(t, err)

	stats, err := b.Run()
	require.NoError(t, err)
	// d1 has 2 distinct terms, d2 has 2, d3 has 2.
	assert.Equal(t, 6, stats.SumDocLength)
}

func TestBuilder_TFIDFPositional_PushesPositionsOnRepeat(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, storage.RecreateDir(fsys, "idx"))

	b, err := NewPositionalBuilder(fsys, "idx", TFIDFPositional, &fakeCorpus{docs: tinyCorpus()}, stubPositionalTokenizer{}, DefaultMemLimit, DefaultBatchDocs)
	require.NoError(t, err)

	_, err = b.Run()
	require.NoError(t, err)

	names := runFiles(t, fsys, "idx")
	require.Len(t, names, 1)

	sc, closer, err := storage.OpenLines(fsys, "idx/"+names[0])
	require.NoError(t, err)
	defer closer.Close()

	for sc.Scan() {
		tl, err := ParseLine(sc.Text())
		require.NoError(t, err)
		if tl.Term != "fever" {
			continue
		}
		for _, p := range tl.Postings {
			if p.Doc == "d1" {
				assert.Equal(t, []int{0, 2}, p.Positions)
			}
		}
	}
}

func TestBuilder_BM25Positional_RecordsDocLenFromDistinctTerms(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, storage.RecreateDir(fsys, "idx"))

	b, err := NewPositionalBuilder(fsys, "idx", BM25Positional, &fakeCorpus{docs: tinyCorpus()}, stubPositionalTokenizer{}, DefaultMemLimit, DefaultBatchDocs)
	require.NoError(t, err)

	stats, err := b.Run()
	require.NoError(t, err)
	assert.Equal(t, 6, stats.SumDocLength)
}

func TestNewBuilder_RejectsPositionalMode(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	_, err = NewBuilder(fsys, "idx", TFIDFPositional, &fakeCorpus{}, stubTokenizer{}, DefaultMemLimit, DefaultBatchDocs)
	assert.Error(t, err)
}

func TestNewPositionalBuilder_RejectsNonPositionalMode(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	_, err = NewPositionalBuilder(fsys, "idx", TFIDF, &fakeCorpus{}, stubPositionalTokenizer{}, DefaultMemLimit, DefaultBatchDocs)
	assert.Error(t, err)
}

func TestBuilder_FlushesMultipleRunsUnderTightMemLimit(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, storage.RecreateDir(fsys, "idx"))

	b, err := NewBuilder(fsys, "idx", TFIDF, &fakeCorpus{docs: tinyCorpus()}, stubTokenizer{}, 1, 1)
	require.NoError(t, err)

	stats, err := b.Run()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.RunFiles)
	assert.Len(t, runFiles(t, fsys, "idx"), 3)
}
