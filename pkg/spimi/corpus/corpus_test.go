package corpus

import (
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termshard/spimidx/internal/storage"
	"github.com/termshard/spimidx/pkg/spimi"
)

func writeCSV(t *testing.T, fsys storage.FS, path, content string) {
	t.Helper()
	w, closer, err := storage.Create(fsys, path)
	require.NoError(t, err)
	defer closer.Close()
	_, err = w.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
}

func referenceCSV() string {
	header := "cord_uid,source,title,x,y,z,y2,abstract\n"
	row1 := "d1,src,Fever Study,,,,,Patients reported fever and cough\n"
	row2 := "d2,src,Empty Title Row,,,,,\n" // empty abstract, should be skipped
	row3 := "d3,src,Headache Report,,,,,Headache persisted for days\n"
	return header + row1 + row2 + row3
}

func TestCSVReader_SkipsRowsWithEmptyText(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	writeCSV(t, fsys, "corpus.csv", referenceCSV())

	r := NewCSVReader(fsys, "corpus.csv")
	docs, eof, err := r.NextBatch(10)
	require.NoError(t, err)
	assert.True(t, eof)
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID)
	assert.Contains(t, docs[0].Text, "Fever Study")
	assert.Contains(t, docs[0].Text, "fever and cough")
	assert.Equal(t, "d3", docs[1].ID)
}

func TestCSVReader_NumReadDocsCountsAllRowsNotJustKept(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	writeCSV(t, fsys, "corpus.csv", referenceCSV())

	r := NewCSVReader(fsys, "corpus.csv")
	_, _, err = r.NextBatch(10)
	require.NoError(t, err)
	assert.Equal(t, 3, r.NumReadDocs())
}

func TestCSVReader_BatchesAcrossMultipleCalls(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	writeCSV(t, fsys, "corpus.csv", referenceCSV())

	r := NewCSVReader(fsys, "corpus.csv")
	first, eof, err := r.NextBatch(1)
	require.NoError(t, err)
	assert.False(t, eof)
	require.Len(t, first, 1)

	second, eof, err := r.NextBatch(10)
	require.NoError(t, err)
	assert.True(t, eof)
	require.Len(t, second, 1)
}

func TestCSVReader_MissingFileWrapsErrInputNotFound(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)

	r := NewCSVReader(fsys, "missing.csv")
	_, _, err = r.NextBatch(10)
	assert.ErrorIs(t, err, spimi.ErrInputNotFound)
}

func TestCSVReader_WithColumnsOverridesLayout(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	writeCSV(t, fsys, "corpus.csv", "id,body\nx1,hello world\n")

	r := NewCSVReader(fsys, "corpus.csv").WithColumns(0, 1, 1)
	docs, eof, err := r.NextBatch(10)
	require.NoError(t, err)
	assert.True(t, eof)
	require.Len(t, docs, 1)
	assert.Equal(t, "x1", docs[0].ID)
	assert.Equal(t, "hello world hello world", docs[0].Text)
}
