package spimi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParsePosting_RoundTrip(t *testing.T) {
	cases := []Posting{
		{Doc: "doc1", Weight: 0.5},
		{Doc: "doc2", Weight: 3, DocLen: 42, HasDocLen: true},
		{Doc: "doc3", Weight: 2, Positions: []int{0, 4, 9}},
		{Doc: "doc4", Weight: 1.25, DocLen: 7, HasDocLen: true, Positions: []int{2}},
	}

	for _, want := range cases {
		line := EncodePosting(want)
		got, err := ParsePosting(line)
		require.NoError(t, err)
		assert.Equal(t, want.Doc, got.Doc)
		assert.InDelta(t, want.Weight, got.Weight, 0.005)
		assert.Equal(t, want.HasDocLen, got.HasDocLen)
		if want.HasDocLen {
			assert.Equal(t, want.DocLen, got.DocLen)
		}
		if want.Positions != nil {
			assert.Equal(t, want.Positions, got.Positions)
		}
	}
}

func TestParsePosting_Malformed(t *testing.T) {
	_, err := ParsePosting("no-colon-here")
	assert.Error(t, err)
}

func TestEncodeParseLine_RunShape(t *testing.T) {
	postings := []Posting{{Doc: "a", Weight: 1}, {Doc: "b", Weight: 2}}
	line := EncodeRunLine("fever", postings)

	tl, err := ParseLine(line)
	require.NoError(t, err)
	assert.Equal(t, "fever", tl.Term)
	assert.False(t, tl.HasIDF)
	require.Len(t, tl.Postings, 2)
	assert.Equal(t, "a", tl.Postings[0].Doc)
	assert.Equal(t, "b", tl.Postings[1].Doc)
}

func TestEncodeParseLine_FinalShape(t *testing.T) {
	postings := []Posting{{Doc: "a", Weight: 0.75}}
	line := EncodeFinalLine("virus", 1.301, postings)

	tl, err := ParseLine(line)
	require.NoError(t, err)
	assert.Equal(t, "virus", tl.Term)
	require.True(t, tl.HasIDF)
	assert.InDelta(t, 1.301, tl.IDF, 0.0005)
	require.Len(t, tl.Postings, 1)
	assert.InDelta(t, 0.75, tl.Postings[0].Weight, 0.005)
}

func TestParseLine_TermWithNoPostings(t *testing.T) {
	tl, err := ParseLine("orphan")
	require.NoError(t, err)
	assert.Equal(t, "orphan", tl.Term)
	assert.Empty(t, tl.Postings)
}
