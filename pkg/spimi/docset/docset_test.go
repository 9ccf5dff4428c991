package docset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterner_InternIsStable(t *testing.T) {
	in := NewInterner()
	a := in.Intern("doc-a")
	b := in.Intern("doc-b")
	aAgain := in.Intern("doc-a")

	assert.Equal(t, a, aAgain)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "doc-a", in.Doc(a))
	assert.Equal(t, "doc-b", in.Doc(b))
}

func TestSet_ContainsAndAdd(t *testing.T) {
	in := NewInterner()
	s := NewSet()
	s.Add(in, "doc-a")

	assert.True(t, s.Contains(in, "doc-a"))
	assert.False(t, s.Contains(in, "doc-b"))
}

func TestFromDocsAndIntersect(t *testing.T) {
	in := NewInterner()
	a := FromDocs(in, []string{"d1", "d2", "d3"})
	b := FromDocs(in, []string{"d2", "d3", "d4"})

	got := Intersect(in, a, b)
	assert.ElementsMatch(t, []string{"d2", "d3"}, got)
}

func TestIntersect_EmptyWhenDisjoint(t *testing.T) {
	in := NewInterner()
	a := FromDocs(in, []string{"d1"})
	b := FromDocs(in, []string{"d2"})

	assert.Empty(t, Intersect(in, a, b))
}
