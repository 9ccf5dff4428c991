// Package docset interns document identifiers to uint32 ordinals backed by
// a compressed bitmap, so the query engine can intersect the candidate
// document sets of two query terms without an O(n·m) string comparison.
package docset

import "github.com/RoaringBitmap/roaring/v2"

// Interner assigns a stable uint32 ordinal to each document identifier
// seen during one query, in first-seen order.
type Interner struct {
	toOrdinal map[string]uint32
	toDoc     []string
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{toOrdinal: make(map[string]uint32)}
}

// Intern returns doc's ordinal, assigning a new one on first sight.
func (in *Interner) Intern(doc string) uint32 {
	if ord, ok := in.toOrdinal[doc]; ok {
		return ord
	}
	ord := uint32(len(in.toDoc))
	in.toOrdinal[doc] = ord
	in.toDoc = append(in.toDoc, doc)
	return ord
}

// Doc resolves an ordinal back to its document identifier.
func (in *Interner) Doc(ord uint32) string {
	return in.toDoc[ord]
}

// Set is a bitmap of interned document ordinals.
type Set struct {
	bitmap *roaring.Bitmap
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{bitmap: roaring.New()}
}

// FromDocs interns every doc in docs and returns the resulting Set.
func FromDocs(in *Interner, docs []string) *Set {
	s := NewSet()
	for _, d := range docs {
		s.bitmap.Add(in.Intern(d))
	}
	return s
}

// Add interns doc into the set.
func (s *Set) Add(in *Interner, doc string) {
	s.bitmap.Add(in.Intern(doc))
}

// Contains reports whether doc is in the set.
func (s *Set) Contains(in *Interner, doc string) bool {
	ord, ok := in.toOrdinal[doc]
	return ok && s.bitmap.Contains(ord)
}

// Intersect returns the documents present in both a and b.
func Intersect(in *Interner, a, b *Set) []string {
	inter := roaring.And(a.bitmap, b.bitmap)
	docs := make([]string, 0, inter.GetCardinality())
	it := inter.Iterator()
	for it.HasNext() {
		docs = append(docs, in.Doc(it.Next()))
	}
	return docs
}
