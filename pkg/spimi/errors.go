package spimi

import "errors"

// Sentinel errors callers can match with errors.Is, distinct from wrapped
// I/O failures, which propagate as-is.
var (
	// ErrIndexCorrupt signals a format violation while reading a shard or
	// the merged file: the index directory must be rebuilt from empty.
	ErrIndexCorrupt = errors.New("spimi: index corrupt")

	// ErrTermNotFound names a term absent from every shard range. No
	// function in this package returns it: Reader.GetTokenSearch reports
	// such a term as nil postings with a nil error.
	ErrTermNotFound = errors.New("spimi: term not found")

	// ErrParamRange signals a BM25 parameter outside its valid range.
	ErrParamRange = errors.New("spimi: parameter out of range")

	// ErrInputNotFound signals a missing corpus, query, or relevance path.
	ErrInputNotFound = errors.New("spimi: input not found")
)
