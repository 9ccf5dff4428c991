package spimi

import (
	"fmt"
	"strconv"
	"strings"
)

// Posting is the per-(term, doc) value recorded in an index. It is
// immutable once it leaves the partial index: the partial index owns a
// writable buffer internally (see PartialIndex) and freezes postings at
// flush time.
type Posting struct {
	Doc    string
	Weight float64

	// DocLen is the number of distinct terms in the document. Only BM25
	// variants carry it; HasDocLen says whether it applies.
	DocLen    int
	HasDocLen bool

	// Positions holds 0-based term offsets in document-arrival order,
	// ascending. Nil means the posting carries no positional data.
	Positions []int
}

// EncodePosting serializes p into one of its four line shapes depending on
// whether it carries a document length and/or positions. Weight is always
// rendered with two decimals in persisted form; the header's idf gets three
// decimals separately (EncodeFinalLine).
func EncodePosting(p Posting) string {
	var b strings.Builder
	if p.HasDocLen {
		fmt.Fprintf(&b, "%s,%d:%.2f", p.Doc, p.DocLen, p.Weight)
	} else {
		fmt.Fprintf(&b, "%s:%.2f", p.Doc, p.Weight)
	}
	if p.Positions != nil {
		b.WriteByte(':')
		for i, pos := range p.Positions {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(pos))
		}
	}
	return b.String()
}

// ParsePosting is the inverse of EncodePosting. It recognizes the four
// shapes by counting ':' segments and checking for a ',' before the first
// ':'.
func ParsePosting(s string) (Posting, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Posting{}, fmt.Errorf("spimi: malformed posting %q", s)
	}

	var p Posting
	docField := parts[0]
	if idx := strings.IndexByte(docField, ','); idx >= 0 {
		p.Doc = docField[:idx]
		dl, err := strconv.Atoi(docField[idx+1:])
		if err != nil {
			return Posting{}, fmt.Errorf("spimi: malformed doc length in %q: %w", s, err)
		}
		p.DocLen = dl
		p.HasDocLen = true
	} else {
		p.Doc = docField
	}

	w, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Posting{}, fmt.Errorf("spimi: malformed weight in %q: %w", s, err)
	}
	p.Weight = w

	if len(parts) == 3 {
		if parts[2] == "" {
			p.Positions = []int{}
		} else {
			fields := strings.Split(parts[2], ",")
			positions := make([]int, len(fields))
			for i, f := range fields {
				v, err := strconv.Atoi(f)
				if err != nil {
					return Posting{}, fmt.Errorf("spimi: malformed position in %q: %w", s, err)
				}
				positions[i] = v
			}
			p.Positions = positions
		}
	}

	return p, nil
}

// EncodeRunLine renders a run/merged-file term line: "term;posting;…",
// unsorted within the line beyond the caller's own posting order.
func EncodeRunLine(term string, postings []Posting) string {
	parts := make([]string, 0, len(postings)+1)
	parts = append(parts, term)
	for _, p := range postings {
		parts = append(parts, EncodePosting(p))
	}
	return strings.Join(parts, ";")
}

// EncodeFinalLine renders a final/shard-file term line:
// "term:idf;posting;…", idf formatted with three decimals.
func EncodeFinalLine(term string, idf float64, postings []Posting) string {
	parts := make([]string, 0, len(postings)+1)
	parts = append(parts, fmt.Sprintf("%s:%.3f", term, idf))
	for _, p := range postings {
		parts = append(parts, EncodePosting(p))
	}
	return strings.Join(parts, ";")
}

// TermLine is a parsed term-header-plus-postings line, covering both the
// run/merged shape (HasIDF false) and the final/shard shape (HasIDF true).
type TermLine struct {
	Term     string
	IDF      float64
	HasIDF   bool
	Postings []Posting
}

// ParseLine splits line at the first ';' to separate the term header from
// the postings, then splits the postings on ';' and the header on ':'.
func ParseLine(line string) (TermLine, error) {
	var tl TermLine

	sep := strings.IndexByte(line, ';')
	header := line
	var rest string
	if sep >= 0 {
		header = line[:sep]
		rest = line[sep+1:]
	}

	if idx := strings.IndexByte(header, ':'); idx >= 0 {
		tl.Term = header[:idx]
		idf, err := strconv.ParseFloat(header[idx+1:], 64)
		if err != nil {
			return TermLine{}, fmt.Errorf("spimi: malformed idf header %q: %w", header, err)
		}
		tl.IDF = idf
		tl.HasIDF = true
	} else {
		tl.Term = header
	}

	if rest == "" {
		return tl, nil
	}

	fields := strings.Split(rest, ";")
	tl.Postings = make([]Posting, 0, len(fields))
	for _, f := range fields {
		p, err := ParsePosting(f)
		if err != nil {
			return TermLine{}, err
		}
		tl.Postings = append(tl.Postings, p)
	}
	return tl, nil
}
