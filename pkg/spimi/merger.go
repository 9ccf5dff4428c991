package spimi

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/termshard/spimidx/internal/storage"
)

// DefaultFanIn is the default number of run files merged together per pass.
const DefaultFanIn = 5

// Merger performs the external k-way merge of component F: repeated passes
// over the run files in a directory, fanIn at a time, until one file
// remains.
type Merger struct {
	fsys  storage.FS
	dir   string
	fanIn int
}

// NewMerger returns a Merger over the run files in dir.
func NewMerger(fsys storage.FS, dir string, fanIn int) *Merger {
	if fanIn <= 0 {
		fanIn = DefaultFanIn
	}
	return &Merger{fsys: fsys, dir: dir, fanIn: fanIn}
}

// Merge runs passes until a single sorted file remains in dir and returns
// its path. Run files are deleted as their readers are exhausted; the
// pass-scoped output of an intermediate pass is itself named
// index-part-<n>.txt so later passes treat every file in dir uniformly.
func (m *Merger) Merge() (string, error) {
	nextSeq, err := m.nextSeq()
	if err != nil {
		return "", err
	}

	for {
		names, err := storage.ListSorted(m.fsys, m.dir)
		if err != nil {
			return "", err
		}
		if len(names) == 0 {
			return "", fmt.Errorf("spimi: merge: no run files in %s", m.dir)
		}
		if len(names) == 1 {
			return m.dir + "/" + names[0], nil
		}

		batch := names
		if len(batch) > m.fanIn {
			batch = batch[:m.fanIn]
		}

		outName := fmt.Sprintf("index-part-%d.txt", nextSeq)
		nextSeq++
		if err := m.mergePass(batch, outName); err != nil {
			return "", err
		}
	}
}

// nextSeq returns one more than the highest run-file sequence number in
// use, so pass outputs never collide with an input awaiting its turn.
func (m *Merger) nextSeq() (int, error) {
	names, err := storage.ListSorted(m.fsys, m.dir)
	if err != nil {
		return 0, err
	}
	max := -1
	for _, n := range names {
		if !strings.HasPrefix(n, "index-part-") || !strings.HasSuffix(n, ".txt") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(n, "index-part-"), ".txt")
		v, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}
	return max + 1, nil
}

// mergePass performs one bounded-fan-in pass: opens every name with a
// one-line-lookahead reader, repeatedly emits the term line for the
// lexicographically smallest lookahead term by concatenating the postings
// of every reader currently at that term, and advances only those readers.
func (m *Merger) mergePass(names []string, outName string) error {
	readers := make([]*runReader, 0, len(names))
	for _, name := range names {
		r, err := newRunReader(m.fsys, m.dir+"/"+name)
		if err != nil {
			return err
		}
		readers = append(readers, r)
	}

	w, closer, err := storage.Create(m.fsys, m.dir+"/"+outName)
	if err != nil {
		return err
	}
	defer closer.Close()

	for {
		smallest := ""
		found := false
		for _, r := range readers {
			if r.hasCur && (!found || r.cur.Term < smallest) {
				smallest = r.cur.Term
				found = true
			}
		}
		if !found {
			break
		}

		var postings []Posting
		for _, r := range readers {
			if r.hasCur && r.cur.Term == smallest {
				postings = append(postings, r.cur.Postings...)
				if err := r.advance(); err != nil {
					return err
				}
			}
		}

		if _, err := w.WriteString(EncodeRunLine(smallest, postings)); err != nil {
			return fmt.Errorf("spimi: merge write: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("spimi: merge write: %w", err)
		}
	}

	return w.Flush()
}

// runReader is a one-line-lookahead cursor over a run file. It closes and
// deletes its underlying file the moment it hits EOF, per the merger's
// file-lifecycle rule.
type runReader struct {
	fsys   storage.FS
	path   string
	sc     *bufio.Scanner
	closer io.Closer
	cur    TermLine
	hasCur bool
	closed bool
}

func newRunReader(fsys storage.FS, path string) (*runReader, error) {
	sc, closer, err := storage.OpenLines(fsys, path)
	if err != nil {
		return nil, err
	}
	r := &runReader{fsys: fsys, path: path, sc: sc, closer: closer}
	if err := r.advance(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *runReader) advance() error {
	if r.sc.Scan() {
		tl, err := ParseLine(r.sc.Text())
		if err != nil {
			return fmt.Errorf("spimi: parse %s: %w", r.path, err)
		}
		r.cur = tl
		r.hasCur = true
		return nil
	}
	if err := r.sc.Err(); err != nil {
		return fmt.Errorf("spimi: read %s: %w", r.path, err)
	}
	r.hasCur = false
	return r.closeAndRemove()
}

func (r *runReader) closeAndRemove() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.closer.Close(); err != nil {
		return fmt.Errorf("spimi: close %s: %w", r.path, err)
	}
	return storage.Remove(r.fsys, r.path)
}
