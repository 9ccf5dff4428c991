package spimi

import (
	"fmt"
	"strings"

	"github.com/termshard/spimidx/internal/storage"
)

// Sharder cuts a final file into size-bounded shards named by term range
// (component H).
type Sharder struct {
	fsys     storage.FS
	memLimit int
}

// NewSharder returns a Sharder using memLimit as the per-shard byte cap.
func NewSharder(fsys storage.FS, memLimit int) *Sharder {
	if memLimit <= 0 {
		memLimit = DefaultMemLimit
	}
	return &Sharder{fsys: fsys, memLimit: memLimit}
}

// Split streams finalPath, writing shard files under shardDir, and returns
// their names in emission order. finalPath is deleted on success.
func (s *Sharder) Split(finalPath, shardDir string) ([]string, error) {
	sc, inCloser, err := storage.OpenLines(s.fsys, finalPath)
	if err != nil {
		return nil, err
	}
	defer inCloser.Close()

	var shardNames []string
	var buf []string
	var bufBytes int
	var starter, last string

	flush := func(name string) error {
		path := shardDir + "/" + name
		w, closer, err := storage.Create(s.fsys, path)
		if err != nil {
			return err
		}
		defer closer.Close()
		for _, line := range buf {
			if _, err := w.WriteString(line); err != nil {
				return fmt.Errorf("spimi: write %s: %w", path, err)
			}
			if err := w.WriteByte('\n'); err != nil {
				return fmt.Errorf("spimi: write %s: %w", path, err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("spimi: write %s: %w", path, err)
		}
		shardNames = append(shardNames, name)
		buf = nil
		bufBytes = 0
		return nil
	}

	for sc.Scan() {
		line := sc.Text()
		if len(buf) == 0 {
			starter = shardTerm(line)
		}
		last = shardTerm(line)
		buf = append(buf, line)
		bufBytes += len(line) + 1

		if bufBytes > s.memLimit {
			if err := flush(shardName(starter, last)); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("spimi: read %s: %w", finalPath, err)
	}

	if len(buf) > 0 {
		if err := flush(shardName(starter, last)); err != nil {
			return nil, err
		}
	}

	if err := storage.Remove(s.fsys, finalPath); err != nil {
		return nil, err
	}
	return shardNames, nil
}

// shardTerm extracts the term from a final-file line ("term:idf;…").
func shardTerm(line string) string {
	if idx := strings.IndexByte(line, ':'); idx >= 0 {
		return line[:idx]
	}
	return line
}

// shardName applies the shard naming rule: a single-term shard drops the
// range dash.
func shardName(start, end string) string {
	if start == end {
		return start + ".txt"
	}
	return start + "-" + end + ".txt"
}
