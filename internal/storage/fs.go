// Package storage wraps hackpadfs so every file the pipeline touches — run
// files, the merged file, the final file, shards — goes through one
// pluggable filesystem. Tests run against an in-memory FS; the CLI runs
// against the OS.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"github.com/hack-pad/hackpadfs"
	hackpados "github.com/hack-pad/hackpadfs/os"
)

// FS is the filesystem capability the pipeline needs: read, write, list,
// and remove. hackpadfs.FS alone only covers Open; the rest comes from the
// free functions in the hackpadfs package, which is why every helper below
// takes the interface rather than relying on type assertions on fsys itself.
type FS = hackpadfs.FS

// NewOS returns an FS rooted at the OS filesystem, rooted at "/" like
// hackpadfs/os always is; callers pass absolute-from-root or
// working-directory-relative paths as with any os.* call.
func NewOS() (FS, error) {
	return hackpados.NewFS()
}

// Create truncates-or-creates name for writing and returns a line writer.
func Create(fsys FS, name string) (*bufio.Writer, io.Closer, error) {
	f, err := hackpadfs.Create(fsys, name)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: create %s: %w", name, err)
	}
	w, ok := f.(io.Writer)
	if !ok {
		f.Close()
		return nil, nil, fmt.Errorf("storage: %s does not support writing", name)
	}
	return bufio.NewWriter(w), f, nil
}

// Open opens name for reading as a plain io.ReadCloser, for callers that
// need their own decoder (e.g. encoding/csv) rather than line scanning.
func Open(fsys FS, name string) (io.ReadCloser, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", name, err)
	}
	rc, ok := f.(io.ReadCloser)
	if !ok {
		return nil, fmt.Errorf("storage: %s does not support reading", name)
	}
	return rc, nil
}

// OpenLines opens name for reading and returns a line scanner.
func OpenLines(fsys FS, name string) (*bufio.Scanner, io.Closer, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: open %s: %w", name, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return sc, f, nil
}

// Remove deletes name: run files are deleted by the merger as it consumes
// them, the merged file by the weighter, the final file by the sharder.
func Remove(fsys FS, name string) error {
	if err := hackpadfs.Remove(fsys, name); err != nil {
		return fmt.Errorf("storage: remove %s: %w", name, err)
	}
	return nil
}

// RecreateDir deletes dir (if present) and recreates it empty, so a build
// aborted midway never leaves stale run or shard files behind.
func RecreateDir(fsys FS, dir string) error {
	if err := hackpadfs.RemoveAll(fsys, dir); err != nil && !isNotExist(err) {
		return fmt.Errorf("storage: clear %s: %w", dir, err)
	}
	if err := hackpadfs.MkdirAll(fsys, dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return nil
}

func isNotExist(err error) bool {
	return fs.ErrNotExist == err || hackpadfs.IsNotExist(err)
}

// ListSorted returns the base names of all regular files directly under
// dir, sorted lexicographically: run and shard filenames must be sorted
// before each merge pass or shard lookup so posting order stays
// reproducible.
func ListSorted(fsys FS, dir string) ([]string, error) {
	entries, err := hackpadfs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("storage: readdir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
