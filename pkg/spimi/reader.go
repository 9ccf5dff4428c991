package spimi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/termshard/spimidx/internal/storage"
)

// Reader demand-loads shards by term and caches term→postings and
// term→idf for the life of a query session (component I).
type Reader struct {
	fsys     storage.FS
	shardDir string
	ranges   []shardRange
	loaded   map[string]bool
	postings map[string][]Posting
	idf      map[string]float64
}

type shardRange struct {
	name  string
	start string
	end   string
}

func (r shardRange) covers(term string) bool {
	return r.start <= term && term <= r.end
}

// NewReader lists shardDir and indexes its shard name ranges, without
// loading any shard contents yet.
func NewReader(fsys storage.FS, shardDir string) (*Reader, error) {
	names, err := storage.ListSorted(fsys, shardDir)
	if err != nil {
		return nil, err
	}

	ranges := make([]shardRange, 0, len(names))
	for _, n := range names {
		ranges = append(ranges, parseShardName(n))
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })

	return &Reader{
		fsys:     fsys,
		shardDir: shardDir,
		ranges:   ranges,
		loaded:   make(map[string]bool),
		postings: make(map[string][]Posting),
		idf:      make(map[string]float64),
	}, nil
}

// parseShardName inverts Sharder's shard naming rule.
func parseShardName(name string) shardRange {
	base := strings.TrimSuffix(name, ".txt")
	if idx := strings.IndexByte(base, '-'); idx >= 0 {
		return shardRange{name: name, start: base[:idx], end: base[idx+1:]}
	}
	return shardRange{name: name, start: base, end: base}
}

// GetTokenSearch returns the postings for term, or nil if term is absent
// from every shard. On first touch it loads the covering shard's every
// line into the cache.
func (r *Reader) GetTokenSearch(term string) ([]Posting, error) {
	if ps, ok := r.postings[term]; ok {
		return ps, nil
	}

	sr, ok := r.findShard(term)
	if !ok {
		return nil, nil
	}
	if err := r.loadShard(sr); err != nil {
		return nil, err
	}
	return r.postings[term], nil
}

// GetTokenFreq returns the cached idf for term, or 0 if the term's shard
// has never been loaded.
func (r *Reader) GetTokenFreq(term string) float64 {
	return r.idf[term]
}

// findShard locates the shard whose range covers term, using a binary
// search over shards sorted by start since ranges are disjoint and
// ordered.
func (r *Reader) findShard(term string) (shardRange, bool) {
	i := sort.Search(len(r.ranges), func(i int) bool { return r.ranges[i].end >= term })
	if i < len(r.ranges) && r.ranges[i].covers(term) {
		return r.ranges[i], true
	}
	return shardRange{}, false
}

func (r *Reader) loadShard(sr shardRange) error {
	if r.loaded[sr.name] {
		return nil
	}

	sc, closer, err := storage.OpenLines(r.fsys, r.shardDir+"/"+sr.name)
	if err != nil {
		return err
	}
	defer closer.Close()

	for sc.Scan() {
		tl, err := ParseLine(sc.Text())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
		}
		r.postings[tl.Term] = tl.Postings
		r.idf[tl.Term] = tl.IDF
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("spimi: read %s: %w", sr.name, err)
	}

	r.loaded[sr.name] = true
	return nil
}
