package main

import (
	"fmt"
	"sort"

	"github.com/termshard/spimidx/internal/storage"
	"github.com/termshard/spimidx/pkg/spimi"
)

// vocabularyReport walks every shard once (independent of the query-time
// reader's lazy cache) to answer the vocabulary diagnostics the reference
// tool prints: vocabulary size, terms appearing in exactly one document,
// and the terms with the highest document frequency.
func vocabularyReport(fsys storage.FS, shardDir string) error {
	names, err := storage.ListSorted(fsys, shardDir)
	if err != nil {
		return err
	}

	df := map[string]int{}
	for _, name := range names {
		sc, closer, err := storage.OpenLines(fsys, shardDir+"/"+name)
		if err != nil {
			return err
		}
		for sc.Scan() {
			tl, err := spimi.ParseLine(sc.Text())
			if err != nil {
				closer.Close()
				return fmt.Errorf("%w: %v", spimi.ErrIndexCorrupt, err)
			}
			df[tl.Term] = len(tl.Postings)
		}
		err = sc.Err()
		closer.Close()
		if err != nil {
			return err
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	fmt.Printf("Vocabulary size: %d terms\n", len(terms))

	var singleDoc []string
	for _, t := range terms {
		if df[t] == 1 {
			singleDoc = append(singleDoc, t)
			if len(singleDoc) == 10 {
				break
			}
		}
	}
	fmt.Printf("First ten terms appearing in exactly one document:\n  %v\n", singleDoc)

	byDF := append([]string(nil), terms...)
	sort.SliceStable(byDF, func(i, j int) bool { return df[byDF[i]] < df[byDF[j]] })
	top := byDF
	if len(top) > 10 {
		top = top[len(top)-10:]
	}
	fmt.Printf("Ten terms with the highest document frequency:\n  %v\n", top)

	return nil
}
