package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/termshard/spimidx/internal/metricsdb"
	"github.com/termshard/spimidx/internal/storage"
	"github.com/termshard/spimidx/pkg/spimi"
	"github.com/termshard/spimidx/pkg/spimi/corpus"
	"github.com/termshard/spimidx/pkg/spimi/eval"
	"github.com/termshard/spimidx/pkg/spimi/tokenize"
)

var (
	corpusPath    string
	improved      bool
	writeFlat     string
	useBM25       bool
	bmK1          float64
	bmB           float64
	queryPath     string
	relevancePath string
	showStats     bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "spimidx",
		Short:        "Build a SPIMI inverted index and evaluate it against a query set",
		SilenceUsage: true,
		PreRunE:      validateFlags,
		RunE:         run,
	}

	flags := cmd.Flags()
	flags.StringVarP(&corpusPath, "file", "f", "", "corpus CSV file (required)")
	flags.BoolVarP(&improved, "tokenizer", "t", false, "use the stopword/stemming tokenizer instead of the plain one")
	flags.StringVarP(&writeFlat, "write", "w", "", "also write the unsharded final index to PATH")
	flags.BoolVarP(&useBM25, "bm25", "b", false, "score with BM25 instead of tf-idf")
	flags.Float64Var(&bmK1, "bk1", spimi.DefaultK1, "BM25 k1, must be in (1,2); requires -b")
	flags.Float64Var(&bmB, "bb", spimi.DefaultB, "BM25 b, must be in (0,1); requires -b")
	flags.StringVarP(&queryPath, "queries", "q", "", "queries file, .xml or line-oriented (required)")
	flags.StringVar(&relevancePath, "qr", "", "relevance judgements file (required)")
	flags.BoolVar(&showStats, "stats", false, "print vocabulary diagnostics after indexing")

	for _, name := range []string{"file", "queries", "qr"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func validateFlags(cmd *cobra.Command, _ []string) error {
	for _, p := range []string{corpusPath, queryPath, relevancePath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s", spimi.ErrInputNotFound, p)
		}
	}

	flags := cmd.Flags()
	if !useBM25 && (flags.Changed("bk1") || flags.Changed("bb")) {
		return fmt.Errorf("%w: --bk1/--bb only apply with -b", spimi.ErrParamRange)
	}
	if useBM25 {
		if err := spimi.ValidateBM25Params(bmK1, bmB); err != nil {
			return err
		}
	}
	return nil
}

func run(*cobra.Command, []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mode := spimi.TFIDF
	if useBM25 {
		mode = spimi.BM25
	}

	var nonPosTok spimi.NonPositionalTokenizer = tokenize.Simple{}
	if improved {
		nonPosTok = tokenize.Improved{}
	}
	tokenizeQuery := func(text string) []string {
		tcs := nonPosTok.Tokenize(text)
		toks := make([]string, 0, len(tcs))
		for _, tc := range tcs {
			for i := 0; i < tc.Count; i++ {
				toks = append(toks, tc.Term)
			}
		}
		return toks
	}

	fsys, err := storage.NewOS()
	if err != nil {
		return err
	}

	indexDir := corpusPath + ".spimidx"
	if err := storage.RecreateDir(fsys, indexDir); err != nil {
		return err
	}
	shardDir := path.Join(indexDir, "shards")
	finalPath := path.Join(indexDir, "final-index.txt")

	log.Info("indexing started", "corpus", corpusPath, "mode", mode.String())
	start := time.Now()
	reader := corpus.NewCSVReader(fsys, corpusPath)
	builder, err := spimi.NewBuilder(fsys, indexDir, mode, reader, nonPosTok, spimi.DefaultMemLimit, spimi.DefaultBatchDocs)
	if err != nil {
		return err
	}
	stats, err := builder.Run()
	if err != nil {
		return err
	}
	log.Info("indexing complete", "docs", stats.NumReadDocs, "run_files", stats.RunFiles, "elapsed", time.Since(start))

	start = time.Now()
	merger := spimi.NewMerger(fsys, indexDir, spimi.DefaultFanIn)
	mergedPath, err := merger.Merge()
	if err != nil {
		return err
	}
	log.Info("merging complete", "elapsed", time.Since(start))

	start = time.Now()
	weighter := spimi.NewWeighter(fsys, mode, stats, bmK1, bmB)
	if err := weighter.Weight(mergedPath, finalPath); err != nil {
		return err
	}
	log.Info("weighting complete", "elapsed", time.Since(start))

	if writeFlat != "" {
		if err := copyFinalIndex(fsys, finalPath, writeFlat); err != nil {
			return err
		}
		log.Info("wrote flat index", "path", writeFlat)
	}

	start = time.Now()
	if err := storage.RecreateDir(fsys, shardDir); err != nil {
		return err
	}
	sharder := spimi.NewSharder(fsys, spimi.DefaultMemLimit)
	shardNames, err := sharder.Split(finalPath, shardDir)
	if err != nil {
		return err
	}
	log.Info("sharding complete", "shards", len(shardNames), "elapsed", time.Since(start))

	if showStats {
		if err := vocabularyReport(fsys, shardDir); err != nil {
			return err
		}
	}

	idxReader, err := spimi.NewReader(fsys, shardDir)
	if err != nil {
		return err
	}
	engine := spimi.NewEngine(idxReader, mode, spimi.DefaultProxWindow)

	queries, err := eval.ReadQueries(fsys, queryPath)
	if err != nil {
		return err
	}
	relevance, err := eval.ReadRelevance(fsys, relevancePath)
	if err != nil {
		return err
	}

	log.Info("evaluation started", "queries", len(queries))
	evaluator := eval.NewEvaluator(engine, tokenizeQuery)
	report, err := evaluator.Evaluate(queries, relevance)
	if err != nil {
		return err
	}
	printReport(mode, report)

	db, err := metricsdb.Open(corpusPath + ".metrics.db")
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.RecordRun(mode.String(), corpusPath, bmK1, bmB, report, time.Now().Unix()); err != nil {
		return err
	}

	return nil
}

// copyFinalIndex writes the unsharded final index to an independent
// destination path before the sharder deletes the source on success.
func copyFinalIndex(fsys storage.FS, finalPath, dest string) error {
	src, err := storage.Open(fsys, finalPath)
	if err != nil {
		return fmt.Errorf("spimidx: read %s: %w", finalPath, err)
	}
	defer src.Close()

	dst, closer, err := storage.Create(fsys, dest)
	if err != nil {
		return fmt.Errorf("spimidx: create %s: %w", dest, err)
	}
	defer closer.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("spimidx: write %s: %w", dest, err)
	}
	return dst.Flush()
}

func printReport(mode spimi.Mode, report eval.Report) {
	fmt.Printf("\nscoring model: %s\n", mode)
	fmt.Printf("%-6s %8s %8s %8s %8s %8s\n", "cutoff", "P", "R", "F", "AP", "NDCG")
	for _, k := range eval.Cutoffs {
		fmt.Printf("%-6d %8.4f %8.4f %8.4f %8.4f %8.4f\n",
			k, report.MeanPrecision[k], report.MeanRecall[k], report.MeanFMeasure[k], report.MeanAP[k], report.MeanNDCG[k])
	}
	fmt.Printf("median latency: %v\n", report.MedianLatency)
	fmt.Printf("throughput: %.2f queries/sec\n", report.Throughput)
}
