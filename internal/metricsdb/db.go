// Package metricsdb persists evaluation run metrics to SQLite so repeated
// CLI invocations accumulate a history instead of only printing to stdout.
package metricsdb

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/termshard/spimidx/pkg/spimi/eval"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	mode TEXT NOT NULL,
	corpus_path TEXT NOT NULL,
	k1 REAL,
	b REAL,
	mean_ndcg_10 REAL,
	mean_ndcg_20 REAL,
	mean_ndcg_50 REAL,
	median_latency_ms REAL,
	throughput REAL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS query_metrics (
	run_id INTEGER NOT NULL,
	query_id TEXT NOT NULL,
	cutoff INTEGER NOT NULL,
	precision REAL,
	recall REAL,
	f_measure REAL,
	average_precision REAL,
	ndcg REAL,
	PRIMARY KEY (run_id, query_id, cutoff)
);
`

// DB is the SQLite-backed metrics store.
type DB struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens (creating if absent) a metrics database at dsn. Use
// ":memory:" for a throwaway store.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("metricsdb: open %s: %w", dsn, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("metricsdb: create schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Close()
}

// RecordRun persists one evaluation run's aggregate and per-query metrics,
// returning the new run id.
func (d *DB) RecordRun(mode, corpusPath string, k1, b float64, report eval.Report, createdAt int64) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("metricsdb: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (mode, corpus_path, k1, b, mean_ndcg_10, mean_ndcg_20, mean_ndcg_50, median_latency_ms, throughput, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, mode, corpusPath, k1, b,
		report.MeanNDCG[10], report.MeanNDCG[20], report.MeanNDCG[50],
		float64(report.MedianLatency.Microseconds())/1000.0, report.Throughput, createdAt)
	if err != nil {
		return 0, fmt.Errorf("metricsdb: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("metricsdb: last insert id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO query_metrics (run_id, query_id, cutoff, precision, recall, f_measure, average_precision, ndcg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("metricsdb: prepare: %w", err)
	}
	defer stmt.Close()

	for queryID, qm := range report.PerQuery {
		for _, k := range eval.Cutoffs {
			if _, err := stmt.Exec(runID, queryID, k, qm.Precision[k], qm.Recall[k], qm.FMeasure[k], qm.AP[k], qm.NDCG[k]); err != nil {
				return 0, fmt.Errorf("metricsdb: insert query metrics: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("metricsdb: commit: %w", err)
	}
	return runID, nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID              int64
	Mode            string
	CorpusPath      string
	K1, B           float64
	MeanNDCG10      float64
	MeanNDCG20      float64
	MeanNDCG50      float64
	MedianLatencyMs float64
	Throughput      float64
	CreatedAt       int64
}

// ListRuns returns every recorded run, most recent first.
func (d *DB) ListRuns() ([]RunSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(`
		SELECT id, mode, corpus_path, k1, b, mean_ndcg_10, mean_ndcg_20, mean_ndcg_50, median_latency_ms, throughput, created_at
		FROM runs ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("metricsdb: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Mode, &r.CorpusPath, &r.K1, &r.B, &r.MeanNDCG10, &r.MeanNDCG20, &r.MeanNDCG50, &r.MedianLatencyMs, &r.Throughput, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("metricsdb: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
