package eval

import (
	"math"
	"sort"
	"time"

	"github.com/termshard/spimidx/pkg/spimi"
)

// Cutoffs are the retrieval depths metrics are computed at.
var Cutoffs = []int{10, 20, 50}

// QueryMetrics holds one query's metrics at every cutoff.
type QueryMetrics struct {
	Precision map[int]float64
	Recall    map[int]float64
	FMeasure  map[int]float64
	AP        map[int]float64
	NDCG      map[int]float64
	Latency   time.Duration
}

func newQueryMetrics() QueryMetrics {
	return QueryMetrics{
		Precision: map[int]float64{},
		Recall:    map[int]float64{},
		FMeasure:  map[int]float64{},
		AP:        map[int]float64{},
		NDCG:      map[int]float64{},
	}
}

// Report aggregates per-query metrics over a whole query set.
type Report struct {
	PerQuery map[string]QueryMetrics

	MeanPrecision map[int]float64
	MeanRecall    map[int]float64
	MeanFMeasure  map[int]float64
	MeanAP        map[int]float64
	MeanNDCG      map[int]float64

	MedianLatency time.Duration
	Throughput    float64 // queries per second
}

// Evaluator runs an Engine over a query set and scores the result against
// relevance judgements (component K).
type Evaluator struct {
	engine   *spimi.Engine
	tokenize func(string) []string
}

// NewEvaluator returns an Evaluator. tokenize reduces query text to the
// token sequence the engine expects (see spimi.Engine.Score).
func NewEvaluator(engine *spimi.Engine, tokenize func(string) []string) *Evaluator {
	return &Evaluator{engine: engine, tokenize: tokenize}
}

// Evaluate runs every query, measuring wall-clock latency around the
// engine call, and returns the per-query and aggregate metrics.
func (e *Evaluator) Evaluate(queries []Query, relevance map[string]Judgements) (Report, error) {
	per := make(map[string]QueryMetrics, len(queries))
	latencies := make([]time.Duration, 0, len(queries))

	for _, q := range queries {
		start := time.Now()
		tokens := e.tokenize(q.Text)
		result, err := e.engine.Score(tokens)
		latency := time.Since(start)
		if err != nil {
			return Report{}, err
		}

		qm := scoreQuery(result.Ranking, relevance[q.ID])
		qm.Latency = latency
		per[q.ID] = qm
		latencies = append(latencies, latency)
	}

	report := Report{
		PerQuery:      per,
		MeanPrecision: map[int]float64{},
		MeanRecall:    map[int]float64{},
		MeanFMeasure:  map[int]float64{},
		MeanAP:        map[int]float64{},
		MeanNDCG:      map[int]float64{},
	}

	n := float64(len(queries))
	if n > 0 {
		for _, k := range Cutoffs {
			var sp, sr, sf, sap, sn float64
			for _, qm := range per {
				sp += qm.Precision[k]
				sr += qm.Recall[k]
				sf += qm.FMeasure[k]
				sap += qm.AP[k]
				sn += qm.NDCG[k]
			}
			report.MeanPrecision[k] = sp / n
			report.MeanRecall[k] = sr / n
			report.MeanFMeasure[k] = sf / n
			report.MeanAP[k] = sap / n
			report.MeanNDCG[k] = sn / n
		}
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	report.MedianLatency = median(latencies)

	var sumLatency time.Duration
	for _, l := range latencies {
		sumLatency += l
	}
	if sumLatency > 0 {
		report.Throughput = n / sumLatency.Seconds()
	}

	return report, nil
}

// scoreQuery computes one query's metrics at every cutoff.
// Precision, recall, F-measure, AP, and NDCG are all left at zero for a
// cutoff where nothing relevant was retrieved, matching the reference
// behavior of leaving the whole metric tuple at zero in that case.
func scoreQuery(ranking []spimi.ScoredDoc, rel Judgements) QueryMetrics {
	qm := newQueryMetrics()
	relevant := rel.Relevant()

	for _, k := range Cutoffs {
		topK := ranking
		if len(topK) > k {
			topK = topK[:k]
		}

		inter := 0
		for _, sd := range topK {
			if relevant[sd.Doc] {
				inter++
			}
		}
		if inter == 0 {
			continue
		}

		p := float64(inter) / float64(k)
		r := 0.0
		if len(relevant) > 0 {
			r = float64(inter) / float64(len(relevant))
		}
		f := 0.0
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		qm.Precision[k] = p
		qm.Recall[k] = r
		qm.FMeasure[k] = f

		ap := 0.0
		relSoFar := 0
		for i, sd := range topK {
			if relevant[sd.Doc] {
				relSoFar++
				ap += float64(relSoFar) / float64(i+1)
			}
		}
		if len(relevant) > 0 {
			ap /= float64(len(relevant))
		}
		qm.AP[k] = ap

		dcg := 0.0
		for i, sd := range topK {
			g := float64(rel.Grade(sd.Doc))
			if i == 0 {
				dcg = g
			} else {
				dcg += g / math.Log2(float64(i+1))
			}
		}
		ideal := rel.PerfectDCG(k)
		ndcg := 0.0
		if ideal != 0 {
			ndcg = dcg / ideal
		}
		qm.NDCG[k] = ndcg
	}

	return qm
}

func median(sorted []time.Duration) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
