// Package metrics exposes Prometheus collectors for the search and merge stages.
//
// Collectors are registered on a caller-supplied Registerer so that independent
// pipelines (and tests) never share process-wide metric state. A nil *Collectors is
// valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "motifmine"

type Collectors struct {
	generations        prometheus.Counter
	generationDuration prometheus.Histogram
	improvements       prometheus.Counter
	bestScore          prometheus.Gauge
	rowsSearched       *prometheus.CounterVec
	populationSize     prometheus.Gauge

	mergeRounds    prometheus.Counter
	merges         *prometheus.CounterVec
	vocabularySize prometheus.Gauge
	missedChars    prometheus.Gauge
}

// New builds collectors registered on reg. A nil reg yields unregistered collectors.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		generations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "generations_total",
			Help:      "Generations evaluated by the genetic search",
		}),
		generationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "generation_duration_seconds",
			Help:      "Wall time spent scoring and breeding one generation",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		improvements: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "improvements_total",
			Help:      "Generations that improved the best coverage score",
		}),
		bestScore: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "best_score",
			Help:      "Best coverage score of the row currently being searched",
		}),
		rowsSearched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "rows_total",
			Help:      "Rows searched, by outcome",
		}, []string{"outcome"}),
		populationSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "population_size",
			Help:      "Size of the most recently bred population",
		}),
		mergeRounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "rounds_total",
			Help:      "Tokenize-and-merge rounds executed",
		}),
		merges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "merges_total",
			Help:      "Vocabulary merges, by policy",
		}, []string{"kind"}),
		vocabularySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "vocabulary_size",
			Help:      "Current node vocabulary size",
		}),
		missedChars: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "missed_chars",
			Help:      "Characters skipped by the last greedy tokenization",
		}),
	}
}

func (c *Collectors) ObserveGeneration(elapsed time.Duration, populationSize int) {
	if c == nil {
		return
	}
	c.generations.Inc()
	c.generationDuration.Observe(elapsed.Seconds())
	c.populationSize.Set(float64(populationSize))
}

func (c *Collectors) ObserveImprovement(score float64) {
	if c == nil {
		return
	}
	c.improvements.Inc()
	c.bestScore.Set(score)
}

// ObserveRow records a finished row search; outcome is "converged" or "max_iter".
func (c *Collectors) ObserveRow(outcome string) {
	if c == nil {
		return
	}
	c.rowsSearched.WithLabelValues(outcome).Inc()
}

func (c *Collectors) ObserveMergeRound(vocabularySize, missed int) {
	if c == nil {
		return
	}
	c.mergeRounds.Inc()
	c.vocabularySize.Set(float64(vocabularySize))
	c.missedChars.Set(float64(missed))
}

func (c *Collectors) ObserveMerge(kind string) {
	if c == nil {
		return
	}
	c.merges.WithLabelValues(kind).Inc()
}

// WriteTextfile dumps every metric gathered by g in the text exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
