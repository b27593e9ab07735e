// Package metrics holds the Prometheus instruments exported by conceptree.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "conceptree"

var (
	// scoresRecorded counts RecordScore calls by outcome.
	// Labels: outcome (mastered, below_threshold, already_mastered, not_available, error)
	scoresRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mastery",
		Name:      "scores_recorded_total",
		Help:      "Scoring events applied to learner mastery state",
	}, []string{"outcome"})

	// conceptsUnlocked counts locked to available transitions from propagation.
	conceptsUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mastery",
		Name:      "concepts_unlocked_total",
		Help:      "Concepts unlocked by mastery propagation",
	})

	// catalogConcepts tracks the current catalog size.
	catalogConcepts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "concepts",
		Help:      "Concepts in the shared catalog",
	})

	// catalogIssues counts integrity findings from validation passes.
	// Labels: kind (circular_dependency, dangling_prerequisite, ...)
	catalogIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "issues_total",
		Help:      "Catalog integrity issues found by validation",
	}, []string{"kind"})

	// difficultyFixes counts difficulties raised by the validator.
	difficultyFixes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "difficulty_fixes_total",
		Help:      "Concept difficulties raised to exceed their prerequisites",
	})

	// ingestConcepts counts concepts created by ingest.
	// Labels: origin (extracted, interpolated)
	ingestConcepts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "concepts_created_total",
		Help:      "Concepts created by the ingest pipeline",
	}, []string{"origin"})

	// llmLatency measures provider round trips.
	// Labels: purpose, status (success, error)
	llmLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "LLM request latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"purpose", "status"})

	// llmTokens counts tokens consumed.
	// Labels: purpose, direction (input, output)
	llmTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "tokens_total",
		Help:      "LLM tokens consumed",
	}, []string{"purpose", "direction"})

	// httpRequests counts API requests.
	// Labels: route, method, code
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served",
	}, []string{"route", "method", "code"})

	// httpLatency measures API request handling time.
	// Labels: route
	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// RecordScore counts one scoring event and the concepts it unlocked.
func RecordScore(outcome string, unlocked int) {
	scoresRecorded.WithLabelValues(outcome).Inc()
	if unlocked > 0 {
		conceptsUnlocked.Add(float64(unlocked))
	}
}

// SetCatalogSize records the current concept count.
func SetCatalogSize(n int) {
	catalogConcepts.Set(float64(n))
}

// RecordCatalogIssue counts one integrity finding.
func RecordCatalogIssue(kind string) {
	catalogIssues.WithLabelValues(kind).Inc()
}

// RecordDifficultyFixes counts raised difficulties.
func RecordDifficultyFixes(n int) {
	if n > 0 {
		difficultyFixes.Add(float64(n))
	}
}

// RecordIngest counts concepts created by one ingest run.
func RecordIngest(extracted, interpolated int) {
	ingestConcepts.WithLabelValues("extracted").Add(float64(extracted))
	ingestConcepts.WithLabelValues("interpolated").Add(float64(interpolated))
}

// ObserveLLMRequest records one provider call.
func ObserveLLMRequest(purpose string, success bool, latency time.Duration, inputTokens, outputTokens int) {
	status := "success"
	if !success {
		status = "error"
	}
	llmLatency.WithLabelValues(purpose, status).Observe(latency.Seconds())
	llmTokens.WithLabelValues(purpose, "input").Add(float64(inputTokens))
	llmTokens.WithLabelValues(purpose, "output").Add(float64(outputTokens))
}

// ObserveHTTPRequest records one served API request.
func ObserveHTTPRequest(route, method, code string, latency time.Duration) {
	httpRequests.WithLabelValues(route, method, code).Inc()
	httpLatency.WithLabelValues(route).Observe(latency.Seconds())
}
