package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"inspectbot/internal/models"
)

var (
	lookupOutcomeDesc = prometheus.NewDesc(
		"inspectbot_lookup_outcomes_total",
		"Total food type lookups by domain and outcome",
		[]string{"domain", "outcome"},
		nil,
	)

	crawlRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inspectbot_crawl_runs_total",
		Help: "Acquisition passes by final status",
	}, []string{"status"})

	crawlRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inspectbot_crawl_records_total",
		Help: "Records written by the acquisition pipeline by kind",
	}, []string{"kind"})

	crawlDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspectbot_crawl_duration_seconds",
		Help:    "Wall time of a full acquisition pass",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
)

// OutcomeStore is the slice of the lookup store that persists outcome counters.
type OutcomeStore interface {
	IncrementLookupOutcome(ctx context.Context, domain models.Domain, outcome string) error
	GetAllLookupOutcomes(ctx context.Context) ([]models.LookupOutcome, error)
}

// LookupCollector is a custom Prometheus collector that reads lookup outcome
// counts from the store on each scrape.
type LookupCollector struct {
	store  OutcomeStore
	logger *zap.Logger
}

// NewLookupCollector creates a collector over store.
func NewLookupCollector(store OutcomeStore, logger *zap.Logger) *LookupCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LookupCollector{store: store, logger: logger}
}

// Describe sends the metric descriptor to the channel.
func (c *LookupCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- lookupOutcomeDesc
}

// Collect queries the store for all outcome rows and emits them as counters.
func (c *LookupCollector) Collect(ch chan<- prometheus.Metric) {
	outcomes, err := c.store.GetAllLookupOutcomes(context.Background())
	if err != nil {
		c.logger.Error("failed to collect lookup outcome metrics", zap.Error(err))
		return
	}
	for _, o := range outcomes {
		ch <- prometheus.MustNewConstMetric(
			lookupOutcomeDesc,
			prometheus.CounterValue,
			float64(o.Count),
			string(o.Domain),
			o.Outcome,
		)
	}
}

// Recorder provides async lookup outcome recording.
type Recorder struct {
	store  OutcomeStore
	logger *zap.Logger
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Init registers the collectors and initializes the recorder.
// Must be called once at startup.
func Init(store OutcomeStore, logger *zap.Logger) {
	recorderOnce.Do(func() {
		c := NewLookupCollector(store, logger)
		recorder = &Recorder{store: store, logger: c.logger}
		prometheus.MustRegister(c, crawlRuns, crawlRecords, crawlDuration)
	})
}

// RecordLookup asynchronously records a lookup outcome. It is a no-op before Init.
func RecordLookup(domain models.Domain, outcome string) {
	if recorder == nil {
		return
	}
	go func() {
		if err := recorder.store.IncrementLookupOutcome(context.Background(), domain, outcome); err != nil {
			recorder.logger.Error("failed to record lookup outcome",
				zap.String("domain", string(domain)), zap.String("outcome", outcome), zap.Error(err))
		}
	}()
}

// ObserveCrawl records a finished acquisition pass.
func ObserveCrawl(status string, items, cycles, info int, elapsed time.Duration) {
	crawlRuns.WithLabelValues(status).Inc()
	crawlRecords.WithLabelValues("items").Add(float64(items))
	crawlRecords.WithLabelValues("cycles").Add(float64(cycles))
	crawlRecords.WithLabelValues("info").Add(float64(info))
	crawlDuration.Observe(elapsed.Seconds())
}
