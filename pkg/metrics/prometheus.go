package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	offersParsed    *prometheus.CounterVec
	parseMisses     *prometheus.CounterVec
	bucketConflicts prometheus.Counter
	bucketDrops     prometheus.Counter
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		offersParsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motorista_offers_parsed_total",
				Help: "Total offers successfully extracted from screen text",
			},
			[]string{"platform"},
		),
		parseMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motorista_parse_misses_total",
				Help: "Observations that held no usable offer",
			},
			[]string{"platform"},
		),
		bucketConflicts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "motorista_bucket_conflicts_total",
				Help: "Optimistic transaction retries on shared demand buckets",
			},
		),
		bucketDrops: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "motorista_bucket_drops_total",
				Help: "Bucket updates abandoned after exhausting retries",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motorista_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "motorista_last_offer_price",
				Help: "Last parsed offer price per platform",
			},
			[]string{"platform"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "motorista_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordOfferParsed records one successfully parsed offer.
func (r *Recorder) RecordOfferParsed(platform string) {
	r.offersParsed.WithLabelValues(platform).Inc()
}

// RecordParseMiss records an observation that produced no offer.
func (r *Recorder) RecordParseMiss(platform string) {
	r.parseMisses.WithLabelValues(platform).Inc()
}

// RecordBucketConflict records one optimistic retry.
func (r *Recorder) RecordBucketConflict() {
	r.bucketConflicts.Inc()
}

// RecordBucketDrop records one abandoned bucket update.
func (r *Recorder) RecordBucketDrop() {
	r.bucketDrops.Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last parsed price for a platform.
func (r *Recorder) RecordLastPrice(platform string, price float64) {
	r.lastPrice.WithLabelValues(platform).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
