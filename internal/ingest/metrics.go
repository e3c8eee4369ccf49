package ingest

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestMetricsOnce     sync.Once
	ingestChunksTotal     *prometheus.CounterVec
	ingestChunksSkipped   *prometheus.CounterVec
	ingestChunksFailed    *prometheus.CounterVec
	ingestPercentComplete *prometheus.GaugeVec
)

func initIngestMetrics() {
	ingestMetricsOnce.Do(func() {
		ingestChunksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sovereign_ingest_chunks_completed_total",
				Help: "Chunks embedded and inserted per book.",
			},
			[]string{"book_id"},
		)
		ingestChunksSkipped = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sovereign_ingest_chunks_skipped_total",
				Help: "Chunks skipped as already-present duplicates per book.",
			},
			[]string{"book_id"},
		)
		ingestChunksFailed = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sovereign_ingest_chunks_failed_total",
				Help: "Chunks that failed embedding or insertion per book.",
			},
			[]string{"book_id"},
		)
		ingestPercentComplete = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sovereign_ingest_percent_complete",
				Help: "Advisory percent-complete of the most recent snapshot per book.",
			},
			[]string{"book_id"},
		)
	})
}

// Metrics is an advisory progress tracker for a single ingestion run.
// Nothing in the pipeline's correctness depends on it — spec.md §4.1 is
// explicit that ETA and rate are advisory only, never gating. Also feeds
// the sovereign_ingest_* prometheus counters/gauge so a running ingest can
// be scraped, mirroring the teacher's promauto.NewCounterVec convention in
// internal/services/concurrency_metrics.go.
type Metrics struct {
	mu        sync.Mutex
	started   time.Time
	bookID    string
	total     int
	completed int
	skipped   int
	failed    int
}

// NewMetrics starts a tracker for a run of total known chunks. now is
// passed in rather than read from the clock, so callers stay deterministic
// under test.
func NewMetrics(bookID string, total int, now time.Time) *Metrics {
	initIngestMetrics()
	return &Metrics{started: now, bookID: bookID, total: total}
}

func (m *Metrics) RecordCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
	ingestChunksTotal.WithLabelValues(m.bookID).Inc()
}

func (m *Metrics) RecordSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped++
	ingestChunksSkipped.WithLabelValues(m.bookID).Inc()
}

func (m *Metrics) RecordFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
	ingestChunksFailed.WithLabelValues(m.bookID).Inc()
}

// Snapshot is a point-in-time read of a Metrics tracker.
type Snapshot struct {
	Total          int
	Completed      int
	Skipped        int
	Failed         int
	RatePerSecond  float64
	ETASeconds     float64
	PercentComplete float64
}

// Snapshot computes the current advisory progress figures as of now.
func (m *Metrics) Snapshot(now time.Time) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	done := m.completed + m.skipped
	elapsed := now.Sub(m.started).Seconds()

	var rate float64
	if elapsed > 0 {
		rate = float64(m.completed) / elapsed
	}

	var eta float64
	remaining := m.total - done
	if rate > 0 && remaining > 0 {
		eta = float64(remaining) / rate
	}

	var percent float64
	if m.total > 0 {
		percent = 100 * float64(done) / float64(m.total)
	}

	ingestPercentComplete.WithLabelValues(m.bookID).Set(percent)

	return Snapshot{
		Total:           m.total,
		Completed:       m.completed,
		Skipped:         m.skipped,
		Failed:          m.failed,
		RatePerSecond:   rate,
		ETASeconds:      eta,
		PercentComplete: percent,
	}
}

// WriteFile persists s to path as the advisory JSON snapshot named in
// spec.md §6 (state/ingest_metrics.json). Best-effort: a failure to write
// the advisory file never fails the ingestion run that produced it.
func (s Snapshot) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
