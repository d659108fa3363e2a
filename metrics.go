package corrfuse

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordUpdate is called after each subject update or model merge.
	// locations is the size of the merged model, duration the total time
	// taken, err is nil if successful.
	RecordUpdate(locations int, duration time.Duration, err error)

	// RecordRetarget is called after each location retarget. blurred
	// reports whether the spatial blur ran or a pure reindex sufficed.
	RecordRetarget(from, to int, blurred bool, duration time.Duration, err error)

	// RecordPredict is called after each reconstruction.
	RecordPredict(known, total int, duration time.Duration, err error)

	// RecordSnapshot is called after each snapshot save or load.
	RecordSnapshot(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpdate(int, time.Duration, error)               {}
func (NoopMetricsCollector) RecordRetarget(int, int, bool, time.Duration, error)  {}
func (NoopMetricsCollector) RecordPredict(int, int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordSnapshot(int64, time.Duration, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UpdateCount        atomic.Int64
	UpdateErrors       atomic.Int64
	UpdateTotalNanos   atomic.Int64
	RetargetCount      atomic.Int64
	RetargetErrors     atomic.Int64
	RetargetBlurred    atomic.Int64
	PredictCount       atomic.Int64
	PredictErrors      atomic.Int64
	PredictTotalNanos  atomic.Int64
	SnapshotCount      atomic.Int64
	SnapshotErrors     atomic.Int64
	SnapshotTotalBytes atomic.Int64
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(locations int, duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	b.UpdateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordRetarget implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRetarget(from, to int, blurred bool, duration time.Duration, err error) {
	b.RetargetCount.Add(1)
	if blurred {
		b.RetargetBlurred.Add(1)
	}
	if err != nil {
		b.RetargetErrors.Add(1)
	}
}

// RecordPredict implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPredict(known, total int, duration time.Duration, err error) {
	b.PredictCount.Add(1)
	b.PredictTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PredictErrors.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(bytes int64, duration time.Duration, err error) {
	b.SnapshotCount.Add(1)
	b.SnapshotTotalBytes.Add(bytes)
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpdateCount:        b.UpdateCount.Load(),
		UpdateErrors:       b.UpdateErrors.Load(),
		UpdateAvgNanos:     avg(b.UpdateTotalNanos.Load(), b.UpdateCount.Load()),
		RetargetCount:      b.RetargetCount.Load(),
		RetargetErrors:     b.RetargetErrors.Load(),
		RetargetBlurred:    b.RetargetBlurred.Load(),
		PredictCount:       b.PredictCount.Load(),
		PredictErrors:      b.PredictErrors.Load(),
		PredictAvgNanos:    avg(b.PredictTotalNanos.Load(), b.PredictCount.Load()),
		SnapshotCount:      b.SnapshotCount.Load(),
		SnapshotErrors:     b.SnapshotErrors.Load(),
		SnapshotTotalBytes: b.SnapshotTotalBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UpdateCount        int64
	UpdateErrors       int64
	UpdateAvgNanos     int64
	RetargetCount      int64
	RetargetErrors     int64
	RetargetBlurred    int64
	PredictCount       int64
	PredictErrors      int64
	PredictAvgNanos    int64
	SnapshotCount      int64
	SnapshotErrors     int64
	SnapshotTotalBytes int64
}
