package vamana

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    writeCounter  prometheus.Counter
//	    writeDuration prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordGraphWrite(nodes, neighbors int64, duration time.Duration, err error) {
//	    p.writeCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordGraphWrite is called after each graph finalize pass.
	// nodes and neighbors are the persisted totals, duration is the time
	// taken, err is nil if successful.
	RecordGraphWrite(nodes, neighbors int64, duration time.Duration, err error)

	// RecordPrune is called after each finalize pass that pruned at least
	// one neighbor list. before and after are summed list lengths across
	// all pruned nodes.
	RecordPrune(prunes, before, after int64)

	// RecordSnapshot is called after each snapshot save.
	RecordSnapshot(duration time.Duration, err error)

	// RecordArchive is called after each archive upload. bytes is the
	// total payload size across all parts.
	RecordArchive(parts int, bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGraphWrite(int64, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordPrune(int64, int64, int64)                     {}
func (NoopMetricsCollector) RecordSnapshot(time.Duration, error)                 {}
func (NoopMetricsCollector) RecordArchive(int, int64, time.Duration, error)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	WriteCount           atomic.Int64
	WriteErrors          atomic.Int64
	WriteTotalNanos      atomic.Int64
	NodesWritten         atomic.Int64
	NeighborsWritten     atomic.Int64
	PruneCount           atomic.Int64
	NeighborsBeforePrune atomic.Int64
	NeighborsAfterPrune  atomic.Int64
	SnapshotCount        atomic.Int64
	SnapshotErrors       atomic.Int64
	ArchiveCount         atomic.Int64
	ArchiveErrors        atomic.Int64
	ArchiveParts         atomic.Int64
	ArchiveBytes         atomic.Int64
}

// RecordGraphWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGraphWrite(nodes, neighbors int64, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.NodesWritten.Add(nodes)
	b.NeighborsWritten.Add(neighbors)
}

// RecordPrune implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPrune(prunes, before, after int64) {
	b.PruneCount.Add(prunes)
	b.NeighborsBeforePrune.Add(before)
	b.NeighborsAfterPrune.Add(after)
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(duration time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// RecordArchive implements MetricsCollector.
func (b *BasicMetricsCollector) RecordArchive(parts int, bytes int64, duration time.Duration, err error) {
	b.ArchiveCount.Add(1)
	if err != nil {
		b.ArchiveErrors.Add(1)
		return
	}
	b.ArchiveParts.Add(int64(parts))
	b.ArchiveBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		WriteCount:           b.WriteCount.Load(),
		WriteErrors:          b.WriteErrors.Load(),
		WriteAvgNanos:        b.getAvgWriteNanos(),
		NodesWritten:         b.NodesWritten.Load(),
		NeighborsWritten:     b.NeighborsWritten.Load(),
		PruneCount:           b.PruneCount.Load(),
		NeighborsBeforePrune: b.NeighborsBeforePrune.Load(),
		NeighborsAfterPrune:  b.NeighborsAfterPrune.Load(),
		SnapshotCount:        b.SnapshotCount.Load(),
		SnapshotErrors:       b.SnapshotErrors.Load(),
		ArchiveCount:         b.ArchiveCount.Load(),
		ArchiveErrors:        b.ArchiveErrors.Load(),
		ArchiveParts:         b.ArchiveParts.Load(),
		ArchiveBytes:         b.ArchiveBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgWriteNanos() int64 {
	count := b.WriteCount.Load()
	if count == 0 {
		return 0
	}
	return b.WriteTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	WriteCount           int64
	WriteErrors          int64
	WriteAvgNanos        int64
	NodesWritten         int64
	NeighborsWritten     int64
	PruneCount           int64
	NeighborsBeforePrune int64
	NeighborsAfterPrune  int64
	SnapshotCount        int64
	SnapshotErrors       int64
	ArchiveCount         int64
	ArchiveErrors        int64
	ArchiveParts         int64
	ArchiveBytes         int64
}
