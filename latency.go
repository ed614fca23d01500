package smdbx

import (
	"time"

	mdbx "github.com/erigontech/mdbx-go/mdbx"
)

// CommitLatency breaks down the time a commit spent in each phase. All
// fields are zero unless the engine collected timings for the commit.
type CommitLatency struct {
	// Preparation covers committing child transactions and destroying
	// the transaction's cursors.
	Preparation time.Duration

	// GCWallClock covers free-list handling and update.
	GCWallClock time.Duration

	// GCCpuTime is the CPU time spent on free-list handling.
	GCCpuTime time.Duration

	// Audit covers the internal audit, when enabled.
	Audit time.Duration

	// Write covers writing dirty pages to the filesystem.
	Write time.Duration

	// Sync covers flushing written pages to durable storage.
	Sync time.Duration

	// Ending covers releasing the transaction's resources.
	Ending time.Duration

	// Whole is the total duration of the commit.
	Whole time.Duration
}

// commitLatencyFrom converts the engine binding's latency report.
func commitLatencyFrom(l mdbx.CommitLatency) CommitLatency {
	return CommitLatency{
		Preparation: l.Preparation,
		GCWallClock: l.GCWallClock,
		GCCpuTime:   l.GCCpuTime,
		Audit:       l.Audit,
		Write:       l.Write,
		Sync:        l.Sync,
		Ending:      l.Ending,
		Whole:       l.Whole,
	}
}
