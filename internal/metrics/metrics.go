// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Listing cache metrics
	IncListingCacheHit()
	IncListingCacheMiss()

	// File lifecycle metrics
	ObserveUploadDuration(duration time.Duration)
	IncFileUploaded()
	IncFileRenamed()
	IncFileShared()
	IncFileDeleted()

	// Orphan blob sweeper metrics
	IncOrphanEnqueued()
	IncOrphanSwept(status string) // status: "success" or "failed"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
