package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncListingCacheHit is a no-op.
func (n *NoopRecorder) IncListingCacheHit() {}

// IncListingCacheMiss is a no-op.
func (n *NoopRecorder) IncListingCacheMiss() {}

// ObserveUploadDuration is a no-op.
func (n *NoopRecorder) ObserveUploadDuration(duration time.Duration) {}

// IncFileUploaded is a no-op.
func (n *NoopRecorder) IncFileUploaded() {}

// IncFileRenamed is a no-op.
func (n *NoopRecorder) IncFileRenamed() {}

// IncFileShared is a no-op.
func (n *NoopRecorder) IncFileShared() {}

// IncFileDeleted is a no-op.
func (n *NoopRecorder) IncFileDeleted() {}

// IncOrphanEnqueued is a no-op.
func (n *NoopRecorder) IncOrphanEnqueued() {}

// IncOrphanSwept is a no-op.
func (n *NoopRecorder) IncOrphanSwept(status string) {}
