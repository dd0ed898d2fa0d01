package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ListingCacheHits      uint64
	ListingCacheMisses    uint64
	UploadDurationCount   uint64
	UploadDurationTotalNs int64
	FilesUploaded         uint64
	FilesRenamed          uint64
	FilesShared           uint64
	FilesDeleted          uint64
	OrphansEnqueued       uint64
	OrphansSweptOK        uint64
	OrphansSweptFailed    uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	listingCacheHits      uint64
	listingCacheMisses    uint64
	uploadDurationCount   uint64
	uploadDurationTotalNs int64
	filesUploaded         uint64
	filesRenamed          uint64
	filesShared           uint64
	filesDeleted          uint64
	orphansEnqueued       uint64
	orphansSweptOK        uint64
	orphansSweptFailed    uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ListingCacheHits:      atomic.LoadUint64(&m.listingCacheHits),
		ListingCacheMisses:    atomic.LoadUint64(&m.listingCacheMisses),
		UploadDurationCount:   atomic.LoadUint64(&m.uploadDurationCount),
		UploadDurationTotalNs: atomic.LoadInt64(&m.uploadDurationTotalNs),
		FilesUploaded:         atomic.LoadUint64(&m.filesUploaded),
		FilesRenamed:          atomic.LoadUint64(&m.filesRenamed),
		FilesShared:           atomic.LoadUint64(&m.filesShared),
		FilesDeleted:          atomic.LoadUint64(&m.filesDeleted),
		OrphansEnqueued:       atomic.LoadUint64(&m.orphansEnqueued),
		OrphansSweptOK:        atomic.LoadUint64(&m.orphansSweptOK),
		OrphansSweptFailed:    atomic.LoadUint64(&m.orphansSweptFailed),
	}
}

// IncListingCacheHit increments the listing cache hit counter.
func (m *InMemoryRecorder) IncListingCacheHit() {
	atomic.AddUint64(&m.listingCacheHits, 1)
}

// IncListingCacheMiss increments the listing cache miss counter.
func (m *InMemoryRecorder) IncListingCacheMiss() {
	atomic.AddUint64(&m.listingCacheMisses, 1)
}

// ObserveUploadDuration records the wall time of a completed upload.
func (m *InMemoryRecorder) ObserveUploadDuration(duration time.Duration) {
	atomic.AddUint64(&m.uploadDurationCount, 1)
	atomic.AddInt64(&m.uploadDurationTotalNs, duration.Nanoseconds())
}

// IncFileUploaded increments the uploaded file counter.
func (m *InMemoryRecorder) IncFileUploaded() {
	atomic.AddUint64(&m.filesUploaded, 1)
}

// IncFileRenamed increments the renamed file counter.
func (m *InMemoryRecorder) IncFileRenamed() {
	atomic.AddUint64(&m.filesRenamed, 1)
}

// IncFileShared increments the shared file counter.
func (m *InMemoryRecorder) IncFileShared() {
	atomic.AddUint64(&m.filesShared, 1)
}

// IncFileDeleted increments the deleted file counter.
func (m *InMemoryRecorder) IncFileDeleted() {
	atomic.AddUint64(&m.filesDeleted, 1)
}

// IncOrphanEnqueued increments the orphan queue counter.
func (m *InMemoryRecorder) IncOrphanEnqueued() {
	atomic.AddUint64(&m.orphansEnqueued, 1)
}

// IncOrphanSwept increments the sweep counter for the given status.
func (m *InMemoryRecorder) IncOrphanSwept(status string) {
	if status == "success" {
		atomic.AddUint64(&m.orphansSweptOK, 1)
		return
	}
	atomic.AddUint64(&m.orphansSweptFailed, 1)
}
