package handler

import (
	"fmt"
	"net/http"

	"github.com/stashd/stashd/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "stashd_listing_cache_hits_total %d\n", snap.ListingCacheHits)
	writeMetric(w, "stashd_listing_cache_misses_total %d\n", snap.ListingCacheMisses)

	writeMetric(w, "stashd_upload_duration_seconds_count %d\n", snap.UploadDurationCount)
	writeMetric(w, "stashd_upload_duration_seconds_sum %.6f\n", float64(snap.UploadDurationTotalNs)/1e9)

	writeMetric(w, "stashd_files_uploaded_total %d\n", snap.FilesUploaded)
	writeMetric(w, "stashd_files_renamed_total %d\n", snap.FilesRenamed)
	writeMetric(w, "stashd_files_shared_total %d\n", snap.FilesShared)
	writeMetric(w, "stashd_files_deleted_total %d\n", snap.FilesDeleted)

	writeMetric(w, "stashd_orphans_enqueued_total %d\n", snap.OrphansEnqueued)
	writeMetric(w, "stashd_orphans_swept_total{status=\"success\"} %d\n", snap.OrphansSweptOK)
	writeMetric(w, "stashd_orphans_swept_total{status=\"failed\"} %d\n", snap.OrphansSweptFailed)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
