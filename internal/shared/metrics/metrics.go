package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	ingestionSubmittedTotal atomic.Uint64
	ingestionCompletedTotal atomic.Uint64
	ingestionFailedTotal    atomic.Uint64

	documentsUploadedTotal atomic.Uint64
	documentsDeletedTotal  atomic.Uint64
	fileCleanupFailedTotal atomic.Uint64

	ingestionDuration = newHistogram([]float64{1000, 2000, 3000, 4000, 5000, 10000})
)

// IncIngestionSubmitted increments the submitted counter.
func IncIngestionSubmitted() {
	ingestionSubmittedTotal.Add(1)
}

// IncIngestionCompleted increments the completed counter.
func IncIngestionCompleted() {
	ingestionCompletedTotal.Add(1)
}

// IncIngestionFailed increments the failed counter.
func IncIngestionFailed() {
	ingestionFailedTotal.Add(1)
}

// IncDocumentsUploaded increments the uploaded documents counter.
func IncDocumentsUploaded() {
	documentsUploadedTotal.Add(1)
}

// IncDocumentsDeleted increments the deleted documents counter.
func IncDocumentsDeleted() {
	documentsDeletedTotal.Add(1)
}

// IncFileCleanupFailed counts backing-file deletions that failed and were skipped.
func IncFileCleanupFailed() {
	fileCleanupFailedTotal.Add(1)
}

// ObserveIngestionDurationMs records the time from submit to terminal state.
func ObserveIngestionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	ingestionDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "ingestion_submitted_total", "Total ingestions submitted", ingestionSubmittedTotal.Load())
	writeCounter(&buf, "ingestion_completed_total", "Total ingestions completed", ingestionCompletedTotal.Load())
	writeCounter(&buf, "ingestion_failed_total", "Total ingestions failed", ingestionFailedTotal.Load())
	writeCounter(&buf, "documents_uploaded_total", "Total documents uploaded", documentsUploadedTotal.Load())
	writeCounter(&buf, "documents_deleted_total", "Total documents deleted", documentsDeletedTotal.Load())
	writeCounter(&buf, "document_file_cleanup_failed_total", "Backing file deletions that failed", fileCleanupFailedTotal.Load())
	writeHistogram(&buf, "ingestion_duration_ms", "Ingestion duration in milliseconds", ingestionDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe places value in the first bucket whose bound covers it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
