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
	receiptsIssuedTotal     atomic.Uint64
	requestsRejectedTotal   atomic.Uint64
	extractionDegradedTotal atomic.Uint64
	wipeFailedTotal         atomic.Uint64
	keyNotConfiguredTotal   atomic.Uint64
	panicsRecoveredTotal    atomic.Uint64

	pipelineDuration = newHistogram([]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
)

// IncReceiptsIssued increments the signed receipts counter.
func IncReceiptsIssued() {
	receiptsIssuedTotal.Add(1)
}

// IncRequestsRejected increments the rejected input counter.
func IncRequestsRejected() {
	requestsRejectedTotal.Add(1)
}

// IncExtractionDegraded increments the degraded extraction counter.
func IncExtractionDegraded() {
	extractionDegradedTotal.Add(1)
}

// IncWipeFailed increments the wipe failure counter.
func IncWipeFailed() {
	wipeFailedTotal.Add(1)
}

// IncKeyNotConfigured increments the missing key counter.
func IncKeyNotConfigured() {
	keyNotConfiguredTotal.Add(1)
}

// IncPanicsRecovered increments the recovered panic counter.
func IncPanicsRecovered() {
	panicsRecoveredTotal.Add(1)
}

// ObservePipelineDurationMs records a pipeline duration in milliseconds.
func ObservePipelineDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	pipelineDuration.Observe(value)
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
	writeCounter(&buf, "receipts_issued_total", "Total signed deletion receipts issued", receiptsIssuedTotal.Load())
	writeCounter(&buf, "requests_rejected_total", "Total uploads rejected before processing", requestsRejectedTotal.Load())
	writeCounter(&buf, "extraction_degraded_total", "Total extractions that fell back to empty text", extractionDegradedTotal.Load())
	writeCounter(&buf, "wipe_failed_total", "Total documents whose wipe could not be completed", wipeFailedTotal.Load())
	writeCounter(&buf, "key_not_configured_total", "Total requests failed for missing signing keys", keyNotConfiguredTotal.Load())
	writeCounter(&buf, "panics_recovered_total", "Total handler panics recovered", panicsRecoveredTotal.Load())
	writeHistogram(&buf, "pipeline_duration_ms", "Ingest to signed receipt duration in milliseconds", pipelineDuration.Snapshot())
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

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	// Per-bucket counts; writeHistogram accumulates them.
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
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
