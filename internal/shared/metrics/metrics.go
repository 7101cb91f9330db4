package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	objectsUploadedTotal     atomic.Uint64
	objectsUploadFailedTotal atomic.Uint64
	orphanedObjectsTotal     atomic.Uint64
	unauthorizedTotal        atomic.Uint64
	rateLimitedTotal         atomic.Uint64

	functionCalls   = newLabeledCounter()
	requestDuration = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000})
)

// IncObjectUploaded counts an object stored and bound to its owner.
func IncObjectUploaded() { objectsUploadedTotal.Add(1) }

// IncObjectUploadFailed counts an upload that did not complete.
func IncObjectUploadFailed() { objectsUploadFailedTotal.Add(1) }

// IncOrphanedObject counts an object that could not be removed and is now unreferenced.
func IncOrphanedObject() { orphanedObjectsTotal.Add(1) }

// IncUnauthorized counts a request rejected at token resolution.
func IncUnauthorized() { unauthorizedTotal.Add(1) }

// IncRateLimited counts a request turned away with 429.
func IncRateLimited() { rateLimitedTotal.Add(1) }

// ObserveFunctionCall records one finished request. route is the matched gin
// route; unmatched requests are folded into "unmatched".
func ObserveFunctionCall(route string, status int, durationMs float64) {
	name := "unmatched"
	if route != "" {
		name = path.Base(route)
	}
	functionCalls.Inc(name, statusClass(status))
	if durationMs < 0 {
		durationMs = 0
	}
	requestDuration.Observe(durationMs)
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
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
	writeCounter(&buf, "objects_uploaded_total", "Total objects uploaded and bound", objectsUploadedTotal.Load())
	writeCounter(&buf, "objects_upload_failed_total", "Total uploads that failed", objectsUploadFailedTotal.Load())
	writeCounter(&buf, "orphaned_objects_total", "Total objects left behind after a failed removal", orphanedObjectsTotal.Load())
	writeCounter(&buf, "unauthorized_requests_total", "Total requests rejected for a missing or invalid token", unauthorizedTotal.Load())
	writeCounter(&buf, "rate_limited_requests_total", "Total requests rejected by the rate limiter", rateLimitedTotal.Load())
	functionCalls.write(&buf, "function_calls_total", "Function calls by name and status class")
	writeHistogram(&buf, "request_duration_ms", "Request duration in milliseconds", requestDuration.Snapshot())
	return buf.String()
}

type callKey struct {
	function string
	class    string
}

type labeledCounter struct {
	mu     sync.Mutex
	counts map[callKey]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{counts: make(map[callKey]uint64)}
}

func (l *labeledCounter) Inc(function, class string) {
	l.mu.Lock()
	l.counts[callKey{function, class}]++
	l.mu.Unlock()
}

func (l *labeledCounter) Value(function, class string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[callKey{function, class}]
}

func (l *labeledCounter) write(buf *bytes.Buffer, name, help string) {
	l.mu.Lock()
	keys := make([]callKey, 0, len(l.counts))
	for k := range l.counts {
		keys = append(keys, k)
	}
	values := make(map[callKey]uint64, len(keys))
	for _, k := range keys {
		values[k] = l.counts[k]
	}
	l.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].function != keys[j].function {
			return keys[i].function < keys[j].function
		}
		return keys[i].class < keys[j].class
	})
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{function=%q,status=%q} %d\n", name, k.function, k.class, values[k])
	}
}

type histogram struct {
	mu     sync.Mutex
	bounds []float64
	counts []uint64
	sum    float64
	total  uint64
}

type histogramSnapshot struct {
	bounds []float64
	counts []uint64
	sum    float64
	total  uint64
}

func newHistogram(bounds []float64) *histogram {
	return &histogram{bounds: bounds, counts: make([]uint64, len(bounds))}
}

// Observe counts value in the first bucket whose bound holds it. Values above
// the last bound only show up in +Inf.
func (h *histogram) Observe(value float64) {
	i := sort.SearchFloat64s(h.bounds, value)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total++
	h.sum += value
	if i < len(h.counts) {
		h.counts[i]++
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		bounds: append([]float64(nil), h.bounds...),
		counts: append([]uint64(nil), h.counts...),
		sum:    h.sum,
		total:  h.total,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s histogram\n", name, help, name)
	var cumulative uint64
	for i, bound := range snap.bounds {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", name, strconv.FormatFloat(bound, 'f', -1, 64), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.total)
	fmt.Fprintf(buf, "%s_sum %s\n", name, strconv.FormatFloat(snap.sum, 'f', -1, 64))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.total)
}
