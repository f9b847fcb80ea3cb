package metrics

import (
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected per-bucket counts: %v", snap.counts)
	}
	if snap.sum != 555 {
		t.Fatalf("expected sum 555, got %v", snap.sum)
	}
}

func TestRenderIncludesIngestionCounters(t *testing.T) {
	IncIngestionSubmitted()
	IncIngestionCompleted()
	ObserveIngestionDurationMs(2500)

	out := Render()
	for _, want := range []string{
		"# TYPE ingestion_submitted_total counter",
		"ingestion_completed_total ",
		`ingestion_duration_ms_bucket{le="3000"}`,
		`ingestion_duration_ms_bucket{le="+Inf"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected render output to contain %q\n%s", want, out)
		}
	}
}
