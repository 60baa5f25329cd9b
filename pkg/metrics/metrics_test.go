package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterIdentityAndValue(t *testing.T) {
	reg := New()
	c := reg.Counter("arcana_interpret_total", "requests")
	c.Inc()
	c.Inc()

	if got := reg.Counter("arcana_interpret_total", "").Value(); got != 2 {
		t.Fatalf("counter = %d, want 2", got)
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("arcana_interpret_total", "theme", "love", "outcome", "ok")
	want := `arcana_interpret_total{theme="love",outcome="ok"}`
	if got != want {
		t.Fatalf("WithLabels = %q, want %q", got, want)
	}
	if WithLabels("bare") != "bare" {
		t.Fatal("no pairs must return the bare name")
	}
	if WithLabels("odd", "theme") != "odd" {
		t.Fatal("odd pair count must return the bare name")
	}
}

func TestRenderCounterFamilies(t *testing.T) {
	reg := New()
	reg.Counter(WithLabels("arcana_interpret_total", "theme", "love"), "requests").Inc()
	reg.Counter(WithLabels("arcana_interpret_total", "theme", "money"), "").Inc()

	out := reg.Render()
	if !strings.Contains(out, "# HELP arcana_interpret_total requests") {
		t.Fatalf("missing help: %s", out)
	}
	if !strings.Contains(out, "# TYPE arcana_interpret_total counter") {
		t.Fatalf("missing type: %s", out)
	}
	if !strings.Contains(out, `arcana_interpret_total{theme="love"} 1`) ||
		!strings.Contains(out, `arcana_interpret_total{theme="money"} 1`) {
		t.Fatalf("missing series: %s", out)
	}
	if strings.Count(out, "# TYPE arcana_interpret_total") != 1 {
		t.Fatal("label variants must share one family header")
	}
}

func TestHistogramCumulativeBuckets(t *testing.T) {
	reg := New()
	h := reg.Histogram("arcana_interpret_duration_seconds", "latency", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(0.7)
	h.Observe(20) // above the last bound, counted only in +Inf

	out := reg.Render()
	for _, line := range []string{
		`arcana_interpret_duration_seconds_bucket{le="0.1"} 1`,
		`arcana_interpret_duration_seconds_bucket{le="1"} 3`,
		`arcana_interpret_duration_seconds_bucket{le="10"} 3`,
		`arcana_interpret_duration_seconds_bucket{le="+Inf"} 4`,
		`arcana_interpret_duration_seconds_count 4`,
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("missing %q in:\n%s", line, out)
		}
	}
}

func TestHistogramDefaultBuckets(t *testing.T) {
	reg := New()
	h := reg.Histogram("arcana_llm_seconds", "", nil)
	h.Observe(0.3)
	if !strings.Contains(reg.Render(), `le="0.5"`) {
		t.Fatal("nil buckets must fall back to DefaultBuckets")
	}
}

func TestHandlerServesText(t *testing.T) {
	reg := New()
	reg.Counter("arcana_up", "").Inc()

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "arcana_up 1") {
		t.Fatalf("body = %s", rec.Body)
	}
}
