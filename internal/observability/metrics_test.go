package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.IncEventFired("applied")
	m.AddXPGranted("event", 10, true)
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.IncEventFired("applied")
	m.IncEventFired("duplicate")
	m.IncEventFired("duplicate")
	m.AddXPGranted("event", 20, true)
	m.AddNotifications("level", 3, 1)
	m.ObserveAPI("POST", "/api/me/xp", "200", 30*time.Millisecond)

	if got := m.eventsFired.Value("duplicate"); got != 2 {
		t.Fatalf("duplicate count: want=2 got=%v", got)
	}
	if got := m.levelUps.Value(); got != 1 {
		t.Fatalf("level ups: want=1 got=%v", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`obs_events_fired_total{outcome="duplicate"} 2.000000`,
		`obs_xp_granted_total{source="event"} 20.000000`,
		`obs_notifications_total{target="level",status="failed"} 1.000000`,
		`obs_api_request_duration_seconds_bucket{method="POST",route="/api/me/xp",status="200",le="0.05"} 1`,
		`# TYPE obs_api_inflight_requests gauge`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString: got=%s", got)
	}
	if got := withLe("", "+Inf"); got != `{le="+Inf"}` {
		t.Fatalf("withLe empty: got=%s", got)
	}
}
