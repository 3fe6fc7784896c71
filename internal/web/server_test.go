package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/valve-supervisor/internal/logic"
	"github.com/sweeney/valve-supervisor/internal/metrics"
	"github.com/sweeney/valve-supervisor/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Mode:        "scheduled",
		TickMs:      100,
		ThresholdMV: 10000,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
	}
	tr := status.NewTracker(start, cfg)
	m := metrics.New()
	srv := New(":0", tr, m.Handler())
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func getStatus(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url + "/status.json")
	if err != nil {
		t.Fatalf("GET /status.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestStatusEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.Top, 1795, false, 12400, logic.Counts{Moves: 5, Suppressed: 2})
	tr.SetMQTTConnected(true)

	sj := getStatus(t, ts.URL)

	if sj.Status.Position != "top" {
		t.Errorf("Position: got %q, want top", sj.Status.Position)
	}
	if sj.Status.SetPoint != 1795 {
		t.Errorf("SetPoint: got %d, want 1795", sj.Status.SetPoint)
	}
	if sj.Status.VoltageMV != 12400 {
		t.Errorf("VoltageMV: got %d, want 12400", sj.Status.VoltageMV)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.Moves != 5 {
		t.Errorf("Counts.Moves: got %d, want 5", sj.Status.Counts.Moves)
	}
	if sj.Status.Config.ThresholdMV != 10000 {
		t.Errorf("Config.ThresholdMV: got %d", sj.Status.Config.ThresholdMV)
	}
}

func TestStatusUnknownBeforeFirstUpdate(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getStatus(t, ts.URL)
	if sj.Status.Position != "unknown" {
		t.Errorf("Position: got %q, want unknown", sj.Status.Position)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	if getStatus(t, ts.URL).Status.UnderVoltage {
		t.Error("expected UnderVoltage=false initially")
	}

	tr.Update(logic.Home, 1500, true, 9100, logic.Counts{InterlockTrips: 1})

	sj := getStatus(t, ts.URL)
	if !sj.Status.UnderVoltage {
		t.Error("expected UnderVoltage=true after update")
	}
	if sj.Status.Position != "home" {
		t.Errorf("Position: got %q, want home", sj.Status.Position)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.Move("bottom", 1205)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `valve_moves_total{position="bottom"} 1`) {
		t.Errorf("expected move counter in output:\n%s", body)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	for _, path := range []string{"/", "/index.html", "/nonexistent"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != 404 {
			t.Errorf("%s: got %d, want 404", path, resp.StatusCode)
		}
	}
}
