package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hamed0406/pingwatch/internal/domain"
	apimw "github.com/hamed0406/pingwatch/internal/httpapi/middleware"
	"github.com/hamed0406/pingwatch/internal/outage"
	"github.com/hamed0406/pingwatch/internal/repo/memory"
)

// ---- test helpers ----

var t0 = time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)

type env struct {
	ts      *httptest.Server
	mon     *outage.Monitor
	store   *memory.Store
	feed    *Feed
	stopped chan struct{}
}

func setup(t *testing.T) *env {
	t.Helper()
	mon, err := outage.NewMonitor(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	e := &env{mon: mon, store: memory.New(), feed: NewFeed("8.8.8.8"), stopped: make(chan struct{})}

	srv := NewServer(zap.NewNop(), "8.8.8.8", mon)
	srv.Store = e.store
	srv.Feed = e.feed
	srv.Stop = func() { close(e.stopped) }

	keys := apimw.Keys{Public: []string{"pub_test"}, Admin: []string{"adm_test"}}
	// very high rate limits to avoid flakiness in tests
	e.ts = httptest.NewServer(srv.Router(keys, nil, 10_000, 10_000))
	t.Cleanup(e.ts.Close)
	return e
}

func (e *env) get(t *testing.T, path, key string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// drive feeds results through the monitor at one-second steps.
func drive(m *outage.Monitor, results ...bool) {
	for i, ok := range results {
		out := domain.Failure("timeout")
		if ok {
			out = domain.Success(10 * time.Millisecond)
		}
		m.Apply(out, t0.Add(time.Duration(i)*time.Second))
	}
}

// ---- tests ----

func TestHealthz_NoAuth(t *testing.T) {
	e := setup(t)
	if resp := e.get(t, "/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
}

func TestStats_RequiresKey(t *testing.T) {
	e := setup(t)
	if resp := e.get(t, "/api/stats", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
}

func TestStatsAndOutages(t *testing.T) {
	e := setup(t)
	drive(e.mon, true, false, false, false, true)

	resp := e.get(t, "/api/stats", "pub_test")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var stats struct {
		Target        string  `json:"target"`
		TotalProbes   uint64  `json:"total_probes"`
		DroppedProbes uint64  `json:"dropped_probes"`
		OutageCount   uint64  `json:"outage_count"`
		Ratio         float64 `json:"dropped_ratio"`
		LastEvent     string  `json:"last_event"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Target != "8.8.8.8" || stats.TotalProbes != 5 || stats.DroppedProbes != 3 || stats.OutageCount != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Ratio != 0.6 || stats.LastEvent != "recovered" {
		t.Fatalf("unexpected ratio/event %+v", stats)
	}

	resp = e.get(t, "/api/outages", "pub_test")
	var outs []domain.Outage
	if err := json.NewDecoder(resp.Body).Decode(&outs); err != nil {
		t.Fatalf("decode outages: %v", err)
	}
	// threshold 2: started on the third result, closed on the fifth
	if len(outs) != 1 || outs[0].Open() || *outs[0].DurationSecs != 2 {
		t.Fatalf("unexpected outages %+v", outs)
	}
}

func TestOutages_EmptyIsArray(t *testing.T) {
	e := setup(t)
	resp := e.get(t, "/api/outages", "pub_test")
	var raw json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&raw)
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("want [], got %s", raw)
	}
}

func TestHistory(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = e.store.Save(ctx, domain.Outage{Target: "8.8.8.8", StartedAt: t0.Add(time.Duration(i) * time.Hour)})
	}
	_ = e.store.Save(ctx, domain.Outage{Target: "1.1.1.1", StartedAt: t0})

	resp := e.get(t, "/api/outages/history?limit=2", "pub_test")
	var rows []domain.Outage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(rows) != 2 || !rows[0].StartedAt.Equal(t0.Add(2*time.Hour)) {
		t.Fatalf("unexpected history %+v", rows)
	}

	if resp := e.get(t, "/api/outages/history?limit=zero", "pub_test"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for bad limit, got %d", resp.StatusCode)
	}
}

func TestDNS_LiteralTarget(t *testing.T) {
	e := setup(t)
	resp := e.get(t, "/api/dns", "pub_test")
	var st struct {
		Host  string `json:"host"`
		Class string `json:"class"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode dns: %v", err)
	}
	if st.Host != "8.8.8.8" || st.Class != "LITERAL" {
		t.Fatalf("unexpected dns status %+v", st)
	}
}

func TestAdminStop(t *testing.T) {
	e := setup(t)

	req, _ := http.NewRequest(http.MethodPost, e.ts.URL+"/api/admin/stop", nil)
	req.Header.Set("X-API-Key", "pub_test")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("public key: want 403, got %d", resp.StatusCode)
	}

	req.Header.Set("X-API-Key", "adm_test")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("admin key: want 202, got %d", resp.StatusCode)
	}
	select {
	case <-e.stopped:
	default:
		t.Fatal("stop not called")
	}
}

func TestWS_PushesRenderedTicks(t *testing.T) {
	e := setup(t)
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/api/ws?api_key=pub_test"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// the handler subscribes after the upgrade; keep rendering until it shows up
	deadline := time.Now().Add(2 * time.Second)
	for e.feed.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no subscriber")
		}
		time.Sleep(5 * time.Millisecond)
	}
	drive(e.mon, false, false)
	_ = e.feed.Render(e.mon.View())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap struct {
		Target string `json:"target"`
		Stats  struct {
			ConsecutiveDrops uint64 `json:"consecutive_drops"`
		} `json:"stats"`
		Outages []domain.Outage `json:"outages"`
	}
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Target != "8.8.8.8" || snap.Stats.ConsecutiveDrops != 2 || len(snap.Outages) != 1 || !snap.Outages[0].Open() {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
