package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/persistence"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// testServer builds a populated world behind a paused engine. The
// engine never runs; tests that need time call Advance through Do.
func testServer(t *testing.T) *Server {
	t.Helper()
	p := tuning.Default()
	sim := engine.NewSimulation(7, &p, registry.Builtin())
	sim.Populate(8, 2)
	return &Server{
		Eng:      engine.NewEngine(sim),
		AdminKey: "test-key",
		RunID:    "run-under-test",
	}
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, mux *http.ServeMux, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("bad json: %v\n%s", err, rec.Body.String())
	}
	return m
}

func TestStatusReportsWorld(t *testing.T) {
	s := testServer(t)
	mux := s.routes()

	rec := get(t, mux, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	m := decodeMap(t, rec)

	if m["name"] != "Hearthvale" {
		t.Fatalf("name = %v", m["name"])
	}
	if m["run_id"] != "run-under-test" {
		t.Fatalf("run_id = %v", m["run_id"])
	}
	if m["population"].(float64) != 8 {
		t.Fatalf("population = %v", m["population"])
	}
	if m["running"] != false {
		t.Fatal("engine should not be running")
	}
	season, ok := m["season"].(string)
	if !ok || season == "" {
		t.Fatalf("season = %v", m["season"])
	}
	if _, ok := m["weather"].(map[string]any); !ok {
		t.Fatalf("weather = %v", m["weather"])
	}
}

func TestAgentListAndDetailBands(t *testing.T) {
	s := testServer(t)
	mux := s.routes()

	rec := get(t, mux, "/api/v1/agents")
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(list) != 8 {
		t.Fatalf("want 8 agents, got %d", len(list))
	}

	id := int(list[0]["id"].(float64))
	rec = get(t, mux, "/api/v1/agents/"+strconv.Itoa(id))
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d", rec.Code)
	}
	detail := decodeMap(t, rec)

	bands, ok := detail["bands"].(map[string]any)
	if !ok {
		t.Fatalf("bands missing: %v", detail)
	}
	valid := map[string]bool{"critical": true, "poor": true, "fair": true, "good": true}
	for _, need := range []string{"health", "hunger", "thirst", "energy", "happiness"} {
		v, ok := bands[need].(string)
		if !ok || !valid[v] {
			t.Fatalf("band %s = %v", need, bands[need])
		}
	}
	// The public view quantizes needs, it never leaks the raw floats.
	if _, leaked := detail["needs"]; leaked {
		t.Fatal("detail view exposed raw needs")
	}
}

func TestAgentDetailNotFound(t *testing.T) {
	s := testServer(t)
	mux := s.routes()

	rec := get(t, mux, "/api/v1/agents/999999")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = get(t, mux, "/api/v1/agents/bogus")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestFactionEndpoints(t *testing.T) {
	s := testServer(t)
	mux := s.routes()

	rec := get(t, mux, "/api/v1/factions")
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("want 2 factions, got %d", len(list))
	}

	id := int(list[0]["id"].(float64))
	rec = get(t, mux, "/api/v1/factions/"+strconv.Itoa(id))
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d", rec.Code)
	}
	detail := decodeMap(t, rec)
	if detail["name"] != list[0]["name"] {
		t.Fatalf("detail name %v != list name %v", detail["name"], list[0]["name"])
	}

	rec = get(t, mux, "/api/v1/factions/424242")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing faction status = %d", rec.Code)
	}
}

func TestSpeedRequiresAuth(t *testing.T) {
	s := testServer(t)
	mux := s.routes()

	rec := postJSON(t, mux, "/api/v1/admin/speed", "", `{"speed":5}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}
	rec = postJSON(t, mux, "/api/v1/admin/speed", "wrong", `{"speed":5}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d", rec.Code)
	}

	rec = postJSON(t, mux, "/api/v1/admin/speed", "test-key", `{"speed":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("good token: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := s.Eng.Speed(); got != 5 {
		t.Fatalf("speed = %f", got)
	}

	rec = postJSON(t, mux, "/api/v1/admin/speed", "test-key", `{"speed":5000}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range: status = %d", rec.Code)
	}

	// GET reads the current speed with no token.
	rec = get(t, mux, "/api/v1/admin/speed")
	if rec.Code != http.StatusOK {
		t.Fatalf("get speed: status = %d", rec.Code)
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	s := testServer(t)
	s.AdminKey = ""
	mux := s.routes()

	rec := postJSON(t, mux, "/api/v1/admin/speed", "anything", `{"speed":2}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestEventsSinceAndCategory(t *testing.T) {
	s := testServer(t)
	mux := s.routes()

	s.Eng.Do(func(sim *engine.Simulation) {
		sim.Tick = 10
	})
	s.Eng.Inject("weather", "rain began")
	s.Eng.Do(func(sim *engine.Simulation) {
		sim.Tick = 20
	})
	s.Eng.Inject("social", "a festival started")
	s.Eng.Inject("weather", "the rain stopped")

	rec := get(t, mux, "/api/v1/events?since=10")
	var events []engine.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("since=10: want 2 events, got %d", len(events))
	}
	for _, e := range events {
		if e.Tick <= 10 {
			t.Fatalf("event from tick %d leaked through since=10", e.Tick)
		}
	}

	rec = get(t, mux, "/api/v1/events?category=weather")
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("category=weather: want 2 events, got %d", len(events))
	}

	rec = get(t, mux, "/api/v1/events?limit=1")
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(events) != 1 || events[0].Description != "the rain stopped" {
		t.Fatalf("limit=1 should keep the newest event, got %+v", events)
	}
}

func TestSpawnAddsVillagers(t *testing.T) {
	s := testServer(t)
	mux := s.routes()

	rec := postJSON(t, mux, "/api/v1/admin/spawn", "test-key", `{"count":3,"x":10,"y":-5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var n int
	s.Eng.Do(func(sim *engine.Simulation) { n = len(sim.Agents) })
	if n != 11 {
		t.Fatalf("want 11 agents after spawn, got %d", n)
	}

	rec = postJSON(t, mux, "/api/v1/admin/spawn", "test-key", `{"count":500}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized spawn: status = %d", rec.Code)
	}
	rec = postJSON(t, mux, "/api/v1/admin/spawn", "test-key", `{"count":1,"faction_id":9999}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown faction: status = %d", rec.Code)
	}
}

func TestProvisionIntervention(t *testing.T) {
	s := testServer(t)
	mux := s.routes()

	var buildingID uint64
	s.Eng.Do(func(sim *engine.Simulation) {
		b := sim.World.AddBuilding("granary", world.Vec2{X: 20})
		buildingID = uint64(b.ID)
	})
	idStr := strconv.FormatUint(buildingID, 10)

	body := `{"type":"provision","building_id":` + idStr + `,"item":"bread","qty":40}`
	rec := postJSON(t, mux, "/api/v1/admin/intervention", "test-key", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var qty int
	s.Eng.Do(func(sim *engine.Simulation) {
		b := sim.World.Building(world.EntityID(buildingID))
		qty = sim.World.Stock(b.StockID).Count("bread")
	})
	if qty != 40 {
		t.Fatalf("stock bread = %d", qty)
	}

	rec = postJSON(t, mux, "/api/v1/admin/intervention", "test-key",
		`{"type":"provision","building_id":`+idStr+`,"item":"plutonium","qty":1}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown item: status = %d", rec.Code)
	}
}

func TestWeatherIntervention(t *testing.T) {
	s := testServer(t)
	mux := s.routes()

	rec := postJSON(t, mux, "/api/v1/admin/intervention", "test-key", `{"type":"weather","weather":"drought"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var kind string
	s.Eng.Do(func(sim *engine.Simulation) { kind = sim.Weather.Current.String() })
	if kind != "drought" {
		t.Fatalf("weather = %s", kind)
	}

	rec = postJSON(t, mux, "/api/v1/admin/intervention", "test-key", `{"type":"weather","weather":"blizzard"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown weather: status = %d", rec.Code)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := testServer(t)
	mux := s.routes()

	var tick uint64
	s.Eng.Do(func(sim *engine.Simulation) {
		sim.Advance(0.1)
		sim.Advance(0.1)
		tick = sim.Tick
	})

	rec := postJSON(t, mux, "/api/v1/admin/snapshot", "test-key", ``)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	snap, err := persistence.DecodeSnapshot(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := tuning.Default()
	restored := snap.Build(&p, registry.Builtin())
	if restored.Tick != tick {
		t.Fatalf("restored tick %d != %d", restored.Tick, tick)
	}
	if len(restored.Agents) != 8 {
		t.Fatalf("restored agents = %d", len(restored.Agents))
	}
}

func TestStreamBacklogAndLiveEvents(t *testing.T) {
	s := testServer(t)
	s.Eng.Inject("social", "the elders met at dawn")

	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readEvent := func() engine.Event {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var e engine.Event
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("bad event json: %v", err)
		}
		return e
	}

	if e := readEvent(); e.Description != "the elders met at dawn" {
		t.Fatalf("backlog event = %+v", e)
	}

	s.Eng.Inject("weather", "clouds rolled in")
	if e := readEvent(); e.Description != "clouds rolled in" {
		t.Fatalf("live event = %+v", e)
	}
}

func TestRateLimiterBudget(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("budget should cover two requests")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("third request should be refused")
	}
	if rl.Allow("10.0.0.2") == false {
		t.Fatal("limits are per client")
	}
	if after := rl.RetryAfter("10.0.0.1"); after <= 0 || after > 61 {
		t.Fatalf("retry-after = %d", after)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.9:4312"
	if ip := clientIP(r); ip != "192.0.2.9" {
		t.Fatalf("ip = %s", ip)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 192.0.2.9")
	if ip := clientIP(r); ip != "203.0.113.7" {
		t.Fatalf("ip = %s", ip)
	}
}

