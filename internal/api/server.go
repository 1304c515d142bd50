// Package api serves the world over HTTP. GET endpoints are public
// read-only observation; POST endpoints under /admin are the operator
// control plane behind a bearer token. A websocket feed streams events
// as they happen.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/economy"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/perception"
	"github.com/talgya/hearthvale/internal/persistence"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/social"
	"github.com/talgya/hearthvale/internal/weather"
	"github.com/talgya/hearthvale/internal/world"
)

// Server serves the world state over HTTP. All simulation access goes
// through Eng.Do so handlers never race the tick loop.
type Server struct {
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // bearer token for /admin endpoints, empty disables them
	RunID    string // process run ID, surfaced on /status

	started     time.Time
	streamConns int32 // active websocket count (atomic)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("http api starting", "addr", addr, "admin_auth", s.AdminKey != "")

	handler := corsMiddleware(s.routes())
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("http server error", "error", err)
		}
	}()
}

// routes wires every endpoint onto a fresh mux.
func (s *Server) routes() *http.ServeMux {
	if s.started.IsZero() {
		s.started = time.Now()
	}

	// The stream holds a connection, the admin endpoints walk or
	// persist the whole world; both get per-client budgets.
	streamLimiter := NewRateLimiter(30, time.Hour)
	adminLimiter := NewRateLimiter(120, time.Hour)

	mux := http.NewServeMux()

	// Public observation endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agents/", s.handleAgentDetail)
	mux.HandleFunc("/api/v1/factions", s.handleFactions)
	mux.HandleFunc("/api/v1/factions/", s.handleFactionDetail)
	mux.HandleFunc("/api/v1/market", s.handleMarket)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/zones", s.handleZones)
	mux.HandleFunc("/api/v1/map", s.handleMap)
	mux.HandleFunc("/api/v1/stats", s.handleStats)

	// Live event feed.
	mux.HandleFunc("/api/v1/stream", RateLimitMiddleware(streamLimiter, s.handleStream))

	// Operator control plane (POST, bearer token).
	mux.HandleFunc("/api/v1/admin/speed", s.adminOnly(RateLimitMiddleware(adminLimiter, s.handleSpeed)))
	mux.HandleFunc("/api/v1/admin/save", s.adminOnly(RateLimitMiddleware(adminLimiter, s.handleSave)))
	mux.HandleFunc("/api/v1/admin/snapshot", s.adminOnly(RateLimitMiddleware(adminLimiter, s.handleSnapshot)))
	mux.HandleFunc("/api/v1/admin/spawn", s.adminOnly(RateLimitMiddleware(adminLimiter, s.handleSpawn)))
	mux.HandleFunc("/api/v1/admin/intervention", s.adminOnly(RateLimitMiddleware(adminLimiter, s.handleIntervention)))

	return mux
}

// corsMiddleware adds CORS headers for allowed frontend origins. Set
// CORS_ORIGINS to a comma-separated list of extra origins; localhost
// dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request carries the admin token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST
// requests. GET requests pass through for endpoints that serve both.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no admin token configured)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	speed, running := s.Eng.Speed(), s.Eng.Running()

	var status map[string]any
	s.Eng.Do(func(sim *engine.Simulation) {
		mods := sim.Weather.Modifiers()
		status = map[string]any{
			"name":     "Hearthvale",
			"run_id":   s.RunID,
			"seed":     sim.Seed,
			"catalog":  sim.Reg.Digest,
			"tick":     sim.Tick,
			"sim_time": sim.SimTime(),
			"day":      sim.Clock.Day(sim.Now),
			"season":   sim.Clock.Season(sim.Now).String(),
			"night":    sim.Clock.IsNight(sim.Now),
			"weather": map[string]any{
				"kind":        sim.Weather.Current.String(),
				"description": mods.Description,
			},
			"speed":         speed,
			"running":       running,
			"uptime":        strings.TrimSpace(humanize.RelTime(s.started, time.Now(), "", "")),
			"population":    sim.Stats.Population,
			"adults":        sim.Stats.Adults,
			"couples":       sim.Stats.Couples,
			"births":        sim.Stats.Births,
			"deaths":        sim.Stats.Deaths,
			"avg_health":    sim.Stats.AvgHealth,
			"avg_happiness": sim.Stats.AvgHappiness,
			"stock_units":   sim.Stats.StockUnits,
			"factions":      len(sim.Factions.ByID),
			"buildings":     len(sim.World.Buildings),
			"zones":         len(sim.World.Zones),
		}
	})
	writeJSON(w, status)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stage := q.Get("stage")
	var factionID uint64
	if f := q.Get("faction"); f != "" {
		factionID, _ = strconv.ParseUint(f, 10, 64)
	}

	type agentSummary struct {
		ID        agents.AgentID `json:"id"`
		Name      string         `json:"name"`
		Sex       string         `json:"sex"`
		Age       float64        `json:"age"`
		Stage     string         `json:"stage"`
		FactionID uint64         `json:"faction_id,omitempty"`
		HomeID    world.EntityID `json:"home_id,omitempty"`
		Pos       world.Vec2     `json:"pos"`
		State     string         `json:"state"`
		Action    string         `json:"action,omitempty"`
		Health    string         `json:"health"`
		Hunger    string         `json:"hunger"`
		Energy    string         `json:"energy"`
		Sick      bool           `json:"sick,omitempty"`
	}

	result := []agentSummary{}
	s.Eng.Do(func(sim *engine.Simulation) {
		for _, id := range sim.Order {
			a := sim.Agents[id]
			st := a.Stage(sim.P.Repro)
			if stage != "" && st.String() != stage {
				continue
			}
			if factionID != 0 && a.FactionID != factionID {
				continue
			}
			sum := agentSummary{
				ID:        a.ID,
				Name:      a.Name,
				Sex:       a.Sex.String(),
				Age:       a.Age,
				Stage:     st.String(),
				FactionID: a.FactionID,
				HomeID:    a.HomeID,
				Pos:       a.Pos,
				State:     a.Mind.State.String(),
				Health:    perception.BandOf(a.Needs.Health).String(),
				Hunger:    perception.BandOf(a.Needs.Hunger).String(),
				Energy:    perception.BandOf(a.Needs.Energy).String(),
				Sick:      a.Sick,
			}
			if a.Action != nil {
				sum.Action = a.Action.Kind.String()
			}
			result = append(result, sum)
		}
	})
	writeJSON(w, result)
}

// handleAgentDetail serves one villager as the village would see them:
// observable facts plus needs quantized into appearance bands, never
// raw internals.
func (s *Server) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "missing agent id", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}

	var detail map[string]any
	s.Eng.Do(func(sim *engine.Simulation) {
		a := sim.Agent(agents.AgentID(id))
		if a == nil {
			return
		}

		carrying := make([]agents.ItemStack, len(a.Inventory))
		copy(carrying, a.Inventory)

		detail = map[string]any{
			"id":    a.ID,
			"name":  a.Name,
			"sex":   a.Sex.String(),
			"age":   a.Age,
			"stage": a.Stage(sim.P.Repro).String(),
			"color": a.Color,
			"pos":   a.Pos,
			"state": a.Mind.State.String(),
			"bands": map[string]string{
				"health":    perception.BandOf(a.Needs.Health).String(),
				"hunger":    perception.BandOf(a.Needs.Hunger).String(),
				"thirst":    perception.BandOf(a.Needs.Thirst).String(),
				"energy":    perception.BandOf(a.Needs.Energy).String(),
				"happiness": perception.BandOf(a.Needs.Happiness).String(),
			},
			"carrying": carrying,
			"sick":     a.Sick,
			"asleep":   a.Asleep(),
			"fighting": a.Fighting(),
			"pregnant": a.Repro.Gestation != nil,
			"home_id":  a.HomeID,
		}
		if a.Job != "" {
			detail["job"] = a.Job
		}
		if a.Action != nil {
			detail["action"] = a.Action.Kind.String()
		}
		if a.MoveTarget != nil {
			detail["move_target"] = *a.MoveTarget
		}
		if f := sim.Factions.Get(a.FactionID); f != nil {
			detail["faction"] = map[string]any{"id": f.ID, "name": f.Name}
		}
		if mid, ok := a.Know.Mate(); ok {
			if mate := sim.Agent(agents.AgentID(mid)); mate != nil {
				detail["mate"] = mate.Name
			}
		}
	})
	if detail == nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	type factionSummary struct {
		ID       uint64            `json:"id"`
		Name     string            `json:"name"`
		Color    float64           `json:"color"`
		Members  int               `json:"members"`
		Wealth   float64           `json:"wealth"`
		Military float64           `json:"military"`
		Stances  map[string]string `json:"stances,omitempty"` // other faction name → stance
	}

	result := []factionSummary{}
	s.Eng.Do(func(sim *engine.Simulation) {
		for _, f := range sim.Factions.Sorted() {
			sum := factionSummary{
				ID:       f.ID,
				Name:     f.Name,
				Color:    f.Color,
				Members:  len(f.Members),
				Wealth:   f.Wealth,
				Military: f.Military,
			}
			for otherID, stance := range f.Relations {
				if other := sim.Factions.Get(otherID); other != nil {
					if sum.Stances == nil {
						sum.Stances = map[string]string{}
					}
					sum.Stances[other.Name] = stance.String()
				}
			}
			result = append(result, sum)
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleFactionDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "missing faction id", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		http.Error(w, "invalid faction id", http.StatusBadRequest)
		return
	}

	type memberInfo struct {
		ID    agents.AgentID `json:"id"`
		Name  string         `json:"name"`
		Age   float64        `json:"age"`
		Stage string         `json:"stage"`
	}

	var detail map[string]any
	s.Eng.Do(func(sim *engine.Simulation) {
		f := sim.Factions.Get(id)
		if f == nil {
			return
		}

		members := []memberInfo{}
		for _, mid := range f.Members {
			a := sim.Agent(agents.AgentID(mid))
			if a == nil {
				continue
			}
			members = append(members, memberInfo{
				ID:    a.ID,
				Name:  a.Name,
				Age:   a.Age,
				Stage: a.Stage(sim.P.Repro).String(),
			})
		}

		stances := map[string]string{}
		for otherID, stance := range f.Relations {
			if other := sim.Factions.Get(otherID); other != nil {
				stances[other.Name] = stance.String()
			}
		}

		detail = map[string]any{
			"id":           f.ID,
			"name":         f.Name,
			"color":        f.Color,
			"members":      members,
			"member_count": len(members),
			"wealth":       f.Wealth,
			"military":     f.Military,
			"last_raid_at": f.LastRaidAt,
			"stances":      stances,
		}
	})
	if detail == nil {
		http.Error(w, "faction not found", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	var result map[string]any
	s.Eng.Do(func(sim *engine.Simulation) {
		ids := make([]registry.ItemID, 0, len(sim.Market.Entries))
		for id := range sim.Market.Entries {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		entries := make([]economy.Entry, 0, len(ids))
		for _, id := range ids {
			entries = append(entries, *sim.Market.Entries[id])
		}

		result = map[string]any{
			"entries":     entries,
			"trade_count": sim.Market.TradeCount,
			"most_traded": sim.Market.MostTraded,
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	var since uint64
	if v := q.Get("since"); v != "" {
		since, _ = strconv.ParseUint(v, 10, 64)
	}
	category := q.Get("category")

	events := []engine.Event{}
	s.Eng.Do(func(sim *engine.Simulation) {
		for _, e := range sim.Events {
			if since > 0 && e.Tick <= since {
				continue
			}
			if category != "" && e.Category != category {
				continue
			}
			events = append(events, e)
		}
	})
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, events)
}

// handleZones dumps the fertile zone state, mostly for debugging
// respawn behavior.
func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	zones := []world.FertileZone{}
	s.Eng.Do(func(sim *engine.Simulation) {
		for _, z := range sim.World.Zones {
			zones = append(zones, *z)
		}
	})
	writeJSON(w, zones)
}

// handleMap returns the static-ish world geometry a viewer needs:
// bounds, zones, buildings with their stores, live resource nodes and
// any corpses not yet decayed.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	type buildingView struct {
		ID        world.EntityID          `json:"id"`
		Kind      string                  `json:"kind"`
		Pos       world.Vec2              `json:"pos"`
		Faction   uint64                  `json:"faction,omitempty"`
		Residents []uint64                `json:"residents,omitempty"`
		Store     map[registry.ItemID]int `json:"store,omitempty"`
	}
	type resourceView struct {
		ID     world.EntityID  `json:"id"`
		Item   registry.ItemID `json:"item"`
		Pos    world.Vec2      `json:"pos"`
		Qty    int             `json:"qty"`
		Locked bool            `json:"locked,omitempty"`
	}
	type corpseView struct {
		ID     world.EntityID `json:"id"`
		Name   string         `json:"name"`
		Pos    world.Vec2     `json:"pos"`
		DiedAt float64        `json:"died_at"`
	}

	var result map[string]any
	s.Eng.Do(func(sim *engine.Simulation) {
		zones := []world.FertileZone{}
		for _, z := range sim.World.Zones {
			zones = append(zones, *z)
		}

		buildings := []buildingView{}
		for _, b := range sim.World.SortedBuildings() {
			bv := buildingView{
				ID:        b.ID,
				Kind:      b.Kind,
				Pos:       b.Pos,
				Faction:   b.Faction,
				Residents: append([]uint64(nil), b.Residents...),
			}
			if stock := sim.World.Stock(b.StockID); stock != nil && len(stock.Items) > 0 {
				bv.Store = map[registry.ItemID]int{}
				for item, qty := range stock.Items {
					bv.Store[item] = qty
				}
			}
			buildings = append(buildings, bv)
		}

		resources := []resourceView{}
		for _, res := range sim.World.Resources {
			resources = append(resources, resourceView{
				ID:     res.ID,
				Item:   res.Item,
				Pos:    res.Pos,
				Qty:    res.Qty,
				Locked: res.LockedBy != 0,
			})
		}
		sort.Slice(resources, func(i, j int) bool { return resources[i].ID < resources[j].ID })

		corpses := []corpseView{}
		for _, c := range sim.World.Corpses {
			corpses = append(corpses, corpseView{ID: c.ID, Name: c.Name, Pos: c.Pos, DiedAt: c.DiedAt})
		}
		sort.Slice(corpses, func(i, j int) bool { return corpses[i].ID < corpses[j].ID })

		result = map[string]any{
			"half":      sim.World.Half,
			"zones":     zones,
			"buildings": buildings,
			"resources": resources,
			"corpses":   corpses,
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var st engine.SimStats
	s.Eng.Do(func(sim *engine.Simulation) { st = sim.Stats })
	writeJSON(w, st)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleSave persists the world to the database. The world holds still
// while it saves.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	var tick uint64
	var err error
	s.Eng.Do(func(sim *engine.Simulation) {
		tick = sim.Tick
		err = s.DB.SaveWorldState(sim)
	})
	if err != nil {
		slog.Error("save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"tick": tick, "message": "world saved"})
}

// handleSnapshot captures the world and streams it back as a
// compressed snapshot file.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	var tick uint64
	var err error
	s.Eng.Do(func(sim *engine.Simulation) {
		tick = sim.Tick
		err = persistence.Capture(sim).Encode(&buf)
	})
	if err != nil {
		slog.Error("snapshot encode failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("hearthvale-tick-%d.snap", tick)))
	w.Write(buf.Bytes())
}

// handleSpawn drops newcomers into the world, optionally into an
// existing kin-band.
func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Count     int     `json:"count"`
		FactionID uint64  `json:"faction_id,omitempty"`
		X         float64 `json:"x,omitempty"`
		Y         float64 `json:"y,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		http.Error(w, "count required", http.StatusBadRequest)
		return
	}
	if req.Count > 100 {
		http.Error(w, "max 100 villagers per spawn", http.StatusBadRequest)
		return
	}

	var detail, fail string
	s.Eng.Do(func(sim *engine.Simulation) {
		var band *social.Faction
		if req.FactionID != 0 {
			band = sim.Factions.Get(req.FactionID)
			if band == nil {
				fail = "faction not found"
				return
			}
		}
		pos := world.Vec2{X: req.X, Y: req.Y}.ClampRect(sim.World.Half)
		for i := 0; i < req.Count; i++ {
			a := sim.Spawner.NewFounder(sim.Scatter(pos, 20), sim.Reg, sim.P.Repro)
			if band != nil {
				a.FactionID = band.ID
				band.AddMember(uint64(a.ID))
			}
			sim.AddAgent(a)
		}
		detail = fmt.Sprintf("%d newcomers settled near (%.0f, %.0f)", req.Count, pos.X, pos.Y)
	})
	if fail != "" {
		http.Error(w, fail, http.StatusNotFound)
		return
	}

	s.Eng.Inject("social", detail)
	writeJSON(w, map[string]any{"success": true, "details": detail})
}

// handleIntervention covers the small operator nudges that do not
// deserve their own endpoint: injected events, stock provisions and
// forced weather.
func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Type        string `json:"type"`
		Description string `json:"description,omitempty"`
		Category    string `json:"category,omitempty"`
		BuildingID  uint64 `json:"building_id,omitempty"`
		Item        string `json:"item,omitempty"`
		Qty         int    `json:"qty,omitempty"`
		Weather     string `json:"weather,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	switch req.Type {
	case "event":
		if req.Description == "" {
			http.Error(w, "description required for event type", http.StatusBadRequest)
			return
		}
		cat := req.Category
		if cat == "" {
			cat = "operator"
		}
		s.Eng.Inject(cat, req.Description)
		writeJSON(w, map[string]any{"success": true, "details": "event injected"})

	case "provision":
		if req.BuildingID == 0 || req.Item == "" || req.Qty <= 0 {
			http.Error(w, "building_id, item and qty required for provision type", http.StatusBadRequest)
			return
		}
		if req.Qty > 200 {
			http.Error(w, "max 200 units per provision", http.StatusBadRequest)
			return
		}
		var detail, fail string
		s.Eng.Do(func(sim *engine.Simulation) {
			item := registry.ItemID(req.Item)
			if _, ok := sim.Reg.Items[item]; !ok {
				fail = "unknown item"
				return
			}
			b := sim.World.Building(world.EntityID(req.BuildingID))
			if b == nil {
				fail = "building not found"
				return
			}
			stock := sim.World.Stock(b.StockID)
			if stock == nil {
				fail = "building has no store"
				return
			}
			stock.Add(item, req.Qty)
			detail = fmt.Sprintf("a wagon delivered %d %s to the %s", req.Qty, item, b.Kind)
		})
		if fail != "" {
			http.Error(w, fail, http.StatusNotFound)
			return
		}
		s.Eng.Inject("economy", detail)
		writeJSON(w, map[string]any{"success": true, "details": detail})

	case "weather":
		kind, ok := weather.ParseKind(req.Weather)
		if !ok {
			http.Error(w, "unknown weather kind", http.StatusBadRequest)
			return
		}
		var detail string
		s.Eng.Do(func(sim *engine.Simulation) {
			sim.Weather.Current = kind
			detail = fmt.Sprintf("the sky turns: %s", kind.Modifiers().Description)
		})
		s.Eng.Inject("weather", detail)
		writeJSON(w, map[string]any{"success": true, "details": detail})

	default:
		http.Error(w, "unknown intervention type (use: event, provision, weather)", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
