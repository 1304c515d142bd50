// Package persistence stores the world in SQLite: a few indexed
// columns for querying, the full state as JSON blobs. Saves are
// whole-table replaces inside transactions; events append.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/social"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// ErrNoSave means the database exists but holds no world yet.
var ErrNoSave = errors.New("persistence: no saved world")

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		age REAL NOT NULL,
		sex INTEGER NOT NULL,
		faction_id INTEGER NOT NULL,
		home_id INTEGER NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS factions (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world (
		kind TEXT PRIMARY KEY,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_agents_faction ON agents(faction_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveAgents writes all agents to the database (full replace).
func (db *DB) SaveAgents(list []*agents.Agent) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM agents"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO agents
		(id, name, age, sex, faction_id, home_id, state_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range list {
		blob, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal agent %d: %w", a.ID, err)
		}
		if _, err := stmt.Exec(a.ID, a.Name, a.Age, a.Sex, a.FactionID, a.HomeID, string(blob)); err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// SaveFactions writes all factions to the database (full replace).
func (db *DB) SaveFactions(list []*social.Faction) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM factions"); err != nil {
		return err
	}

	for _, f := range list {
		blob, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("marshal faction %d: %w", f.ID, err)
		}
		if _, err := tx.Exec("INSERT INTO factions (id, name, state_json) VALUES (?, ?, ?)",
			f.ID, f.Name, string(blob)); err != nil {
			return fmt.Errorf("insert faction %d: %w", f.ID, err)
		}
	}

	return tx.Commit()
}

// SaveWorld writes the entity arena as one JSON row per entity kind.
func (db *DB) SaveWorld(w *world.World) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows := []struct {
		kind  string
		state any
	}{
		{"resources", w.Resources},
		{"stocks", w.Stocks},
		{"buildings", w.Buildings},
		{"corpses", w.Corpses},
		{"zones", w.Zones},
	}
	for _, r := range rows {
		blob, err := json.Marshal(r.state)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", r.kind, err)
		}
		if _, err := tx.Exec("INSERT OR REPLACE INTO world (kind, state_json) VALUES (?, ?)",
			r.kind, string(blob)); err != nil {
			return fmt.Errorf("save %s: %w", r.kind, err)
		}
	}

	return tx.Commit()
}

// AppendEvents adds events to the log.
func (db *DB) AppendEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		if _, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState performs a full save. Events already in the log are
// not written again; the watermark lives in metadata.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	slog.Info("saving world", "agents", len(sim.Agents), "tick", sim.Tick)

	ordered := make([]*agents.Agent, 0, len(sim.Order))
	for _, id := range sim.Order {
		ordered = append(ordered, sim.Agents[id])
	}

	if err := db.SaveAgents(ordered); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := db.SaveFactions(sim.Factions.Sorted()); err != nil {
		return fmt.Errorf("save factions: %w", err)
	}
	if err := db.SaveWorld(sim.World); err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	if err := db.appendNewEvents(sim.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	runtime, err := json.Marshal(sim.Runtime())
	if err != nil {
		return fmt.Errorf("marshal runtime: %w", err)
	}
	market, err := json.Marshal(sim.Market)
	if err != nil {
		return fmt.Errorf("marshal market: %w", err)
	}
	for key, value := range map[string]string{
		"seed":    strconv.FormatInt(sim.Seed, 10),
		"runtime": string(runtime),
		"market":  string(market),
	} {
		if err := db.SaveMeta(key, value); err != nil {
			return fmt.Errorf("save meta %s: %w", key, err)
		}
	}

	slog.Info("world saved")
	return nil
}

// appendNewEvents writes only events past the stored watermark, so
// periodic saves do not duplicate the log.
func (db *DB) appendNewEvents(events []engine.Event) error {
	var through uint64
	if v, err := db.GetMeta("events_through"); err == nil {
		through, _ = strconv.ParseUint(v, 10, 64)
	}

	fresh := make([]engine.Event, 0, len(events))
	last := through
	for _, e := range events {
		if e.Tick <= through {
			continue
		}
		fresh = append(fresh, e)
		if e.Tick > last {
			last = e.Tick
		}
	}
	if err := db.AppendEvents(fresh); err != nil {
		return err
	}
	if last != through {
		return db.SaveMeta("events_through", strconv.FormatUint(last, 10))
	}
	return nil
}

// LoadWorldState rebuilds a simulation from the database. Tuning comes
// from the caller, so edited parameters apply to a loaded world.
func (db *DB) LoadWorldState(p *tuning.Params, reg *registry.Registry) (*engine.Simulation, error) {
	seedStr, err := db.GetMeta("seed")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSave
	}
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	seed, err := strconv.ParseInt(seedStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	sim := engine.NewSimulation(seed, p, reg)

	if err := db.loadWorld(sim); err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	if err := db.loadFactions(sim); err != nil {
		return nil, fmt.Errorf("load factions: %w", err)
	}
	if err := db.loadAgents(sim); err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	if err := db.loadMeta(sim); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}

	events, err := db.RecentEvents(200)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	// RecentEvents is newest-first; the sim keeps chronological order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	sim.Events = events

	slog.Info("world loaded",
		"agents", len(sim.Agents),
		"factions", len(sim.Factions.ByID),
		"tick", sim.Tick,
		"time", sim.SimTime(),
	)
	return sim, nil
}

// loadWorld replaces the generated entity arena with the saved one.
func (db *DB) loadWorld(sim *engine.Simulation) error {
	w := sim.World
	w.Resources = map[world.EntityID]*world.Resource{}
	w.Stocks = map[world.EntityID]*world.Stock{}
	w.Buildings = map[world.EntityID]*world.Building{}
	w.Corpses = map[world.EntityID]*world.Corpse{}
	w.Zones = nil

	rows := []struct {
		kind string
		into any
	}{
		{"resources", &w.Resources},
		{"stocks", &w.Stocks},
		{"buildings", &w.Buildings},
		{"corpses", &w.Corpses},
		{"zones", &w.Zones},
	}
	for _, r := range rows {
		var blob string
		err := db.conn.Get(&blob, "SELECT state_json FROM world WHERE kind = ?", r.kind)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(blob), r.into); err != nil {
			return fmt.Errorf("unmarshal %s: %w", r.kind, err)
		}
	}

	var max world.EntityID
	bump := func(id world.EntityID) {
		if id > max {
			max = id
		}
	}
	for id := range w.Resources {
		bump(id)
	}
	for id := range w.Stocks {
		bump(id)
	}
	for id := range w.Buildings {
		bump(id)
	}
	for id := range w.Corpses {
		bump(id)
	}
	for _, z := range w.Zones {
		bump(z.ID)
	}
	w.BumpID(max)
	return nil
}

func (db *DB) loadFactions(sim *engine.Simulation) error {
	rows, err := db.conn.Queryx("SELECT state_json FROM factions ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	var max uint64
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return err
		}
		f := &social.Faction{}
		if err := json.Unmarshal([]byte(blob), f); err != nil {
			return err
		}
		if f.Relations == nil {
			f.Relations = map[uint64]social.Stance{}
		}
		sim.Factions.ByID[f.ID] = f
		if f.ID > max {
			max = f.ID
		}
	}
	sim.Factions.NextID = max + 1
	return rows.Err()
}

func (db *DB) loadAgents(sim *engine.Simulation) error {
	rows, err := db.conn.Queryx("SELECT state_json FROM agents ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	var max agents.AgentID
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return err
		}
		a := &agents.Agent{}
		if err := json.Unmarshal([]byte(blob), a); err != nil {
			return err
		}
		sim.AddAgent(a)
		if a.ID > max {
			max = a.ID
		}
	}
	sim.Spawner.SetNextID(max + 1)
	return rows.Err()
}

func (db *DB) loadMeta(sim *engine.Simulation) error {
	if blob, err := db.GetMeta("market"); err == nil {
		if err := json.Unmarshal([]byte(blob), sim.Market); err != nil {
			return fmt.Errorf("unmarshal market: %w", err)
		}
	}
	blob, err := db.GetMeta("runtime")
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	var rt engine.Runtime
	if err := json.Unmarshal([]byte(blob), &rt); err != nil {
		return fmt.Errorf("unmarshal runtime: %w", err)
	}
	sim.SetRuntime(rt)
	return nil
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
