// Command villagesim runs the Hearthvale village simulation and serves
// its observation API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hearthvale/internal/api"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/persistence"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
)

func main() {
	var (
		dbPath     = flag.String("db", "data/hearthvale.db", "sqlite database path")
		seed       = flag.Int64("seed", 42, "world seed (fresh worlds only)")
		port       = flag.Int("port", 8080, "http api port")
		speed      = flag.Float64("speed", 1, "initial speed multiplier (0 = paused)")
		founders   = flag.Int("founders", 20, "founding villagers (fresh worlds only)")
		factions   = flag.Int("factions", 3, "founding kin-bands (fresh worlds only)")
		tuningPath = flag.String("tuning", "", "tuning yaml layered over the defaults")
		dataDir    = flag.String("data", "", "catalog override dir (items/recipes/jobs json)")
		adminToken = flag.String("admin-token", "", "admin bearer token (or HEARTHVALE_ADMIN_KEY)")
		autosave   = flag.Duration("autosave", 5*time.Minute, "wall-clock autosave interval (0 disables)")
		verbose    = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	p, err := tuning.Load(*tuningPath)
	if err != nil {
		slog.Error("failed to load tuning", "path", *tuningPath, "error", err)
		os.Exit(1)
	}
	reg, err := registry.Load(*dataDir)
	if err != nil {
		slog.Error("failed to load catalogs", "dir", *dataDir, "error", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded", "items", len(reg.Items), "recipes", len(reg.Recipes), "digest", reg.Digest)

	if dir := filepath.Dir(*dbPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", *dbPath)

	sim, err := db.LoadWorldState(&p, reg)
	switch {
	case err == nil:
		slog.Info("world restored",
			"tick", sim.Tick,
			"villagers", len(sim.Agents),
			"factions", len(sim.Factions.ByID),
			"sim_time", sim.SimTime(),
		)
	case errors.Is(err, persistence.ErrNoSave):
		slog.Info("no saved world, generating", "seed", *seed)
		sim = engine.NewSimulation(*seed, &p, reg)
		sim.Populate(*founders, *factions)
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	default:
		slog.Error("failed to load world", "error", err)
		os.Exit(1)
	}

	villagers, bands := len(sim.Agents), len(sim.Factions.ByID)

	// Each process run gets an ID so logs, saves and stream sessions
	// from the same run can be correlated after a restart.
	runID := uuid.NewString()
	slog.Info("run started", "run_id", runID, "tick", sim.Tick)
	if err := db.SaveMeta("run_id", runID); err != nil {
		slog.Warn("could not record run id", "error", err)
	}

	eng := engine.NewEngine(sim)
	eng.SetSpeed(*speed)

	adminKey := *adminToken
	if adminKey == "" {
		adminKey = os.Getenv("HEARTHVALE_ADMIN_KEY")
	}
	if adminKey == "" {
		slog.Warn("no admin token configured, admin POST endpoints will be disabled")
	}

	srv := &api.Server{
		Eng:      eng,
		DB:       db,
		Port:     *port,
		AdminKey: adminKey,
		RunID:    runID,
	}
	srv.Start()

	// Autosave runs on wall time so a sped-up world cannot outrun its
	// saves.
	stopSaver := make(chan struct{})
	if *autosave > 0 {
		go func() {
			tk := time.NewTicker(*autosave)
			defer tk.Stop()
			for {
				select {
				case <-tk.C:
					var saveErr error
					var tick uint64
					eng.Do(func(s *engine.Simulation) {
						tick = s.Tick
						saveErr = db.SaveWorldState(s)
					})
					if saveErr != nil {
						slog.Error("autosave failed", "error", saveErr)
					} else {
						slog.Info("autosaved", "tick", tick)
					}
				case <-stopSaver:
					return
				}
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nHearthvale is alive: %d villagers across %d kin-bands.\n", villagers, bands)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", *port)
	fmt.Println("Running... (Ctrl+C to stop)")

	eng.Run()
	close(stopSaver)

	slog.Info("final save")
	var saveErr error
	eng.Do(func(s *engine.Simulation) { saveErr = db.SaveWorldState(s) })
	if saveErr != nil {
		slog.Error("final save failed", "error", saveErr)
	}

	fmt.Println("Simulation stopped. World saved.")
}
