package persistence

import (
	"bytes"
	"testing"

	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
)

func TestSnapshotRoundTrip(t *testing.T) {
	sim := seedSim(t)

	var buf bytes.Buffer
	if err := Capture(sim).Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	snap, err := DecodeSnapshot(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	p := tuning.Default()
	p.World.FertileZones = 0
	restored := snap.Build(&p, registry.Builtin())

	if restored.Seed != sim.Seed || restored.Tick != sim.Tick || restored.Now != sim.Now {
		t.Errorf("clock = (%d, %d, %f), want (%d, %d, %f)",
			restored.Seed, restored.Tick, restored.Now, sim.Seed, sim.Tick, sim.Now)
	}
	if len(restored.Agents) != len(sim.Agents) {
		t.Fatalf("population = %d, want %d", len(restored.Agents), len(sim.Agents))
	}

	a := restored.Agent(1)
	if a == nil || a.Name != "Astrid Voss" {
		t.Fatal("agent 1 lost in the stream")
	}
	if got := a.CountItem("wood"); got != 3 {
		t.Errorf("carried wood = %d, want 3", got)
	}
	if len(a.Know.Zones) != 1 {
		t.Errorf("memory zones = %d, want 1", len(a.Know.Zones))
	}

	if len(restored.World.Buildings) != 1 || len(restored.World.Resources) != 1 {
		t.Fatalf("world entities = %d buildings, %d resources",
			len(restored.World.Buildings), len(restored.World.Resources))
	}
	for _, r := range restored.World.Resources {
		if r.Qty != 6 {
			t.Errorf("resource qty = %d, want 6", r.Qty)
		}
	}

	if f := restored.Factions.Get(a.FactionID); f == nil || !f.HasMember(1) {
		t.Fatal("faction lost in the stream")
	}
	if restored.Market.Price("bread") != sim.Market.Price("bread") {
		t.Errorf("price drifted: %f vs %f", restored.Market.Price("bread"), sim.Market.Price("bread"))
	}
	if len(restored.Events) != len(sim.Events) {
		t.Errorf("events = %d, want %d", len(restored.Events), len(sim.Events))
	}

	// The restored world must keep ticking and issuing fresh IDs.
	restored.Advance(0.1)
	if restored.Tick != sim.Tick+1 {
		t.Errorf("tick after resume = %d, want %d", restored.Tick, sim.Tick+1)
	}
	if got := restored.Spawner.PeekNextID(); got != 3 {
		t.Errorf("next agent id = %d, want 3", got)
	}
}

func TestSnapshotDecodeGarbage(t *testing.T) {
	if _, err := DecodeSnapshot(bytes.NewReader([]byte("not a snapshot"))); err == nil {
		t.Fatal("garbage stream decoded without error")
	}
}
