package social

import (
	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/combat"
	"github.com/talgya/hearthvale/internal/economy"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// Census recomputes every faction's wealth and military strength.
// Wealth is the market value of stock in faction-owned buildings;
// military is the summed fighting power of living members. Raid math
// reads these numbers instead of rescanning the world.
func (fs *Factions) Census(
	byID map[agents.AgentID]*agents.Agent,
	w *world.World,
	m *economy.Market,
	reg *registry.Registry,
	p tuning.Combat,
) {
	for _, f := range fs.Sorted() {
		f.Military = 0
		for _, id := range f.Members {
			a := byID[agents.AgentID(id)]
			if a == nil {
				continue
			}
			f.Military += combat.Power(a, reg, p)
		}

		f.Wealth = 0
		for _, b := range w.SortedBuildings() {
			if b.Faction != f.ID {
				continue
			}
			st := w.Stocks[b.StockID]
			if st == nil {
				continue
			}
			for _, item := range st.SortedItems() {
				f.Wealth += m.Price(item) * float64(st.Items[item])
			}
		}
	}
}

// Prune drops dead agents from member lists and dissolves factions
// with nobody left. Returns the IDs of dissolved factions.
func (fs *Factions) Prune(alive func(uint64) bool) []uint64 {
	var dissolved []uint64
	for _, f := range fs.Sorted() {
		kept := f.Members[:0]
		for _, id := range f.Members {
			if alive(id) {
				kept = append(kept, id)
			}
		}
		f.Members = kept
		if len(f.Members) == 0 {
			dissolved = append(dissolved, f.ID)
			delete(fs.ByID, f.ID)
			for _, other := range fs.Sorted() {
				delete(other.Relations, f.ID)
			}
		}
	}
	return dissolved
}
