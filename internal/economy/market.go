// Package economy prices goods from supply and demand and values the
// barters agents strike with each other.
package economy

import (
	"sort"

	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
)

// Entry is the supply/demand state for one item across the village.
type Entry struct {
	Item      registry.ItemID `json:"item"`
	Supply    float64         `json:"supply"` // units counted in stocks and hands
	Demand    float64         `json:"demand"` // units the population wants
	Price     float64         `json:"price"`
	BasePrice float64         `json:"base_price"`
}

// Market holds the price board. One market covers the whole map; the
// price an agent quotes in a barter comes from here.
type Market struct {
	Entries    map[registry.ItemID]*Entry `json:"entries"`
	TradeCount int                        `json:"trade_count"` // barters since the last audit
	MostTraded registry.ItemID            `json:"most_traded"`

	tradeVolume map[registry.ItemID]int
}

// NewMarket creates a market with every catalog item at its base price.
func NewMarket(reg *registry.Registry) *Market {
	entries := make(map[registry.ItemID]*Entry, len(reg.Items))
	for id, def := range reg.Items {
		entries[id] = &Entry{
			Item:      id,
			Supply:    1,
			Demand:    1,
			Price:     def.BasePrice,
			BasePrice: def.BasePrice,
		}
	}
	return &Market{
		Entries:     entries,
		tradeVolume: map[registry.ItemID]int{},
	}
}

// ResolvePrice recomputes the price from the current pressures. Scarcity
// raises it, glut lowers it, and the result stays within the floor and
// ceiling multiples of the base price.
func (e *Entry) ResolvePrice(p tuning.Economy) float64 {
	price := e.BasePrice * (1 + e.Demand) / (1 + e.Supply)

	floor := e.BasePrice * p.PriceFloorMult
	ceiling := e.BasePrice * p.PriceCeilMult
	if price < floor {
		price = floor
	}
	if price > ceiling {
		price = ceiling
	}
	e.Price = price
	return price
}

// Audit replaces the census and reprices everything. The engine calls
// it on a slow cadence with supply counted from stocks and inventories
// and demand derived from the population's needs.
func (m *Market) Audit(supply map[registry.ItemID]int, demand map[registry.ItemID]float64, p tuning.Economy) {
	for id, e := range m.Entries {
		e.Supply = float64(supply[id])
		e.Demand = demand[id]
		e.ResolvePrice(p)
	}

	// Roll the trade tally into the headline stat.
	m.MostTraded = ""
	best := 0
	for _, id := range sortedItemIDs(m.tradeVolume) {
		if v := m.tradeVolume[id]; v > best {
			best, m.MostTraded = v, id
		}
	}
	m.tradeVolume = map[registry.ItemID]int{}
}

// Price quotes the current unit price, zero for items off the board.
func (m *Market) Price(item registry.ItemID) float64 {
	if e, ok := m.Entries[item]; ok {
		return e.Price
	}
	return 0
}

// SellValue is what a unit fetches when sold rather than bought: a
// fixed fraction of the quoted price.
func (m *Market) SellValue(item registry.ItemID, p tuning.Economy) float64 {
	return m.Price(item) * p.SellFraction
}

// FairOffer reports whether offering qty of give for qty of take is
// acceptable to the receiving side: the offered value, discounted to
// sell value, must cover what is asked.
func (m *Market) FairOffer(give registry.ItemID, giveQty int, take registry.ItemID, takeQty int, p tuning.Economy) bool {
	offered := m.SellValue(give, p) * float64(giveQty)
	asked := m.Price(take) * float64(takeQty)
	return offered >= asked
}

// RecordTrade tallies a completed barter for the next audit.
func (m *Market) RecordTrade(item registry.ItemID, qty int) {
	if m.tradeVolume == nil {
		m.tradeVolume = map[registry.ItemID]int{}
	}
	m.tradeVolume[item] += qty
	m.TradeCount++
}

// DemandCensus derives per-item demand from population appetite. Each
// hungry point wants nutrition; the want spreads over edible items in
// proportion to how well they feed. Tools and weapons carry a small
// standing demand per head.
func DemandCensus(reg *registry.Registry, population int, hungerGap, thirstGap float64) map[registry.ItemID]float64 {
	demand := make(map[registry.ItemID]float64, len(reg.Items))
	for id, def := range reg.Items {
		switch {
		case def.Nutrition > 0:
			demand[id] += hungerGap / def.Nutrition
		case def.Hydration > 0:
			demand[id] += thirstGap / def.Hydration
		}
		if def.Category == registry.CategoryWeapon || def.Category == registry.CategoryArmor {
			demand[id] += float64(population) * 0.1
		}
		if def.Category == registry.CategoryMaterial {
			demand[id] += float64(population) * 0.25
		}
	}
	return demand
}

func sortedItemIDs(m map[registry.ItemID]int) []registry.ItemID {
	ids := make([]registry.ItemID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
