package agents

import "github.com/talgya/hearthvale/internal/registry"

// CarryUsed sums the units the agent holds.
func (a *Agent) CarryUsed() int {
	n := 0
	for _, s := range a.Inventory {
		n += s.Qty
	}
	return n
}

// CarryFree is the remaining inventory room.
func (a *Agent) CarryFree() int {
	free := int(a.Traits.Carry) - a.CarryUsed()
	if free < 0 {
		return 0
	}
	return free
}

// InventoryFull reports whether another unit fits.
func (a *Agent) InventoryFull() bool { return a.CarryFree() == 0 }

// CountItem returns how many units of the item the agent carries.
func (a *Agent) CountItem(item registry.ItemID) int {
	for _, s := range a.Inventory {
		if s.Item == item {
			return s.Qty
		}
	}
	return 0
}

// AddItem puts qty units into the inventory, all or nothing against
// carry capacity.
func (a *Agent) AddItem(item registry.ItemID, qty int) bool {
	if qty <= 0 || qty > a.CarryFree() {
		return false
	}
	for i := range a.Inventory {
		if a.Inventory[i].Item == item {
			a.Inventory[i].Qty += qty
			return true
		}
	}
	a.Inventory = append(a.Inventory, ItemStack{Item: item, Qty: qty})
	return true
}

// RemoveItem takes qty units out, all or nothing.
func (a *Agent) RemoveItem(item registry.ItemID, qty int) bool {
	if qty <= 0 {
		return false
	}
	for i := range a.Inventory {
		if a.Inventory[i].Item != item {
			continue
		}
		if a.Inventory[i].Qty < qty {
			return false
		}
		a.Inventory[i].Qty -= qty
		if a.Inventory[i].Qty == 0 {
			a.Inventory = append(a.Inventory[:i], a.Inventory[i+1:]...)
		}
		return true
	}
	return false
}

// BestWeapon returns the strongest weapon carried and its damage bonus.
func (a *Agent) BestWeapon(reg *registry.Registry) (registry.ItemID, float64) {
	var best registry.ItemID
	bestDmg := 0.0
	for _, s := range a.Inventory {
		if d := reg.WeaponDamage(s.Item); d > bestDmg {
			best, bestDmg = s.Item, d
		}
	}
	return best, bestDmg
}

// BestArmor returns the strongest armor carried and its defense.
func (a *Agent) BestArmor(reg *registry.Registry) (registry.ItemID, float64) {
	var best registry.ItemID
	bestDef := 0.0
	for _, s := range a.Inventory {
		if d := reg.ArmorDefense(s.Item); d > bestDef {
			best, bestDef = s.Item, d
		}
	}
	return best, bestDef
}

// Armed reports a visible weapon, observable by others.
func (a *Agent) Armed(reg *registry.Registry) bool {
	_, dmg := a.BestWeapon(reg)
	return dmg > 0
}

// Armored reports visible armor.
func (a *Agent) Armored(reg *registry.Registry) bool {
	_, def := a.BestArmor(reg)
	return def > 0
}
