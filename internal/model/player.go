package model

// Holding is a weighted-average-cost position in one symbol.
// AvgEntry is zero whenever Qty is zero.
type Holding struct {
	Qty      float64 `json:"qty"`
	AvgEntry float64 `json:"avgEntry"`
}

// Rig is one owned mining unit. Rigs are whole units: created on purchase,
// removed on sale, never split.
type Rig struct {
	ID               string  `json:"id"`
	OwnerID          string  `json:"ownerId"`
	Region           Region  `json:"region"`
	Type             string  `json:"type"`
	HashrateTHs      float64 `json:"hashrateTHs"`
	EfficiencyWPerTH float64 `json:"efficiencyWPerTH"`
	PurchasePrice    float64 `json:"purchasePrice"`
	ResaleFraction   float64 `json:"resaleFraction"`
	CreatedAt        int64   `json:"createdAt"` // wall-clock ms
}

// PowerKW returns the rig's power draw in kilowatts.
func (r *Rig) PowerKW() float64 {
	return r.HashrateTHs * r.EfficiencyWPerTH / 1000
}

// Player is the authoritative per-player ledger. All fields are guarded by
// the owning session's lock; Player itself carries no synchronization.
type Player struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Cash         float64             `json:"cash"`
	StartingCash float64             `json:"startingCash"`
	Holdings     map[string]*Holding `json:"holdings"`
	RealizedPnL  float64             `json:"realizedPnL"`
	Rigs         []*Rig              `json:"rigs"`
	Unlocked     map[Region]bool     `json:"unlockedRegions"`
	CreatedAt    int64               `json:"createdAt"` // wall-clock ms
}

// Holding returns the player's position in symbol, creating the zero
// position on first access.
func (p *Player) Holding(symbol string) *Holding {
	h, ok := p.Holdings[symbol]
	if !ok {
		h = &Holding{}
		p.Holdings[symbol] = h
	}
	return h
}

// TotalHashrateTHs sums the hashrate capacity of all owned rigs.
func (p *Player) TotalHashrateTHs() float64 {
	var sum float64
	for _, r := range p.Rigs {
		sum += r.HashrateTHs
	}
	return sum
}

// RigResaleValue is the cash the player would receive for liquidating every
// rig at its resale fraction.
func (p *Player) RigResaleValue() float64 {
	var sum float64
	for _, r := range p.Rigs {
		sum += r.PurchasePrice * r.ResaleFraction
	}
	return sum
}
