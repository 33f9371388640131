// Package ledger implements the per-player bookkeeping operations: trades
// with weighted-average cost basis, rig purchase/sale, and region unlocks.
//
// Operations mutate the player in place and return a value result; a failed
// result guarantees the player is untouched. Callers (the session) hold the
// lock that serializes access to a player.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"btcsim/internal/model"
)

// MaxRigsPerPurchase caps a single bulk rig purchase.
const MaxRigsPerPurchase = 500

// Buy purchases qty of symbol at price, updating the weighted-average entry.
func Buy(p *model.Player, symbol string, qty, price float64) model.ActionResult {
	if qty <= 0 {
		return model.Fail(model.ErrInvalidQuantity, "quantity must be positive")
	}
	cost := qty * price
	if p.Cash-cost < 0 {
		return model.Fail(model.ErrInsufficientFunds, "insufficient cash")
	}

	h := p.Holding(symbol)
	if h.Qty == 0 {
		// From flat the entry is the fill price itself; the weighted form
		// would reintroduce rounding and break exact round-trip P&L.
		h.AvgEntry = price
	} else {
		h.AvgEntry = (h.Qty*h.AvgEntry + cost) / (h.Qty + qty)
	}
	h.Qty += qty
	p.Cash -= cost
	return model.Ok()
}

// Sell disposes qty of symbol at price, realizing P&L against the average
// entry. The average entry resets to zero when the position closes.
func Sell(p *model.Player, symbol string, qty, price float64) model.ActionResult {
	if qty <= 0 {
		return model.Fail(model.ErrInvalidQuantity, "quantity must be positive")
	}
	h := p.Holding(symbol)
	if qty > h.Qty {
		return model.Fail(model.ErrInsufficientHoldings, fmt.Sprintf("holding %g, asked to sell %g", h.Qty, qty))
	}

	h.Qty -= qty
	p.RealizedPnL += qty * (price - h.AvgEntry)
	if h.Qty == 0 {
		h.AvgEntry = 0
	}
	p.Cash += qty * price
	return model.Ok()
}

// BuyRigs purchases count units of the rig spec into region, debiting
// price × count. Returns the created rigs on success.
func BuyRigs(p *model.Player, spec model.RigSpec, region model.Region, count int) ([]*model.Rig, model.ActionResult) {
	if count <= 0 {
		return nil, model.Fail(model.ErrInvalidQuantity, "count must be positive")
	}
	if count > MaxRigsPerPurchase {
		return nil, model.Fail(model.ErrLimitExceeded, fmt.Sprintf("max %d miners per purchase", MaxRigsPerPurchase))
	}
	if !model.ValidRegion(region) {
		return nil, model.Fail(model.ErrInvalidRequest, "unknown region")
	}
	if !p.Unlocked[region] {
		return nil, model.Fail(model.ErrAssetLocked, fmt.Sprintf("region %s is locked", region))
	}
	totalCost := spec.PurchasePrice * float64(count)
	if p.Cash-totalCost < 0 {
		return nil, model.Fail(model.ErrInsufficientFunds, "insufficient cash")
	}

	now := time.Now().UnixMilli()
	created := make([]*model.Rig, 0, count)
	for i := 0; i < count; i++ {
		r := &model.Rig{
			ID:               uuid.NewString(),
			OwnerID:          p.ID,
			Region:           region,
			Type:             spec.Key,
			HashrateTHs:      spec.HashrateTHs,
			EfficiencyWPerTH: spec.EfficiencyWPerTH,
			PurchasePrice:    spec.PurchasePrice,
			ResaleFraction:   spec.ResaleFraction,
			CreatedAt:        now,
		}
		p.Rigs = append(p.Rigs, r)
		created = append(created, r)
	}
	p.Cash -= totalCost
	return created, model.Ok()
}

// SellRigSelection picks rigs to sell: by exact id when rigID is set,
// otherwise up to count rigs matching the optional region/type filters.
type SellRigSelection struct {
	RigID  string
	Region model.Region
	Type   string
	Count  int
}

// SellRigs liquidates the selected rigs at purchase price × resale fraction
// each. Whole units only. Returns the removed rig ids on success.
func SellRigs(p *model.Player, sel SellRigSelection) ([]string, model.ActionResult) {
	var targets []*model.Rig
	if sel.RigID != "" {
		for _, r := range p.Rigs {
			if r.ID == sel.RigID {
				targets = append(targets, r)
				break
			}
		}
	} else {
		count := sel.Count
		if count <= 0 {
			count = 1
		}
		for _, r := range p.Rigs {
			if sel.Region != "" && r.Region != sel.Region {
				continue
			}
			if sel.Type != "" && r.Type != sel.Type {
				continue
			}
			targets = append(targets, r)
			if len(targets) == count {
				break
			}
		}
	}
	if len(targets) == 0 {
		return nil, model.Fail(model.ErrInvalidRequest, "no rigs matched the sale request")
	}

	sold := make(map[string]bool, len(targets))
	ids := make([]string, 0, len(targets))
	for _, r := range targets {
		p.Cash += r.PurchasePrice * r.ResaleFraction
		sold[r.ID] = true
		ids = append(ids, r.ID)
	}
	kept := p.Rigs[:0]
	for _, r := range p.Rigs {
		if !sold[r.ID] {
			kept = append(kept, r)
		}
	}
	p.Rigs = kept
	return ids, model.Ok()
}

// UnlockRegion is a paid expansion into an additional mining region.
func UnlockRegion(p *model.Player, region model.Region, fee float64) model.ActionResult {
	if !model.ValidRegion(region) {
		return model.Fail(model.ErrInvalidRequest, "unknown region")
	}
	if p.Unlocked[region] {
		return model.Fail(model.ErrInvalidRequest, fmt.Sprintf("region %s already unlocked", region))
	}
	if p.Cash-fee < 0 {
		return model.Fail(model.ErrInsufficientFunds, "insufficient cash")
	}
	p.Cash -= fee
	p.Unlocked[region] = true
	return model.Ok()
}

// NetWorth values the player at current market: cash + holdings marked to
// price + rig resale value.
func NetWorth(p *model.Player, prices map[string]float64) float64 {
	nw := p.Cash + p.RigResaleValue()
	for symbol, h := range p.Holdings {
		nw += h.Qty * prices[symbol]
	}
	return nw
}
