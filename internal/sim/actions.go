package sim

import (
	"time"

	"github.com/google/uuid"

	"btcsim/internal/ledger"
	"btcsim/internal/model"
)

// Action-kind keys for the rate limiter.
const (
	kindTrade  = "trade"
	kindRig    = "rig"
	kindUnlock = "unlock"
)

// Buy executes a market buy for the player at the current price.
func (s *Session) Buy(playerID, symbol string, qty float64) model.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, price, res := s.tradeContext(playerID, symbol, kindTrade)
	if !res.OK {
		return s.reject(res)
	}
	if res = ledger.Buy(p, symbol, qty, price); !res.OK {
		return s.reject(res)
	}
	s.recordTrade(p, symbol, "BUY", qty, price)
	return res
}

// Sell executes a market sell for the player at the current price.
func (s *Session) Sell(playerID, symbol string, qty float64) model.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, price, res := s.tradeContext(playerID, symbol, kindTrade)
	if !res.OK {
		return s.reject(res)
	}
	if res = ledger.Sell(p, symbol, qty, price); !res.OK {
		return s.reject(res)
	}
	s.recordTrade(p, symbol, "SELL", qty, price)
	return res
}

// BuyRig purchases count rigs of the given catalog key into region.
func (s *Session) BuyRig(playerID, rigKey string, region model.Region, count int) model.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, res := s.actionPlayer(playerID, kindRig)
	if !res.OK {
		return s.reject(res)
	}
	spec, ok := model.RigByKey(rigKey)
	if !ok {
		return s.reject(model.Fail(model.ErrInvalidRequest, "unknown rig type "+rigKey))
	}
	if spec.UnlockDate != "" && model.DayString(s.simDay(s.tick)) < spec.UnlockDate {
		return s.reject(model.Fail(model.ErrAssetLocked, spec.Name+" is not yet on the market"))
	}

	rigs, res := ledger.BuyRigs(p, spec, region, count)
	if !res.OK {
		return s.reject(res)
	}
	if s.met != nil {
		s.met.RigActionsTotal.WithLabelValues("buy").Add(float64(len(rigs)))
	}
	s.enqueue(model.PersistBatch{
		Tick:    s.tick,
		Rigs:    rigs,
		Wallets: []model.WalletRecord{{PlayerID: p.ID, Cash: p.Cash}},
	})
	return res
}

// SellRig liquidates rigs, either one by id or count by region/type filters.
func (s *Session) SellRig(playerID string, sel ledger.SellRigSelection) model.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, res := s.actionPlayer(playerID, kindRig)
	if !res.OK {
		return s.reject(res)
	}
	ids, res := ledger.SellRigs(p, sel)
	if !res.OK {
		return s.reject(res)
	}
	if s.met != nil {
		s.met.RigActionsTotal.WithLabelValues("sell").Add(float64(len(ids)))
	}
	s.enqueue(model.PersistBatch{
		Tick:       s.tick,
		RigDeletes: ids,
		Wallets:    []model.WalletRecord{{PlayerID: p.ID, Cash: p.Cash}},
	})
	return res
}

// UnlockRegion buys access to an additional mining region.
func (s *Session) UnlockRegion(playerID string, region model.Region) model.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, res := s.actionPlayer(playerID, kindUnlock)
	if !res.OK {
		return s.reject(res)
	}
	if res = ledger.UnlockRegion(p, region, model.RegionUnlockFee); !res.OK {
		return s.reject(res)
	}
	s.enqueue(model.PersistBatch{
		Tick: s.tick,
		Costs: []model.CostRecord{{
			ID: uuid.NewString(), PlayerID: p.ID, Type: "UNLOCK",
			Amount: model.RegionUnlockFee, Timestamp: time.Now().UnixMilli(),
		}},
		Wallets: []model.WalletRecord{{PlayerID: p.ID, Cash: p.Cash}},
	})
	return res
}

// actionPlayer validates the common action preconditions: session running,
// known player, rate limit. Caller holds the lock.
func (s *Session) actionPlayer(playerID, kind string) (*model.Player, model.ActionResult) {
	if s.status != model.StatusRunning {
		return nil, model.Fail(model.ErrNotRunning, "session is "+string(s.status))
	}
	p, ok := s.players[playerID]
	if !ok {
		return nil, model.Fail(model.ErrUnknownPlayer, "unknown player")
	}
	if !s.limiter.Allow(playerID, kind) {
		return nil, model.Fail(model.ErrRateLimited, "too many actions, slow down")
	}
	return p, model.Ok()
}

// tradeContext extends actionPlayer with symbol resolution and the current
// fill price. Caller holds the lock.
func (s *Session) tradeContext(playerID, symbol, kind string) (*model.Player, float64, model.ActionResult) {
	p, res := s.actionPlayer(playerID, kind)
	if !res.OK {
		return nil, 0, res
	}
	if _, ok := model.AssetBySymbol(symbol); !ok {
		return nil, 0, model.Fail(model.ErrUnknownSymbol, "unknown symbol "+symbol)
	}
	return p, s.lastClose, model.Ok()
}

// recordTrade persists a fill and the resulting wallet/holding state.
// Caller holds the lock.
func (s *Session) recordTrade(p *model.Player, symbol, side string, qty, price float64) {
	if s.met != nil {
		s.met.TradesTotal.WithLabelValues(side).Inc()
	}
	h := p.Holding(symbol)
	s.enqueue(model.PersistBatch{
		Tick: s.tick,
		Trades: []model.TradeRecord{{
			ID: uuid.NewString(), PlayerID: p.ID, Symbol: symbol, Side: side,
			Qty: qty, FillPrice: price, Timestamp: time.Now().UnixMilli(),
		}},
		Wallets:  []model.WalletRecord{{PlayerID: p.ID, Cash: p.Cash}},
		Holdings: []model.HoldingRecord{{PlayerID: p.ID, Symbol: symbol, Qty: h.Qty, AvgEntry: h.AvgEntry}},
	})
}

// reject counts a failed action. Caller holds the lock.
func (s *Session) reject(res model.ActionResult) model.ActionResult {
	if s.met != nil {
		s.met.RejectionsTotal.WithLabelValues(string(res.Kind)).Inc()
	}
	return res
}
