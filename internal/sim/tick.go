package sim

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"btcsim/internal/mining"
	"btcsim/internal/model"
)

// AdvanceTick advances the simulation by exactly one simulated day. It is an
// idempotent no-op unless the session is Running. Order per firing: expire
// stale effects, consume due scheduled events, recompute the energy table,
// step the price model, apply mining to every player, emit the persistence
// batch. Reaching the configured end date transitions to Ended.
func (s *Session) AdvanceTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.StatusRunning {
		return
	}
	started := time.Now()

	day := s.simDay(s.tick)
	if day.After(s.cfg.EndDate) {
		s.end("reached end of simulation window")
		return
	}
	tickNum := s.tick + 1

	s.sched.Purge(tickNum)
	s.sched.ApplyDue(model.DayString(day), tickNum)
	energy := s.energyPricesLocked()

	// One daily candle. Event volatility boosts stack onto the admin
	// multiplier for this day only.
	p := s.params
	p.VolMultiplier *= s.sched.VolMultiplier()
	fairValue := s.oracle.ValueAt(day)
	bias := s.sched.Bias("BTC", tickNum)
	candle := s.walk.StepDay(day.Unix(), s.lastClose, fairValue, bias, p)

	if n := len(s.candles); n > 0 && candle.Time != s.candles[n-1].Time+86400 {
		log.Panicf("sim: non-monotonic candle time: prev=%d next=%d", s.candles[n-1].Time, candle.Time)
	}
	s.candles = append(s.candles, candle)
	s.prevClose = s.lastClose
	s.lastClose = candle.Close

	batch := model.PersistBatch{Tick: tickNum}
	now := time.Now().UnixMilli()

	// Mining accrual is pinned to the simulated day: one tick, one day of
	// yield and energy, regardless of real-time cadence.
	networkTHs := s.hashrate.At(day) * s.sched.HashrateMultiplier()
	in := mining.Inputs{Date: day, BTCPrice: candle.Close, NetworkTHs: networkTHs, EnergyPrices: energy}
	for _, pl := range s.players {
		m := mining.Compute(pl, in)
		mining.Apply(pl, m, candle.Close)
		if m.EnergyCostPerDay > 0 {
			batch.Costs = append(batch.Costs, model.CostRecord{
				ID: uuid.NewString(), PlayerID: pl.ID, Type: "ENERGY",
				Amount: m.EnergyCostPerDay, Timestamp: now,
			})
		}
		batch.Wallets = append(batch.Wallets, model.WalletRecord{PlayerID: pl.ID, Cash: pl.Cash})
		if h, ok := pl.Holdings["BTC"]; ok {
			batch.Holdings = append(batch.Holdings, model.HoldingRecord{
				PlayerID: pl.ID, Symbol: "BTC", Qty: h.Qty, AvgEntry: h.AvgEntry,
			})
		}
	}

	for _, item := range s.sched.DrainTriggered() {
		s.logAdmin("news: " + item.Headline)
		batch.News = append(batch.News, model.NewsRecord{
			ID: item.ID, Date: item.Date, Headline: item.Headline,
			Body: item.Body, Timestamp: item.Timestamp,
		})
		if s.met != nil {
			s.met.NewsEventsTotal.Inc()
		}
	}

	batch.Market = append(batch.Market, s.marketRecordLocked(bias, fairValue, now))
	s.tick = tickNum
	batch.SimState = s.stateLocked()

	if tickNum%snapshotEvery == 0 {
		if rows := s.leaderboardLocked(); len(rows) > 0 {
			if payload, err := json.Marshal(rows); err == nil {
				batch.Snapshot = &model.SnapshotRecord{
					RoomID: s.cfg.RoomID, Tick: tickNum, CreatedAt: now, Leaderboard: payload,
				}
				if s.met != nil {
					s.met.LeaderboardSnaps.Inc()
				}
			}
		}
	}

	s.enqueue(batch)

	if s.met != nil {
		s.met.TicksTotal.Inc()
		s.met.TickDuration.Observe(time.Since(started).Seconds())
	}
}

// marketRecordLocked builds the per-asset market upsert. Caller holds the lock.
func (s *Session) marketRecordLocked(bias *model.Bias, fairValue float64, now int64) model.MarketRecord {
	rec := model.MarketRecord{
		Symbol:        "BTC",
		LastPrice:     s.lastClose,
		PreviousPrice: s.prevClose,
		FairValue:     fairValue,
		UpdatedAt:     now,
	}
	if bias != nil {
		rec.BiasDirection = string(bias.Direction)
		rec.BiasStrength = bias.Strength
		rec.BiasUntilTick = bias.UntilTick
	}
	return rec
}

// energyPricesLocked resolves the effective energy table: base prices, event
// deltas, then admin overrides pinning a region outright. Caller holds the lock.
func (s *Session) energyPricesLocked() map[model.Region]float64 {
	prices := s.sched.EnergyPrices(model.BaseEnergyPrices)
	for region, price := range s.energyOverrides {
		prices[region] = price
	}
	return prices
}
