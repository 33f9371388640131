package sim

import (
	"sort"
	"time"

	"btcsim/internal/histdata"
	"btcsim/internal/ledger"
	"btcsim/internal/mining"
	"btcsim/internal/model"
)

const (
	candleWindow = 52
	newsWindow   = 20
	adminLogShow = 40
	topPositions = 10
)

// MarketView is the per-tick market snapshot broadcast to every client.
type MarketView struct {
	State      model.SimState           `json:"state"`
	SimDate    string                   `json:"simDate"`
	Symbol     string                   `json:"symbol"`
	LastPrice  float64                  `json:"lastPrice"`
	PrevPrice  float64                  `json:"previousPrice"`
	FairValue  float64                  `json:"fairValue"`
	Candles    []model.Candle           `json:"candles"`
	BlockBTC   float64                  `json:"blockRewardBTC"`
	NetworkTHs float64                  `json:"networkHashrateTHs"`
	Halving    int                      `json:"nextHalvingCountdownDays"`
	Energy     map[model.Region]float64 `json:"energyPrices"`
	News       []model.NewsItem         `json:"news"`
	TickMs     int                      `json:"tickMs"`
}

// PlayerView is one player's full ledger plus derived mining metrics.
type PlayerView struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	Cash          float64                  `json:"cash"`
	StartingCash  float64                  `json:"startingCash"`
	Holdings      map[string]model.Holding `json:"holdings"`
	Rigs          []model.Rig              `json:"rigs"`
	Unlocked      []model.Region           `json:"unlockedRegions"`
	RealizedPnL   float64                  `json:"realizedPnL"`
	UnrealizedPnL float64                  `json:"unrealizedPnL"`
	NetWorth      float64                  `json:"netWorth"`
	Mining        mining.Metrics           `json:"mining"`
}

// positionSummary is one row of the admin positions table.
type positionSummary struct {
	PlayerID    string  `json:"playerId"`
	Name        string  `json:"name"`
	Cash        float64 `json:"cash"`
	BTC         float64 `json:"btc"`
	Rigs        int     `json:"rigs"`
	HashrateTHs float64 `json:"hashrateTHs"`
	NetWorth    float64 `json:"netWorth"`
}

// AdminView is the administrative projection: live parameters, the rolling
// action log and the largest positions.
type AdminView struct {
	State         model.SimState           `json:"state"`
	SimDate       string                   `json:"simDate"`
	Players       int                      `json:"players"`
	TickMs        int                      `json:"tickMs"`
	DailyStepPct  float64                  `json:"dailyStepPct"`
	VolMultiplier float64                  `json:"volMultiplier"`
	EventVolMult  float64                  `json:"eventVolMultiplier"`
	Bias          *model.Bias              `json:"bias,omitempty"`
	Energy        map[model.Region]float64 `json:"energyPrices"`
	Overrides     map[model.Region]float64 `json:"energyOverrides"`
	Log           []adminLogEntry          `json:"log"` // newest first
	Positions     []positionSummary        `json:"positions"`
	RigsByRegion  map[model.Region]int     `json:"totalRigsByRegion"`
	TotalCash     float64                  `json:"totalCash"`
}

// MarketSnapshot copies out the broadcastable market state.
func (s *Session) MarketSnapshot() MarketView {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.simDay(s.tick)
	candles := s.candles
	if len(candles) > candleWindow {
		candles = candles[len(candles)-candleWindow:]
	}
	out := make([]model.Candle, len(candles))
	copy(out, candles)

	return MarketView{
		State:      *s.stateLocked(),
		SimDate:    model.DayString(day),
		Symbol:     "BTC",
		LastPrice:  s.lastClose,
		PrevPrice:  s.prevClose,
		FairValue:  s.oracle.ValueAt(day),
		Candles:    out,
		BlockBTC:   histdata.BlockReward(day),
		NetworkTHs: s.hashrate.At(day) * s.sched.HashrateMultiplier(),
		Halving:    histdata.NextHalvingDays(day),
		Energy:     s.energyPricesLocked(),
		News:       s.sched.News(newsWindow),
		TickMs:     s.tickMs,
	}
}

// LeaderboardSnapshot returns players ranked by total P&L, best first.
func (s *Session) LeaderboardSnapshot() []model.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderboardLocked()
}

// leaderboardLocked builds the ranked rows. Caller holds the lock.
func (s *Session) leaderboardLocked() []model.LeaderboardEntry {
	prices := map[string]float64{"BTC": s.lastClose}
	rows := make([]model.LeaderboardEntry, 0, len(s.players))
	for _, p := range s.players {
		nw := ledger.NetWorth(p, prices)
		rows = append(rows, model.LeaderboardEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Cash:     p.Cash,
			NetWorth: nw,
			PnL:      nw - p.StartingCash,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PnL != rows[j].PnL {
			return rows[i].PnL > rows[j].PnL
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// PlayerSnapshot copies out one player's ledger and mining metrics.
func (s *Session) PlayerSnapshot(playerID string) (PlayerView, model.ActionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return PlayerView{}, model.Fail(model.ErrUnknownPlayer, "unknown player")
	}

	day := s.simDay(s.tick)
	m := mining.Compute(p, mining.Inputs{
		Date:         day,
		BTCPrice:     s.lastClose,
		NetworkTHs:   s.hashrate.At(day) * s.sched.HashrateMultiplier(),
		EnergyPrices: s.energyPricesLocked(),
	})

	holdings := make(map[string]model.Holding, len(p.Holdings))
	var unrealized float64
	for symbol, h := range p.Holdings {
		holdings[symbol] = *h
		if symbol == "BTC" {
			unrealized += h.Qty * (s.lastClose - h.AvgEntry)
		}
	}
	rigs := make([]model.Rig, len(p.Rigs))
	for i, r := range p.Rigs {
		rigs[i] = *r
	}
	unlocked := make([]model.Region, 0, len(p.Unlocked))
	for _, region := range model.Regions {
		if p.Unlocked[region] {
			unlocked = append(unlocked, region)
		}
	}

	return PlayerView{
		ID:            p.ID,
		Name:          p.Name,
		Cash:          p.Cash,
		StartingCash:  p.StartingCash,
		Holdings:      holdings,
		Rigs:          rigs,
		Unlocked:      unlocked,
		RealizedPnL:   p.RealizedPnL,
		UnrealizedPnL: unrealized,
		NetWorth:      ledger.NetWorth(p, map[string]float64{"BTC": s.lastClose}),
		Mining:        m,
	}, model.Ok()
}

// AdminSnapshot copies out the administrative view. Admin only.
func (s *Session) AdminSnapshot(admin bool) (AdminView, model.ActionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !admin {
		return AdminView{}, model.Fail(model.ErrUnauthorized, "admin action")
	}

	day := s.simDay(s.tick)
	logOut := s.adminLog.Newest(adminLogShow)

	prices := map[string]float64{"BTC": s.lastClose}
	positions := make([]positionSummary, 0, len(s.players))
	for _, p := range s.players {
		positions = append(positions, positionSummary{
			PlayerID:    p.ID,
			Name:        p.Name,
			Cash:        p.Cash,
			BTC:         p.Holding("BTC").Qty,
			Rigs:        len(p.Rigs),
			HashrateTHs: p.TotalHashrateTHs(),
			NetWorth:    ledger.NetWorth(p, prices),
		})
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].BTC > positions[j].BTC
	})
	if len(positions) > topPositions {
		positions = positions[:topPositions]
	}

	rigsByRegion := make(map[model.Region]int, len(model.Regions))
	for _, region := range model.Regions {
		rigsByRegion[region] = 0
	}
	totalCash := 0.0
	for _, p := range s.players {
		totalCash += p.Cash
		for _, rig := range p.Rigs {
			rigsByRegion[rig.Region]++
		}
	}

	overrides := make(map[model.Region]float64, len(s.energyOverrides))
	for region, price := range s.energyOverrides {
		overrides[region] = price
	}

	view := AdminView{
		State:         *s.stateLocked(),
		SimDate:       model.DayString(day),
		Players:       len(s.players),
		TickMs:        s.tickMs,
		DailyStepPct:  s.params.DailyStepPct,
		VolMultiplier: s.params.VolMultiplier,
		EventVolMult:  s.sched.VolMultiplier(),
		Energy:        s.energyPricesLocked(),
		Overrides:     overrides,
		Log:           logOut,
		Positions:     positions,
		RigsByRegion:  rigsByRegion,
		TotalCash:     totalCash,
	}
	if b := s.sched.Bias("BTC", s.tick+1); b != nil {
		cp := *b
		view.Bias = &cp
	}
	return view, model.Ok()
}

// SimDate returns the simulated date the next tick will generate.
func (s *Session) SimDate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simDay(s.tick)
}
