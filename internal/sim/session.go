// Package sim owns the simulation session: the tick orchestrator, the player
// registry and every mutating entry point the transport layer calls. One
// mutex guards a full tick and a full player action; snapshot reads take the
// same lock and copy out. Persistence is emitted as batches on a channel and
// never blocks the tick loop.
package sim

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"btcsim/internal/events"
	"btcsim/internal/histdata"
	"btcsim/internal/ledger"
	"btcsim/internal/metrics"
	"btcsim/internal/model"
	"btcsim/internal/pricemodel"
	"btcsim/internal/ringbuf"
)

const (
	maxNameRunes = 24
	adminLogCap  = 200

	// Leaderboard snapshot row cadence, in ticks.
	snapshotEvery = 10

	rateLimit       = 5
	rateLimitWindow = time.Second

	persistQueueCap = 256
)

// TickIntervals lists the admin-selectable tick cadences in milliseconds.
var TickIntervals = []int{250, 500, 1000, 2000}

// Config is the immutable per-session configuration.
type Config struct {
	RoomID       string
	StartDate    time.Time // first simulated day (UTC midnight)
	EndDate      time.Time // last simulated day, inclusive
	StartingCash float64
	Seed         int64
	BackfillDays int
	TickMs       int // initial cadence
}

// DefaultConfig returns the 2013–2017 scenario configuration.
func DefaultConfig() Config {
	return Config{
		RoomID:       "default",
		StartDate:    time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC),
		StartingCash: 100000,
		Seed:         time.Now().UnixNano(),
		BackfillDays: 52,
		TickMs:       1000,
	}
}

// adminLogEntry is one line of the rolling admin action log.
type adminLogEntry struct {
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// Session is the simulation aggregate. All fields behind mu.
type Session struct {
	mu sync.Mutex

	cfg       Config
	status    model.SimStatus
	tick      int64
	startedAt int64 // wall-clock ms, 0 until first start

	oracle   *histdata.FairValueOracle
	hashrate *histdata.HashrateSeries
	walk     *pricemodel.Model
	params   pricemodel.Params
	sched    *events.Scheduler

	candles   []model.Candle // backfill + live, gapless
	lastClose float64
	prevClose float64 // close of the day before lastClose

	players map[string]*model.Player
	limiter *ledger.Limiter

	// Admin-pinned energy prices, applied after event deltas.
	energyOverrides map[model.Region]float64

	tickMs   int // live-tunable cadence
	adminLog *ringbuf.Ring[adminLogEntry]

	persistCh chan model.PersistBatch
	met       *metrics.Metrics // optional
}

// New creates a session, generates the backfill history and seeds the live
// walk so the first simulated day opens at the backfill's final close.
func New(cfg Config, oracle *histdata.FairValueOracle, hashrate *histdata.HashrateSeries, schedule []model.ScheduledEvent, met *metrics.Metrics) *Session {
	p := pricemodel.DefaultParams()
	walk := pricemodel.New(cfg.Seed)

	startPrice := oracle.ValueAt(cfg.StartDate)
	if startPrice < model.PriceEpsilon {
		startPrice = model.PriceEpsilon
	}
	fairStart := oracle.ValueAt(cfg.StartDate.AddDate(0, 0, -cfg.BackfillDays))
	candles := walk.Backfill(cfg.StartDate.Unix(), cfg.BackfillDays, fairStart, startPrice, p)

	prevClose := startPrice
	if n := len(candles); n > 1 {
		prevClose = candles[n-2].Close
	}

	s := &Session{
		cfg:             cfg,
		status:          model.StatusLobby,
		oracle:          oracle,
		hashrate:        hashrate,
		walk:            walk,
		params:          p,
		sched:           events.New(schedule, p.MinBiasProb, p.MaxBiasProb),
		candles:         candles,
		lastClose:       startPrice,
		prevClose:       prevClose,
		players:         make(map[string]*model.Player),
		limiter:         ledger.NewLimiter(rateLimit, rateLimitWindow),
		energyOverrides: make(map[model.Region]float64),
		tickMs:          cfg.TickMs,
		adminLog:        ringbuf.New[adminLogEntry](adminLogCap),
		persistCh:       make(chan model.PersistBatch, persistQueueCap),
		met:             met,
	}
	log.Printf("[sim] session %s ready: start=%s end=%s seed=%d backfill=%d candles",
		cfg.RoomID, model.DayString(cfg.StartDate), model.DayString(cfg.EndDate), cfg.Seed, len(candles))
	return s
}

// Batches exposes the persistence channel for the storage writer.
func (s *Session) Batches() <-chan model.PersistBatch { return s.persistCh }

// TickInterval returns the current cadence. The timer driver polls this
// between firings so admin cadence changes take effect on the next tick.
func (s *Session) TickInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.tickMs) * time.Millisecond
}

// Status returns the current lifecycle state.
func (s *Session) Status() model.SimStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ReleasePlayer drops a disconnected player's rate-limit windows. The player
// itself stays registered for reconnection.
func (s *Session) ReleasePlayer(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter.Forget(playerID)
}

// JoinOrReconnect registers a player, or returns the existing one when id is
// already known (reconnect). Names are truncated to 24 runes.
func (s *Session) JoinOrReconnect(id, name string) (string, model.ActionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if _, ok := s.players[id]; ok {
			return id, model.Ok()
		}
	}
	if s.status == model.StatusEnded {
		return "", model.Fail(model.ErrNotRunning, "session has ended")
	}

	name = truncateName(name)
	if name == "" {
		name = "anon"
	}
	p := &model.Player{
		ID:           uuid.NewString(),
		Name:         name,
		Cash:         s.cfg.StartingCash,
		StartingCash: s.cfg.StartingCash,
		Holdings:     make(map[string]*model.Holding),
		Unlocked:     map[model.Region]bool{model.StartingRegion: true},
		CreatedAt:    time.Now().UnixMilli(),
	}
	s.players[p.ID] = p
	if s.met != nil {
		s.met.PlayersTotal.Set(float64(len(s.players)))
	}
	log.Printf("[sim] player joined: %s (%s), %d total", p.Name, p.ID, len(s.players))

	batch := model.PersistBatch{
		Tick: s.tick,
		Players: []model.PlayerRecord{{
			ID: p.ID, Name: p.Name, RoomID: s.cfg.RoomID,
			StartingCash: p.StartingCash, CreatedAt: p.CreatedAt,
		}},
		Wallets: []model.WalletRecord{{PlayerID: p.ID, Cash: p.Cash}},
	}
	s.enqueue(batch)
	return p.ID, model.Ok()
}

// Start transitions Lobby or Paused to Running. Admin only.
func (s *Session) Start(admin bool) model.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !admin {
		return model.Fail(model.ErrUnauthorized, "admin action")
	}
	switch s.status {
	case model.StatusLobby, model.StatusPaused:
		s.status = model.StatusRunning
		if s.startedAt == 0 {
			s.startedAt = time.Now().UnixMilli()
		}
		s.logAdmin("simulation started")
		s.enqueueState()
		return model.Ok()
	default:
		return model.Fail(model.ErrInvalidRequest, "cannot start from "+string(s.status))
	}
}

// Pause transitions Running to Paused. Admin only.
func (s *Session) Pause(admin bool) model.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !admin {
		return model.Fail(model.ErrUnauthorized, "admin action")
	}
	if s.status != model.StatusRunning {
		return model.Fail(model.ErrInvalidRequest, "cannot pause from "+string(s.status))
	}
	s.status = model.StatusPaused
	s.logAdmin("simulation paused")
	s.enqueueState()
	return model.Ok()
}

// End is the terminal transition. Admin only.
func (s *Session) End(admin bool) model.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !admin {
		return model.Fail(model.ErrUnauthorized, "admin action")
	}
	if s.status == model.StatusEnded {
		return model.Fail(model.ErrInvalidRequest, "already ended")
	}
	s.end("ended by admin")
	return model.Ok()
}

// end performs the terminal transition. Caller holds the lock.
func (s *Session) end(reason string) {
	s.status = model.StatusEnded
	s.logAdmin("simulation ended: " + reason)
	log.Printf("[sim] session %s ended at tick %d: %s", s.cfg.RoomID, s.tick, reason)
	s.enqueueState()
}

// logAdmin appends to the rolling admin action log. Caller holds the lock.
func (s *Session) logAdmin(msg string) {
	s.adminLog.Push(adminLogEntry{Timestamp: time.Now().UnixMilli(), Message: msg})
}

// enqueue hands a batch to the persistence writer without blocking. A full
// queue drops the batch; the next tick's upserts re-cover wallets, holdings
// and market state, so a drop loses at most append-only rows.
func (s *Session) enqueue(batch model.PersistBatch) {
	if batch.Empty() {
		return
	}
	select {
	case s.persistCh <- batch:
	default:
		log.Printf("[sim] persist queue full, dropping batch for tick %d", batch.Tick)
		if s.met != nil {
			s.met.PersistFailures.Inc()
		}
	}
	if s.met != nil {
		s.met.PersistQueueLen.Set(float64(len(s.persistCh)))
	}
}

// enqueueState persists just the sim-state row. Caller holds the lock.
func (s *Session) enqueueState() {
	s.enqueue(model.PersistBatch{Tick: s.tick, SimState: s.stateLocked()})
}

// stateLocked copies the tick-clock state. Caller holds the lock.
func (s *Session) stateLocked() *model.SimState {
	return &model.SimState{
		RoomID:    s.cfg.RoomID,
		Status:    s.status,
		Tick:      s.tick,
		StartedAt: s.startedAt,
	}
}

// simDay returns the simulated day tick n generates, counting from zero.
func (s *Session) simDay(n int64) time.Time {
	return s.cfg.StartDate.AddDate(0, 0, int(n))
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) > maxNameRunes {
		runes = runes[:maxNameRunes]
	}
	return string(runes)
}
