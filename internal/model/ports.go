package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the simulation engine from concrete storage
// (SQLite, Redis). The engine emits point-in-time PersistBatch values after
// each tick and after mutating actions; writers drain them asynchronously so
// a slow write can never stall the tick loop. The engine never reads any of
// this back mid-session — session state lives in memory.

// PlayerRecord is the durable identity row for a player.
type PlayerRecord struct {
	ID           string
	Name         string
	RoomID       string
	StartingCash float64
	CreatedAt    int64
}

// WalletRecord is a cash upsert.
type WalletRecord struct {
	PlayerID string
	Cash     float64
}

// HoldingRecord is a position upsert.
type HoldingRecord struct {
	PlayerID string
	Symbol   string
	Qty      float64
	AvgEntry float64
}

// TradeRecord is one executed trade.
type TradeRecord struct {
	ID        string
	PlayerID  string
	Symbol    string
	Side      string // "BUY" or "SELL"
	Qty       float64
	FillPrice float64
	Timestamp int64
}

// CostRecord is one cost-ledger entry (energy debit, region unlock fee).
type CostRecord struct {
	ID        string
	PlayerID  string
	Type      string // "ENERGY", "UNLOCK"
	Amount    float64
	Timestamp int64
}

// MarketRecord is the per-asset market state upsert.
type MarketRecord struct {
	Symbol        string
	LastPrice     float64
	PreviousPrice float64
	FairValue     float64
	BiasDirection string
	BiasStrength  float64
	BiasUntilTick int64
	UpdatedAt     int64
}

// NewsRecord is one persisted news event.
type NewsRecord struct {
	ID        string
	Date      string
	Headline  string
	Body      string
	Timestamp int64
}

// SnapshotRecord is a periodic leaderboard snapshot (JSON rows).
type SnapshotRecord struct {
	RoomID      string
	Tick        int64
	CreatedAt   int64
	Leaderboard []byte
}

// PersistBatch is one point-in-time set of dirty records. Slices may be
// empty; pointer fields are nil when unchanged.
type PersistBatch struct {
	Tick       int64
	Players    []PlayerRecord
	Wallets    []WalletRecord
	Holdings   []HoldingRecord
	Rigs       []*Rig
	RigDeletes []string
	Trades     []TradeRecord
	Costs      []CostRecord
	News       []NewsRecord
	Market     []MarketRecord
	SimState   *SimState
	Snapshot   *SnapshotRecord
}

// Empty reports whether the batch carries no records at all.
func (b *PersistBatch) Empty() bool {
	return len(b.Players) == 0 && len(b.Wallets) == 0 && len(b.Holdings) == 0 &&
		len(b.Rigs) == 0 && len(b.RigDeletes) == 0 && len(b.Trades) == 0 &&
		len(b.Costs) == 0 && len(b.News) == 0 && len(b.Market) == 0 &&
		b.SimState == nil && b.Snapshot == nil
}

// BatchWriter drains persistence batches into durable storage.
type BatchWriter interface {
	// Run reads batches from batchCh and writes them transactionally.
	// Blocks until ctx is cancelled or batchCh is closed.
	Run(ctx context.Context, batchCh <-chan PersistBatch)

	// Close releases underlying resources.
	Close() error
}

// LeaderboardEntry is one row of the ranked leaderboard projection.
type LeaderboardEntry struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	Cash     float64 `json:"cash"`
	NetWorth float64 `json:"netWorth"`
	PnL      float64 `json:"pnl"`
}

// SnapshotPublisher pushes per-tick view snapshots to a cache / pub-sub
// fan-out (Redis). All calls are fire-and-forget from the engine's view.
type SnapshotPublisher interface {
	// PublishMarket publishes the JSON market snapshot for a tick.
	PublishMarket(ctx context.Context, payload []byte) error

	// UpdateLeaderboard replaces the ranked leaderboard cache and publishes it.
	UpdateLeaderboard(ctx context.Context, rows []LeaderboardEntry) error

	// Close releases underlying resources.
	Close() error
}
