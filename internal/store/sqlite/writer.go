// Package sqlite is the persistence gateway: a single-goroutine writer that
// drains the session's batch channel into transactional writes. A failed
// commit is logged and dropped; the in-memory ledger is authoritative and
// the next tick's upserts re-cover mutable state.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"btcsim/internal/metrics"
	"btcsim/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/simulation.db"
}

// Writer is a single-goroutine SQLite writer with per-batch transactions.
type Writer struct {
	db  *sql.DB
	met *metrics.Metrics // optional
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig, met *metrics.Metrics) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db, met: met}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id            TEXT PRIMARY KEY,
			name          TEXT    NOT NULL,
			room_id       TEXT    NOT NULL,
			starting_cash REAL    NOT NULL,
			created_at    INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS wallets (
			player_id TEXT PRIMARY KEY,
			cash      REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS holdings (
			player_id TEXT NOT NULL,
			symbol    TEXT NOT NULL,
			qty       REAL NOT NULL,
			avg_entry REAL NOT NULL,
			PRIMARY KEY (player_id, symbol)
		);

		CREATE TABLE IF NOT EXISTS mining_rigs (
			id             TEXT PRIMARY KEY,
			owner_id       TEXT    NOT NULL,
			region         TEXT    NOT NULL,
			type           TEXT    NOT NULL,
			hashrate_ths   REAL    NOT NULL,
			watts_per_th   REAL    NOT NULL,
			purchase_price REAL    NOT NULL,
			resale_frac    REAL    NOT NULL,
			created_at     INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS trades (
			id         TEXT PRIMARY KEY,
			player_id  TEXT    NOT NULL,
			symbol     TEXT    NOT NULL,
			side       TEXT    NOT NULL,
			qty        REAL    NOT NULL,
			fill_price REAL    NOT NULL,
			ts         INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS cost_ledger (
			id        TEXT PRIMARY KEY,
			player_id TEXT    NOT NULL,
			type      TEXT    NOT NULL,
			amount    REAL    NOT NULL,
			ts        INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS market_state (
			symbol          TEXT PRIMARY KEY,
			last_price      REAL    NOT NULL,
			previous_price  REAL    NOT NULL,
			fair_value      REAL    NOT NULL,
			bias_direction  TEXT,
			bias_strength   REAL,
			bias_until_tick INTEGER,
			updated_at      INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sim_state (
			room_id    TEXT PRIMARY KEY,
			status     TEXT    NOT NULL,
			tick       INTEGER NOT NULL,
			started_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS news_events (
			id       TEXT PRIMARY KEY,
			sim_date TEXT    NOT NULL,
			headline TEXT    NOT NULL,
			body     TEXT,
			ts       INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
			room_id    TEXT    NOT NULL,
			tick       INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			rows       TEXT    NOT NULL,
			PRIMARY KEY (room_id, tick)
		);

		CREATE INDEX IF NOT EXISTS idx_trades_player   ON trades (player_id, ts);
		CREATE INDEX IF NOT EXISTS idx_costs_player    ON cost_ledger (player_id, ts);
		CREATE INDEX IF NOT EXISTS idx_rigs_owner      ON mining_rigs (owner_id);
	`)
	return err
}

// Run reads batches from batchCh and commits each in a single transaction.
// Blocks until ctx is cancelled or batchCh is closed.
func (w *Writer) Run(ctx context.Context, batchCh <-chan model.PersistBatch) {
	for {
		select {
		case <-ctx.Done():
			// Drain whatever the session already emitted before stopping.
			for {
				select {
				case batch, ok := <-batchCh:
					if !ok {
						return
					}
					w.commit(batch)
				default:
					return
				}
			}

		case batch, ok := <-batchCh:
			if !ok {
				return
			}
			w.commit(batch)
		}
	}
}

func (w *Writer) commit(batch model.PersistBatch) {
	if batch.Empty() {
		return
	}
	start := time.Now()
	if err := w.writeBatch(batch); err != nil {
		log.Printf("[sqlite] batch commit error at tick %d: %v", batch.Tick, err)
		if w.met != nil {
			w.met.PersistFailures.Inc()
		}
		return
	}
	if w.met != nil {
		w.met.PersistBatchDur.Observe(time.Since(start).Seconds())
	}
}

// writeBatch commits one batch in a single transaction.
func (w *Writer) writeBatch(b model.PersistBatch) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	if err := writeRecords(tx, b); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func writeRecords(tx *sql.Tx, b model.PersistBatch) error {
	for _, p := range b.Players {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO players (id, name, room_id, starting_cash, created_at) VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.RoomID, p.StartingCash, p.CreatedAt,
		); err != nil {
			return err
		}
	}
	for _, wlt := range b.Wallets {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO wallets (player_id, cash) VALUES (?, ?)`,
			wlt.PlayerID, wlt.Cash,
		); err != nil {
			return err
		}
	}
	for _, h := range b.Holdings {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO holdings (player_id, symbol, qty, avg_entry) VALUES (?, ?, ?, ?)`,
			h.PlayerID, h.Symbol, h.Qty, h.AvgEntry,
		); err != nil {
			return err
		}
	}
	for _, r := range b.Rigs {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO mining_rigs (id, owner_id, region, type, hashrate_ths, watts_per_th, purchase_price, resale_frac, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.OwnerID, string(r.Region), r.Type, r.HashrateTHs, r.EfficiencyWPerTH, r.PurchasePrice, r.ResaleFraction, r.CreatedAt,
		); err != nil {
			return err
		}
	}
	for _, id := range b.RigDeletes {
		if _, err := tx.Exec(`DELETE FROM mining_rigs WHERE id = ?`, id); err != nil {
			return err
		}
	}
	for _, t := range b.Trades {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO trades (id, player_id, symbol, side, qty, fill_price, ts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.PlayerID, t.Symbol, t.Side, t.Qty, t.FillPrice, t.Timestamp,
		); err != nil {
			return err
		}
	}
	for _, c := range b.Costs {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO cost_ledger (id, player_id, type, amount, ts) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.PlayerID, c.Type, c.Amount, c.Timestamp,
		); err != nil {
			return err
		}
	}
	for _, n := range b.News {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO news_events (id, sim_date, headline, body, ts) VALUES (?, ?, ?, ?, ?)`,
			n.ID, n.Date, n.Headline, n.Body, n.Timestamp,
		); err != nil {
			return err
		}
	}
	for _, m := range b.Market {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO market_state (symbol, last_price, previous_price, fair_value, bias_direction, bias_strength, bias_until_tick, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.Symbol, m.LastPrice, m.PreviousPrice, m.FairValue, m.BiasDirection, m.BiasStrength, m.BiasUntilTick, m.UpdatedAt,
		); err != nil {
			return err
		}
	}
	if s := b.SimState; s != nil {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO sim_state (room_id, status, tick, started_at) VALUES (?, ?, ?, ?)`,
			s.RoomID, string(s.Status), s.Tick, s.StartedAt,
		); err != nil {
			return err
		}
	}
	if snap := b.Snapshot; snap != nil {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO leaderboard_snapshots (room_id, tick, created_at, rows) VALUES (?, ?, ?, ?)`,
			snap.RoomID, snap.Tick, snap.CreatedAt, string(snap.Leaderboard),
		); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
