package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"btcsim/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to the persisted history: trade and cost
// ledgers, the news archive, and periodic leaderboard snapshots.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// TradesByPlayer returns a player's fills, newest first.
func (r *Reader) TradesByPlayer(playerID string, limit int) ([]model.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT id, player_id, symbol, side, qty, fill_price, ts
		FROM trades
		WHERE player_id = ?
		ORDER BY ts DESC
		LIMIT ?
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.TradeRecord
	for rows.Next() {
		var t model.TradeRecord
		if err := rows.Scan(&t.ID, &t.PlayerID, &t.Symbol, &t.Side, &t.Qty, &t.FillPrice, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// CostsByPlayer returns a player's cost-ledger entries, newest first. Type
// filters to "ENERGY" or "UNLOCK" when non-empty.
func (r *Reader) CostsByPlayer(playerID, costType string, limit int) ([]model.CostRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, player_id, type, amount, ts
		FROM cost_ledger
		WHERE player_id = ?`
	args := []interface{}{playerID}
	if costType != "" {
		query += ` AND type = ?`
		args = append(args, costType)
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query cost_ledger: %w", err)
	}
	defer rows.Close()

	var costs []model.CostRecord
	for rows.Next() {
		var c model.CostRecord
		if err := rows.Scan(&c.ID, &c.PlayerID, &c.Type, &c.Amount, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite scan cost: %w", err)
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// NewsArchive returns persisted news events, newest first. Unlike the live
// feed this is unbounded history, so callers page with limit.
func (r *Reader) NewsArchive(limit int) ([]model.NewsRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT id, sim_date, headline, COALESCE(body, ''), ts
		FROM news_events
		ORDER BY ts DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query news_events: %w", err)
	}
	defer rows.Close()

	var news []model.NewsRecord
	for rows.Next() {
		var n model.NewsRecord
		if err := rows.Scan(&n.ID, &n.Date, &n.Headline, &n.Body, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite scan news: %w", err)
		}
		news = append(news, n)
	}
	return news, rows.Err()
}

// LeaderboardSnapshot is one decoded historical snapshot row set.
type LeaderboardSnapshot struct {
	Tick      int64                    `json:"tick"`
	CreatedAt int64                    `json:"createdAt"`
	Rows      []model.LeaderboardEntry `json:"rows"`
}

// LeaderboardHistory returns snapshots for a room at or after fromTick,
// oldest first, for plotting net worth over the run.
func (r *Reader) LeaderboardHistory(roomID string, fromTick int64, limit int) ([]LeaderboardSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT tick, created_at, rows
		FROM leaderboard_snapshots
		WHERE room_id = ? AND tick >= ?
		ORDER BY tick ASC
		LIMIT ?
	`, roomID, fromTick, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query leaderboard_snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []LeaderboardSnapshot
	for rows.Next() {
		var s LeaderboardSnapshot
		var raw []byte
		if err := rows.Scan(&s.Tick, &s.CreatedAt, &raw); err != nil {
			return nil, fmt.Errorf("sqlite scan snapshot: %w", err)
		}
		if err := json.Unmarshal(raw, &s.Rows); err != nil {
			return nil, fmt.Errorf("sqlite snapshot rows at tick %d: %w", s.Tick, err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// LatestSimState loads the persisted tick clock for a room, nil if the room
// has never been persisted.
func (r *Reader) LatestSimState(roomID string) (*model.SimState, error) {
	var st model.SimState
	err := r.db.QueryRow(`
		SELECT room_id, status, tick, started_at
		FROM sim_state
		WHERE room_id = ?
	`, roomID).Scan(&st.RoomID, &st.Status, &st.Tick, &st.StartedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read sim_state: %w", err)
	}
	return &st, nil
}

// Close closes the reader connection.
func (r *Reader) Close() error {
	return r.db.Close()
}
