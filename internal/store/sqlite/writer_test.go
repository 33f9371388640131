package sqlite

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"btcsim/internal/model"
)

func newTestStore(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.db")
	w, err := New(WriterConfig{DBPath: path}, nil)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return w, r
}

func TestBatchRoundTrip(t *testing.T) {
	w, r := newTestStore(t)

	rows, _ := json.Marshal([]model.LeaderboardEntry{
		{PlayerID: "p1", Name: "alice", Cash: 99000, NetWorth: 100500, PnL: 500},
	})
	batch := model.PersistBatch{
		Tick:    10,
		Players: []model.PlayerRecord{{ID: "p1", Name: "alice", RoomID: "room", StartingCash: 100000, CreatedAt: 1}},
		Wallets: []model.WalletRecord{{PlayerID: "p1", Cash: 99000}},
		Trades: []model.TradeRecord{
			{ID: "t1", PlayerID: "p1", Symbol: "BTC", Side: "BUY", Qty: 2, FillPrice: 500, Timestamp: 100},
			{ID: "t2", PlayerID: "p1", Symbol: "BTC", Side: "SELL", Qty: 1, FillPrice: 600, Timestamp: 200},
		},
		Costs:    []model.CostRecord{{ID: "c1", PlayerID: "p1", Type: "ENERGY", Amount: 3.5, Timestamp: 150}},
		News:     []model.NewsRecord{{ID: "n1", Date: "2013-04-10", Headline: "crash", Body: "panic", Timestamp: 120}},
		SimState: &model.SimState{RoomID: "room", Status: model.StatusRunning, Tick: 10, StartedAt: 5},
		Snapshot: &model.SnapshotRecord{RoomID: "room", Tick: 10, CreatedAt: 99, Leaderboard: rows},
	}
	if err := w.writeBatch(batch); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	trades, err := r.TradesByPlayer("p1", 0)
	if err != nil {
		t.Fatalf("read trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(trades))
	}
	if trades[0].ID != "t2" || trades[1].ID != "t1" {
		t.Errorf("trade order = %s, %s; want newest first", trades[0].ID, trades[1].ID)
	}
	if trades[1].Side != "BUY" || trades[1].Qty != 2 || trades[1].FillPrice != 500 {
		t.Errorf("trade fields = %+v", trades[1])
	}

	costs, err := r.CostsByPlayer("p1", "ENERGY", 0)
	if err != nil {
		t.Fatalf("read costs: %v", err)
	}
	if len(costs) != 1 || costs[0].Amount != 3.5 {
		t.Errorf("costs = %+v, want one 3.5 energy debit", costs)
	}
	if other, _ := r.CostsByPlayer("p1", "UNLOCK", 0); len(other) != 0 {
		t.Errorf("type filter leaked: %+v", other)
	}

	news, err := r.NewsArchive(0)
	if err != nil {
		t.Fatalf("read news: %v", err)
	}
	if len(news) != 1 || news[0].Headline != "crash" || news[0].Date != "2013-04-10" {
		t.Errorf("news = %+v", news)
	}

	snaps, err := r.LeaderboardHistory("room", 0, 0)
	if err != nil {
		t.Fatalf("read snapshots: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Tick != 10 {
		t.Fatalf("snapshots = %+v", snaps)
	}
	if len(snaps[0].Rows) != 1 || snaps[0].Rows[0].Name != "alice" || snaps[0].Rows[0].PnL != 500 {
		t.Errorf("snapshot rows = %+v", snaps[0].Rows)
	}

	state, err := r.LatestSimState("room")
	if err != nil {
		t.Fatalf("read sim state: %v", err)
	}
	if state == nil || state.Status != model.StatusRunning || state.Tick != 10 {
		t.Errorf("sim state = %+v", state)
	}
	if missing, _ := r.LatestSimState("other"); missing != nil {
		t.Errorf("unknown room state = %+v, want nil", missing)
	}
}

func TestRigUpsertAndDelete(t *testing.T) {
	w, _ := newTestStore(t)

	rig := &model.Rig{
		ID: "r1", OwnerID: "p1", Region: model.RegionAmerica, Type: "AVALON_GEN1_2013",
		HashrateTHs: 0.07, EfficiencyWPerTH: 8857, PurchasePrice: 1200, ResaleFraction: 0.45, CreatedAt: 1,
	}
	if err := w.writeBatch(model.PersistBatch{Rigs: []*model.Rig{rig}}); err != nil {
		t.Fatalf("insert rig: %v", err)
	}

	var count int
	if err := w.db.QueryRow(`SELECT COUNT(*) FROM mining_rigs WHERE owner_id = 'p1'`).Scan(&count); err != nil {
		t.Fatalf("count rigs: %v", err)
	}
	if count != 1 {
		t.Fatalf("rigs = %d, want 1", count)
	}

	if err := w.writeBatch(model.PersistBatch{RigDeletes: []string{"r1"}}); err != nil {
		t.Fatalf("delete rig: %v", err)
	}
	if err := w.db.QueryRow(`SELECT COUNT(*) FROM mining_rigs`).Scan(&count); err != nil {
		t.Fatalf("count rigs: %v", err)
	}
	if count != 0 {
		t.Errorf("rigs after delete = %d, want 0", count)
	}
}

func TestWalletUpsertKeepsLatest(t *testing.T) {
	w, _ := newTestStore(t)

	for _, cash := range []float64{100000, 98800, 97550.25} {
		batch := model.PersistBatch{Wallets: []model.WalletRecord{{PlayerID: "p1", Cash: cash}}}
		if err := w.writeBatch(batch); err != nil {
			t.Fatalf("upsert wallet: %v", err)
		}
	}

	var cash float64
	if err := w.db.QueryRow(`SELECT cash FROM wallets WHERE player_id = 'p1'`).Scan(&cash); err != nil {
		t.Fatalf("read wallet: %v", err)
	}
	if cash != 97550.25 {
		t.Errorf("cash = %v, want last upsert 97550.25", cash)
	}
}
