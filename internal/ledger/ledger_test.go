package ledger

import (
	"math"
	"testing"

	"btcsim/internal/model"
)

func newTestPlayer(cash float64) *model.Player {
	return &model.Player{
		ID:           "p1",
		Name:         "tester",
		Cash:         cash,
		StartingCash: cash,
		Holdings:     make(map[string]*model.Holding),
		Unlocked:     map[model.Region]bool{model.StartingRegion: true},
	}
}

func TestBuySellRoundTripLeavesCashUnchanged(t *testing.T) {
	p := newTestPlayer(100000)

	if res := Buy(p, "BTC", 2, 500); !res.OK {
		t.Fatalf("buy failed: %+v", res)
	}
	if res := Sell(p, "BTC", 2, 500); !res.OK {
		t.Fatalf("sell failed: %+v", res)
	}
	if math.Abs(p.Cash-100000) > 1e-9 {
		t.Errorf("cash = %v, want 100000", p.Cash)
	}
	if p.RealizedPnL != 0 {
		t.Errorf("realized pnl = %v, want 0", p.RealizedPnL)
	}
	h := p.Holding("BTC")
	if h.Qty != 0 || h.AvgEntry != 0 {
		t.Errorf("holding = %+v, want flat with zero entry", h)
	}
}

func TestBuyFromFlatPinsEntryToFillPrice(t *testing.T) {
	p := newTestPlayer(100000)

	// 162.73 × 0.003 is not exactly representable; from flat the entry must
	// still be the fill price bit for bit so a same-price sell realizes 0.
	if res := Buy(p, "BTC", 0.003, 162.73); !res.OK {
		t.Fatalf("buy failed: %+v", res)
	}
	if h := p.Holding("BTC"); h.AvgEntry != 162.73 {
		t.Fatalf("avg entry = %v, want exactly 162.73", h.AvgEntry)
	}
	if res := Sell(p, "BTC", 0.003, 162.73); !res.OK {
		t.Fatalf("sell failed: %+v", res)
	}
	if p.RealizedPnL != 0 {
		t.Errorf("realized pnl = %v, want exactly 0", p.RealizedPnL)
	}
}

func TestBuyWeightedAverageEntry(t *testing.T) {
	p := newTestPlayer(100000)

	Buy(p, "BTC", 2, 500)
	Buy(p, "BTC", 2, 700)

	h := p.Holding("BTC")
	if h.Qty != 4 {
		t.Fatalf("qty = %v, want 4", h.Qty)
	}
	if math.Abs(h.AvgEntry-600) > 1e-9 {
		t.Errorf("avg entry = %v, want 600", h.AvgEntry)
	}
}

func TestSellRealizesAgainstAverageEntry(t *testing.T) {
	p := newTestPlayer(100000)

	Buy(p, "BTC", 2, 500)
	Buy(p, "BTC", 2, 700)
	if res := Sell(p, "BTC", 3, 800); !res.OK {
		t.Fatalf("sell failed: %+v", res)
	}

	// 3 × (800 − 600)
	if math.Abs(p.RealizedPnL-600) > 1e-9 {
		t.Errorf("realized pnl = %v, want 600", p.RealizedPnL)
	}
	h := p.Holding("BTC")
	if h.Qty != 1 || math.Abs(h.AvgEntry-600) > 1e-9 {
		t.Errorf("remaining holding = %+v, want qty 1 at 600", h)
	}
}

func TestBuyRejections(t *testing.T) {
	p := newTestPlayer(100)

	if res := Buy(p, "BTC", 0, 500); res.OK || res.Kind != model.ErrInvalidQuantity {
		t.Errorf("zero qty: got %+v, want INVALID_QUANTITY", res)
	}
	if res := Buy(p, "BTC", -1, 500); res.OK || res.Kind != model.ErrInvalidQuantity {
		t.Errorf("negative qty: got %+v, want INVALID_QUANTITY", res)
	}
	if res := Buy(p, "BTC", 1, 500); res.OK || res.Kind != model.ErrInsufficientFunds {
		t.Errorf("overdraw: got %+v, want INSUFFICIENT_FUNDS", res)
	}
	if p.Cash != 100 {
		t.Errorf("cash mutated on rejection: %v", p.Cash)
	}
	if h := p.Holding("BTC"); h.Qty != 0 {
		t.Errorf("holding mutated on rejection: %+v", h)
	}
}

func TestSellMoreThanHeldRejected(t *testing.T) {
	p := newTestPlayer(100000)
	Buy(p, "BTC", 1, 500)

	if res := Sell(p, "BTC", 2, 500); res.OK || res.Kind != model.ErrInsufficientHoldings {
		t.Errorf("got %+v, want INSUFFICIENT_HOLDINGS", res)
	}
	if h := p.Holding("BTC"); h.Qty != 1 {
		t.Errorf("holding mutated on rejection: %+v", h)
	}
}

func TestBuyRigsDebitAndInventory(t *testing.T) {
	p := newTestPlayer(100000)
	spec, _ := model.RigByKey("AVALON_GEN1_2013")

	rigs, res := BuyRigs(p, spec, model.RegionAmerica, 3)
	if !res.OK {
		t.Fatalf("buy rigs failed: %+v", res)
	}
	if len(rigs) != 3 || len(p.Rigs) != 3 {
		t.Fatalf("rig count = %d/%d, want 3/3", len(rigs), len(p.Rigs))
	}
	if math.Abs(p.Cash-(100000-3*1200)) > 1e-9 {
		t.Errorf("cash = %v, want %v", p.Cash, 100000-3*1200)
	}
	for _, r := range rigs {
		if r.ID == "" || r.OwnerID != p.ID || r.Region != model.RegionAmerica {
			t.Errorf("malformed rig: %+v", r)
		}
	}
}

func TestBuyRigsCap(t *testing.T) {
	p := newTestPlayer(1e9)
	spec, _ := model.RigByKey("AVALON_GEN1_2013")

	if _, res := BuyRigs(p, spec, model.RegionAmerica, MaxRigsPerPurchase+1); res.OK || res.Kind != model.ErrLimitExceeded {
		t.Fatalf("cap+1: got %+v, want LIMIT_EXCEEDED", res)
	}
	if len(p.Rigs) != 0 {
		t.Fatalf("rigs created on rejection: %d", len(p.Rigs))
	}

	if _, res := BuyRigs(p, spec, model.RegionAmerica, MaxRigsPerPurchase); !res.OK {
		t.Fatalf("exact cap rejected: %+v", res)
	}
	if len(p.Rigs) != MaxRigsPerPurchase {
		t.Errorf("rig count = %d, want %d", len(p.Rigs), MaxRigsPerPurchase)
	}
}

func TestBuyRigsLockedRegion(t *testing.T) {
	p := newTestPlayer(100000)
	spec, _ := model.RigByKey("AVALON_GEN1_2013")

	if _, res := BuyRigs(p, spec, model.RegionEurope, 1); res.OK || res.Kind != model.ErrAssetLocked {
		t.Errorf("locked region: got %+v, want ASSET_LOCKED", res)
	}
}

func TestSellRigResaleFraction(t *testing.T) {
	p := newTestPlayer(100000)
	spec, _ := model.RigByKey("AVALON_GEN1_2013")

	rigs, res := BuyRigs(p, spec, model.RegionAmerica, 1)
	if !res.OK {
		t.Fatalf("buy failed: %+v", res)
	}
	cashAfterBuy := p.Cash

	ids, res := SellRigs(p, SellRigSelection{RigID: rigs[0].ID})
	if !res.OK {
		t.Fatalf("sell failed: %+v", res)
	}
	if len(ids) != 1 || ids[0] != rigs[0].ID {
		t.Errorf("sold ids = %v, want [%s]", ids, rigs[0].ID)
	}
	// 1200 × 0.45 = 540
	if math.Abs(p.Cash-(cashAfterBuy+540)) > 1e-9 {
		t.Errorf("cash = %v, want %v", p.Cash, cashAfterBuy+540)
	}
	if len(p.Rigs) != 0 {
		t.Errorf("rig not removed: %d remain", len(p.Rigs))
	}
}

func TestSellRigsByRegionTypeCount(t *testing.T) {
	p := newTestPlayer(1e6)
	avalon, _ := model.RigByKey("AVALON_GEN1_2013")
	s1, _ := model.RigByKey("ANTMINER_S1_2013")
	p.Unlocked[model.RegionAsia] = true

	BuyRigs(p, avalon, model.RegionAmerica, 3)
	BuyRigs(p, s1, model.RegionAmerica, 2)
	BuyRigs(p, avalon, model.RegionAsia, 2)

	ids, res := SellRigs(p, SellRigSelection{
		Region: model.RegionAmerica,
		Type:   "AVALON_GEN1_2013",
		Count:  2,
	})
	if !res.OK {
		t.Fatalf("sell failed: %+v", res)
	}
	if len(ids) != 2 {
		t.Fatalf("sold %d rigs, want 2", len(ids))
	}
	if len(p.Rigs) != 5 {
		t.Errorf("rig count = %d, want 5", len(p.Rigs))
	}
	var americaAvalons int
	for _, r := range p.Rigs {
		if r.Region == model.RegionAmerica && r.Type == "AVALON_GEN1_2013" {
			americaAvalons++
		}
	}
	if americaAvalons != 1 {
		t.Errorf("america avalons remaining = %d, want 1", americaAvalons)
	}
}

func TestSellRigsNoMatch(t *testing.T) {
	p := newTestPlayer(100000)
	if _, res := SellRigs(p, SellRigSelection{RigID: "nope"}); res.OK || res.Kind != model.ErrInvalidRequest {
		t.Errorf("got %+v, want INVALID_REQUEST", res)
	}
}

func TestUnlockRegion(t *testing.T) {
	p := newTestPlayer(100000)

	if res := UnlockRegion(p, model.RegionEurope, model.RegionUnlockFee); !res.OK {
		t.Fatalf("unlock failed: %+v", res)
	}
	if !p.Unlocked[model.RegionEurope] {
		t.Error("region not marked unlocked")
	}
	if math.Abs(p.Cash-(100000-model.RegionUnlockFee)) > 1e-9 {
		t.Errorf("cash = %v, want %v", p.Cash, 100000-model.RegionUnlockFee)
	}

	if res := UnlockRegion(p, model.RegionEurope, model.RegionUnlockFee); res.OK {
		t.Error("double unlock accepted")
	}
	if res := UnlockRegion(p, model.Region("MARS"), model.RegionUnlockFee); res.OK {
		t.Error("unknown region accepted")
	}

	poor := newTestPlayer(10)
	if res := UnlockRegion(poor, model.RegionEurope, model.RegionUnlockFee); res.OK || res.Kind != model.ErrInsufficientFunds {
		t.Errorf("got %+v, want INSUFFICIENT_FUNDS", res)
	}
}

func TestNetWorth(t *testing.T) {
	p := newTestPlayer(100000)
	spec, _ := model.RigByKey("AVALON_GEN1_2013")

	Buy(p, "BTC", 2, 500)
	BuyRigs(p, spec, model.RegionAmerica, 1)

	// cash 100000−1000−1200, holdings 2×800, resale 540
	got := NetWorth(p, map[string]float64{"BTC": 800})
	want := 100000 - 1000 - 1200 + 2*800 + 540.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("net worth = %v, want %v", got, want)
	}
}
