package mining

import (
	"math"
	"testing"
	"time"

	"btcsim/internal/model"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testPlayer(rigs ...*model.Rig) *model.Player {
	return &model.Player{
		ID:       "p1",
		Holdings: map[string]*model.Holding{},
		Rigs:     rigs,
	}
}

// rig: 10 TH/s at 100 W/TH = 1 kW draw.
func testRig(region model.Region) *model.Rig {
	return &model.Rig{
		ID:               "r1",
		OwnerID:          "p1",
		Region:           region,
		Type:             "TEST",
		HashrateTHs:      10,
		EfficiencyWPerTH: 100,
		PurchasePrice:    1000,
		ResaleFraction:   0.5,
	}
}

var testEnergy = map[model.Region]float64{
	model.RegionAsia:    0.09,
	model.RegionEurope:  0.17,
	model.RegionAmerica: 0.12,
}

func TestCompute_NoRigs(t *testing.T) {
	m := Compute(testPlayer(), Inputs{
		Date: date("2014-06-01"), BTCPrice: 600, NetworkTHs: 100000, EnergyPrices: testEnergy,
	})
	if m.BTCPerDay != 0 || m.EnergyCostPerDay != 0 || m.PowerDrawKW != 0 {
		t.Errorf("rigless player should mine and spend nothing: %+v", m)
	}
}

func TestCompute_ShareAndYield(t *testing.T) {
	p := testPlayer(testRig(model.RegionAsia))
	m := Compute(p, Inputs{
		Date: date("2014-06-01"), BTCPrice: 600, NetworkTHs: 1000, EnergyPrices: testEnergy,
	})

	if m.PlayerHashrateTHs != 10 {
		t.Errorf("player hashrate = %v, want 10", m.PlayerHashrateTHs)
	}
	if m.SharePct != 1 {
		t.Errorf("share = %v%%, want 1%%", m.SharePct)
	}
	// 1% of 144 blocks × 25 BTC = 36 BTC/day.
	if math.Abs(m.BTCPerDay-36) > 1e-12 {
		t.Errorf("BTC/day = %v, want 36", m.BTCPerDay)
	}
	// 1 kW × 24 h × 0.09 $/kWh = 2.16 $/day.
	if math.Abs(m.EnergyCostPerDay-2.16) > 1e-12 {
		t.Errorf("energy cost = %v, want 2.16", m.EnergyCostPerDay)
	}
	if math.Abs(m.NetProfitPerDay-(36*600-2.16)) > 1e-9 {
		t.Errorf("net profit = %v", m.NetProfitPerDay)
	}
}

func TestCompute_HalvingBoundary(t *testing.T) {
	p := testPlayer(testRig(model.RegionAmerica))
	before := Compute(p, Inputs{Date: date("2016-07-08"), BTCPrice: 650, NetworkTHs: 1000, EnergyPrices: testEnergy})
	after := Compute(p, Inputs{Date: date("2016-07-09"), BTCPrice: 650, NetworkTHs: 1000, EnergyPrices: testEnergy})

	if before.BlockRewardBTC != 25 || after.BlockRewardBTC != 12.5 {
		t.Fatalf("rewards = %v / %v, want 25 / 12.5", before.BlockRewardBTC, after.BlockRewardBTC)
	}
	if math.Abs(before.BTCPerDay-2*after.BTCPerDay) > 1e-12 {
		t.Errorf("yield should exactly halve: %v vs %v", before.BTCPerDay, after.BTCPerDay)
	}
	if before.HalvingCountdown != 1 {
		t.Errorf("countdown before halving = %d, want 1", before.HalvingCountdown)
	}
}

func TestCompute_EnergyCostByRegion(t *testing.T) {
	p := testPlayer(testRig(model.RegionAsia), testRig(model.RegionEurope))
	m := Compute(p, Inputs{Date: date("2015-01-01"), BTCPrice: 300, NetworkTHs: 10000, EnergyPrices: testEnergy})

	want := 1*24*0.09 + 1*24*0.17
	if math.Abs(m.EnergyCostPerDay-want) > 1e-12 {
		t.Errorf("energy cost = %v, want %v", m.EnergyCostPerDay, want)
	}
	if m.PowerDrawKW != 2 {
		t.Errorf("power draw = %v kW, want 2", m.PowerDrawKW)
	}
}

func TestCompute_ZeroNetworkHashrate(t *testing.T) {
	p := testPlayer(testRig(model.RegionAsia))
	m := Compute(p, Inputs{Date: date("2015-01-01"), BTCPrice: 300, NetworkTHs: 0, EnergyPrices: testEnergy})
	if m.BTCPerDay != 0 {
		t.Errorf("zero network hashrate must yield zero, got %v", m.BTCPerDay)
	}
}

func TestApply_CreditsAndDebits(t *testing.T) {
	p := testPlayer(testRig(model.RegionAsia))
	p.Cash = 100

	m := Metrics{BTCPerDay: 2, EnergyCostPerDay: 150}
	Apply(p, m, 500)

	h := p.Holding("BTC")
	if h.Qty != 2 {
		t.Errorf("qty = %v, want 2", h.Qty)
	}
	if h.AvgEntry != 500 {
		t.Errorf("avg entry = %v, want 500 (mined BTC valued at current price)", h.AvgEntry)
	}
	// Energy alone may push cash negative.
	if p.Cash != -50 {
		t.Errorf("cash = %v, want -50", p.Cash)
	}

	// Mining into an existing position reweights the average entry.
	Apply(p, Metrics{BTCPerDay: 2}, 700)
	if h.Qty != 4 {
		t.Errorf("qty = %v, want 4", h.Qty)
	}
	if h.AvgEntry != 600 {
		t.Errorf("avg entry = %v, want (2×500 + 2×700)/4 = 600", h.AvgEntry)
	}
}

func TestApply_MonotonicNonNegativeCredit(t *testing.T) {
	p := testPlayer(testRig(model.RegionAsia))
	in := Inputs{Date: date("2013-06-01"), BTCPrice: 100, NetworkTHs: 500, EnergyPrices: testEnergy}

	prev := 0.0
	for i := 0; i < 10; i++ {
		m := Compute(p, in)
		if m.BTCPerDay < 0 {
			t.Fatalf("negative mining credit: %v", m.BTCPerDay)
		}
		Apply(p, m, in.BTCPrice)
		qty := p.Holding("BTC").Qty
		if qty < prev {
			t.Fatalf("holding decreased under mining: %v -> %v", prev, qty)
		}
		prev = qty
	}
}
