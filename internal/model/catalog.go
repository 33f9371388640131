package model

// AssetSpec describes one tradable instrument. Catalogs are immutable
// configuration: loaded once, referenced by value, never mutated.
type AssetSpec struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	BasePrice float64 `json:"basePrice"` // fallback open when no series anchor exists
}

// Assets is the instrument catalog. The engine simulates every entry;
// the 2013–2017 scenario ships with BTC only.
var Assets = []AssetSpec{
	{Symbol: "BTC", Name: "Bitcoin", BasePrice: 13.30},
}

// AssetBySymbol returns the catalog entry for symbol.
func AssetBySymbol(symbol string) (AssetSpec, bool) {
	for _, a := range Assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return AssetSpec{}, false
}

// RigSpec describes one purchasable rig model. UnlockDate gates availability
// by simulated date ("" = available from the start).
type RigSpec struct {
	Key              string  `json:"key"`
	Name             string  `json:"name"`
	PurchasePrice    float64 `json:"purchasePrice"`
	HashrateTHs      float64 `json:"hashrateTHs"`
	EfficiencyWPerTH float64 `json:"efficiencyWPerTH"`
	ResaleFraction   float64 `json:"resaleFraction"`
	UnlockDate       string  `json:"unlockDate,omitempty"` // "YYYY-MM-DD"
}

// RigCatalog is the purchasable rig table for the 2013–2017 scenario,
// in release order.
var RigCatalog = []RigSpec{
	{
		Key:              "AVALON_GEN1_2013",
		Name:             "Avalon Gen-1",
		PurchasePrice:    1200,
		HashrateTHs:      0.066,
		EfficiencyWPerTH: 9100,
		ResaleFraction:   0.45,
	},
	{
		Key:              "ANTMINER_S1_2013",
		Name:             "Antminer S1",
		PurchasePrice:    2000,
		HashrateTHs:      0.18,
		EfficiencyWPerTH: 2000,
		ResaleFraction:   0.50,
		UnlockDate:       "2013-11-01",
	},
	{
		Key:              "ANTMINER_S5_2014",
		Name:             "Antminer S5",
		PurchasePrice:    2400,
		HashrateTHs:      1.155,
		EfficiencyWPerTH: 510,
		ResaleFraction:   0.55,
		UnlockDate:       "2014-12-01",
	},
	{
		Key:              "ANTMINER_S7_2015",
		Name:             "Antminer S7",
		PurchasePrice:    3900,
		HashrateTHs:      4.73,
		EfficiencyWPerTH: 273,
		ResaleFraction:   0.60,
		UnlockDate:       "2015-09-01",
	},
	{
		Key:              "ANTMINER_S9_2016",
		Name:             "Antminer S9",
		PurchasePrice:    7200,
		HashrateTHs:      13.5,
		EfficiencyWPerTH: 98,
		ResaleFraction:   0.70,
		UnlockDate:       "2016-06-01",
	},
}

// RigByKey returns the rig spec for key.
func RigByKey(key string) (RigSpec, bool) {
	for _, r := range RigCatalog {
		if r.Key == key {
			return r, true
		}
	}
	return RigSpec{}, false
}

// BaseEnergyPrices is the base USD/kWh price per region before event deltas
// and admin overrides.
var BaseEnergyPrices = map[Region]float64{
	RegionAsia:    0.09,
	RegionEurope:  0.17,
	RegionAmerica: 0.12,
}

// StartingRegion is unlocked for every player on join; the rest are paid
// expansions (see ledger.UnlockRegion).
const StartingRegion = RegionAmerica

// RegionUnlockFee is the flat cash cost of unlocking an additional region.
const RegionUnlockFee = 15000
