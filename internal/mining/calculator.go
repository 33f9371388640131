// Package mining derives per-player mining yield and energy cost from rig
// inventory, the time-varying network hashrate and the halving-aware block
// reward schedule. All functions are pure.
package mining

import (
	"time"

	"btcsim/internal/histdata"
	"btcsim/internal/model"
)

// Metrics is the per-player mining economy snapshot for one simulated day.
type Metrics struct {
	PlayerHashrateTHs  float64                  `json:"playerHashrateTHs"`
	NetworkHashrateTHs float64                  `json:"networkHashrateTHs"`
	SharePct           float64                  `json:"playerSharePct"`
	BlockRewardBTC     float64                  `json:"blockRewardBTC"`
	BTCPerDay          float64                  `json:"btcMinedPerDay"`
	USDPerDay          float64                  `json:"usdMinedPerDay"`
	PowerDrawKW        float64                  `json:"totalPowerDrawKW"`
	EnergyCostPerDay   float64                  `json:"dailyEnergyCostUSD"`
	NetProfitPerDay    float64                  `json:"netMiningProfitUSDPerDay"`
	HalvingCountdown   int                      `json:"nextHalvingCountdownDays"` // -1 when none scheduled
	DifficultyIndex    float64                  `json:"difficultyIndex"`
	EnergyPrices       map[model.Region]float64 `json:"energyPrices"`
}

// Inputs bundles the market-wide context a metrics computation needs.
type Inputs struct {
	Date         time.Time
	BTCPrice     float64
	NetworkTHs   float64 // already scaled by active hashrate multipliers
	EnergyPrices map[model.Region]float64
}

// Compute derives the full mining metrics for one player.
func Compute(p *model.Player, in Inputs) Metrics {
	playerTHs := p.TotalHashrateTHs()

	var share float64
	if in.NetworkTHs > 0 {
		share = playerTHs / in.NetworkTHs
	}

	reward := histdata.BlockReward(in.Date)
	btcPerDay := share * histdata.BlocksPerDay * reward

	var powerKW, energyCost float64
	for _, rig := range p.Rigs {
		kw := rig.PowerKW()
		powerKW += kw
		price, ok := in.EnergyPrices[rig.Region]
		if !ok {
			price = model.BaseEnergyPrices[model.RegionAmerica]
		}
		energyCost += kw * 24 * price
	}

	usdPerDay := btcPerDay * in.BTCPrice
	return Metrics{
		PlayerHashrateTHs:  playerTHs,
		NetworkHashrateTHs: in.NetworkTHs,
		SharePct:           share * 100,
		BlockRewardBTC:     reward,
		BTCPerDay:          btcPerDay,
		USDPerDay:          usdPerDay,
		PowerDrawKW:        powerKW,
		EnergyCostPerDay:   energyCost,
		NetProfitPerDay:    usdPerDay - energyCost,
		HalvingCountdown:   histdata.NextHalvingDays(in.Date),
		DifficultyIndex:    in.NetworkTHs / 1000,
		EnergyPrices:       in.EnergyPrices,
	}
}

// Apply credits one day of mined BTC into the player's holding at the
// current price (weighted-average entry) and debits the day's energy cost
// from cash. Energy costs may push cash negative — that is the one sanctioned
// way a balance goes below zero.
func Apply(p *model.Player, m Metrics, btcPrice float64) {
	if m.BTCPerDay > 0 {
		h := p.Holding("BTC")
		oldValue := h.Qty * h.AvgEntry
		h.Qty += m.BTCPerDay
		h.AvgEntry = (oldValue + m.BTCPerDay*btcPrice) / h.Qty
	}
	if m.EnergyCostPerDay > 0 {
		p.Cash -= m.EnergyCostPerDay
	}
}
