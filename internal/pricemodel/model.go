// Package pricemodel implements the daily candle generator: a fixed number of
// intraday sub-steps, each choosing direction from a fair-value-deviation
// probability (or an explicit bias override), accumulating OHLC.
package pricemodel

import (
	"log"
	"math"
	"math/rand"

	"btcsim/internal/model"
)

// Params are the tunable knobs of the walk. DailyStepPct and VolMultiplier
// are live-tunable through the admin surface; the rest are fixed per session.
type Params struct {
	SubSteps       int     // intraday sub-steps per daily candle
	DailyStepPct   float64 // daily step budget as a fraction of the open
	VolMultiplier  float64 // admin/event volatility multiplier
	NeutralBandPct float64 // |deviation%| below this leaves probability at 0.5
	ExcessScale    float64 // deviation% above the band shifts probability by excess/scale
	MinProb        float64
	MaxProb        float64
	MinBiasProb    float64 // bias strength clamp, lower bound
	MaxBiasProb    float64 // bias strength clamp, upper bound
}

// DefaultParams returns the 2013–2017 scenario defaults.
func DefaultParams() Params {
	return Params{
		SubSteps:       12,
		DailyStepPct:   0.03,
		VolMultiplier:  1.0,
		NeutralBandPct: 5,
		ExcessScale:    100,
		MinProb:        0.05,
		MaxProb:        0.95,
		MinBiasProb:    0.51,
		MaxBiasProb:    0.95,
	}
}

// Model generates daily candles from a deterministic RNG.
// Not safe for concurrent use; the session serializes all calls.
type Model struct {
	rng *rand.Rand
}

// New creates a model seeded with seed.
func New(seed int64) *Model {
	return &Model{rng: rand.New(rand.NewSource(seed))}
}

// NewWithRand creates a model using the caller's RNG.
func NewWithRand(rng *rand.Rand) *Model {
	return &Model{rng: rng}
}

// UpProbability computes the up-step probability for one sub-step. The
// companion down probability is defined as exactly 1 − up, so the pair always
// sums to 1. Exported for the statistical tests.
func UpProbability(price, fairValue float64, bias *model.Bias, p Params) float64 {
	if bias != nil {
		strength := clamp(bias.Strength, p.MinBiasProb, p.MaxBiasProb)
		if bias.Direction == model.BiasUp {
			return strength
		}
		return 1 - strength
	}

	if fairValue <= 0 {
		return 0.5
	}
	devPct := (price - fairValue) / fairValue * 100
	excess := math.Abs(devPct) - p.NeutralBandPct
	if excess <= 0 {
		return 0.5
	}
	shift := excess / p.ExcessScale
	up := 0.5 + shift
	if devPct > 0 {
		// Above fair value: pull back down.
		up = 0.5 - shift
	}
	return clamp(up, p.MinProb, p.MaxProb)
}

// StepBudget returns the whole-dollar daily step budget for an open price.
func StepBudget(open float64, p Params) float64 {
	return math.Round(open * p.DailyStepPct * p.VolMultiplier)
}

// SubStepSize returns the whole-dollar magnitude of one sub-step, floored
// at one unit.
func SubStepSize(budget float64, p Params) float64 {
	size := math.Round(budget / math.Sqrt(float64(p.SubSteps)))
	if size < 1 {
		size = 1
	}
	return size
}

// StepDay advances the walk by one simulated day and returns the candle for
// the day starting at dayStart (Unix seconds, day aligned). A non-nil bias
// overrides the fair-value deviation probability for every sub-step.
//
// A malformed output candle is an impossible state and panics loudly.
func (m *Model) StepDay(dayStart int64, open, fairValue float64, bias *model.Bias, p Params) model.Candle {
	budget := StepBudget(open, p)
	step := SubStepSize(budget, p)

	price := open
	high, low := open, open
	for i := 0; i < p.SubSteps; i++ {
		up := UpProbability(price, fairValue, bias, p)
		down := 1 - up
		if up+down != 1 {
			log.Panicf("pricemodel: probability drift: up=%v down=%v", up, down)
		}
		if m.rng.Float64() < up {
			price += step
		} else {
			price -= step
		}
		if price < model.PriceEpsilon {
			price = model.PriceEpsilon
		}
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
	}

	c := model.Candle{Time: dayStart, Open: open, High: high, Low: low, Close: price}
	if !c.Valid() {
		log.Panicf("pricemodel: malformed candle %+v", c)
	}
	return c
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
