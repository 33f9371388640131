package model

import (
	"time"
)

// DayMs is the length of one simulated day in milliseconds.
const DayMs = 24 * 60 * 60 * 1000

// PriceEpsilon is the hard floor for any simulated price.
const PriceEpsilon = 1e-8

// Candle represents one daily OHLC candle of the simulated market.
// Time is the day-aligned bucket start as a Unix timestamp (UTC seconds).
// Prices are in USD as float64 — the walk moves in whole-dollar steps but
// fair-value interpolation and backfill adjustment produce fractional cents.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Valid reports whether the OHLC ordering invariant holds and the price
// floor is respected.
func (c Candle) Valid() bool {
	if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close {
		return false
	}
	return c.Low >= PriceEpsilon
}

// Day returns the candle bucket as a UTC time.
func (c Candle) Day() time.Time {
	return time.Unix(c.Time, 0).UTC()
}
