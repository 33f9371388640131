package pricemodel

import (
	"log"

	"btcsim/internal/model"
)

// Backfill generates `days` trailing daily candles ending the day before
// startDay (Unix seconds, day aligned), such that the synthetic history
// chains gaplessly into a live candle opening at startPrice.
//
// The walk runs forward from fairStart (the fair value `days` days before
// start), targeting a fair-value curve interpolated between fairStart and
// startPrice, and is then shifted candle-by-candle so the final close lands
// exactly on startPrice. The shift grows linearly over the window, which
// preserves each candle's OHLC ordering.
func (m *Model) Backfill(startDay int64, days int, fairStart, startPrice float64, p Params) []model.Candle {
	if days <= 0 {
		return nil
	}

	candles := make([]model.Candle, 0, days)
	open := fairStart
	if open < model.PriceEpsilon {
		open = model.PriceEpsilon
	}
	firstDay := startDay - int64(days)*86400
	for i := 0; i < days; i++ {
		// Linear fair-value target across the backfill window.
		frac := float64(i+1) / float64(days)
		target := fairStart + frac*(startPrice-fairStart)
		c := m.StepDay(firstDay+int64(i)*86400, open, target, nil, p)
		candles = append(candles, c)
		open = c.Close
	}

	// Pin the walk to the live starting price: shift each candle by a
	// linearly growing fraction of the terminal miss.
	miss := startPrice - candles[days-1].Close
	for i := range candles {
		delta := miss * float64(i+1) / float64(days)
		candles[i].Open += delta
		candles[i].High += delta
		candles[i].Low += delta
		candles[i].Close += delta
		if candles[i].Low < model.PriceEpsilon {
			// Large downward shifts could only breach the floor with absurd
			// inputs; clamp the whole candle rather than break ordering.
			lift := model.PriceEpsilon - candles[i].Low
			candles[i].Open += lift
			candles[i].High += lift
			candles[i].Low += lift
			candles[i].Close += lift
		}
		if !candles[i].Valid() {
			log.Panicf("pricemodel: malformed backfill candle %+v", candles[i])
		}
	}
	return candles
}
