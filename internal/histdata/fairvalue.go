// Package histdata provides the static historical tables the simulation is
// anchored to: the fair-value curve, the monthly network hashrate series and
// the halving-aware block-reward schedule, plus loaders for the data files.
//
// Everything here is loaded once at startup and read-only afterwards —
// lookups are pure and safe for concurrent use.
package histdata

import (
	"errors"
	"sort"
	"time"
)

// ErrNoAnchors is returned when a fair-value oracle is constructed with no
// anchor points. A missing fair-value schedule is a fatal configuration
// error for the simulation.
var ErrNoAnchors = errors.New("histdata: fair value schedule has no anchor points")

// AnchorPoint is one (date, value) entry of the sparse fair-value schedule.
type AnchorPoint struct {
	Date  time.Time
	Value float64
}

// FairValueOracle converts a sparse anchor schedule into a continuous
// reference curve via linear interpolation between bracketing points.
type FairValueOracle struct {
	days   []int64 // anchor dates as whole days since epoch, ascending
	values []float64
}

// NewFairValueOracle builds an oracle from anchor points. Points are sorted
// by date; duplicates keep the later value.
func NewFairValueOracle(points []AnchorPoint) (*FairValueOracle, error) {
	if len(points) == 0 {
		return nil, ErrNoAnchors
	}
	sorted := make([]AnchorPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	o := &FairValueOracle{
		days:   make([]int64, 0, len(sorted)),
		values: make([]float64, 0, len(sorted)),
	}
	for _, p := range sorted {
		d := epochDay(p.Date)
		if n := len(o.days); n > 0 && o.days[n-1] == d {
			o.values[n-1] = p.Value
			continue
		}
		o.days = append(o.days, d)
		o.values = append(o.values, p.Value)
	}
	return o, nil
}

// ValueAt returns the fair value for date. Dates before the first anchor
// clamp to the first value, dates after the last anchor to the last value;
// in between the value is interpolated linearly by elapsed whole days.
func (o *FairValueOracle) ValueAt(date time.Time) float64 {
	d := epochDay(date)
	if d <= o.days[0] {
		return o.values[0]
	}
	last := len(o.days) - 1
	if d >= o.days[last] {
		return o.values[last]
	}
	// First anchor strictly after d; its predecessor brackets from below.
	hi := sort.Search(len(o.days), func(i int) bool { return o.days[i] > d })
	lo := hi - 1
	span := o.days[hi] - o.days[lo]
	frac := float64(d-o.days[lo]) / float64(span)
	return o.values[lo] + frac*(o.values[hi]-o.values[lo])
}

// First returns the earliest anchor.
func (o *FairValueOracle) First() AnchorPoint {
	return AnchorPoint{Date: dayToTime(o.days[0]), Value: o.values[0]}
}

// Last returns the latest anchor.
func (o *FairValueOracle) Last() AnchorPoint {
	last := len(o.days) - 1
	return AnchorPoint{Date: dayToTime(o.days[last]), Value: o.values[last]}
}

func epochDay(t time.Time) int64 {
	return t.UTC().Unix() / 86400
}

func dayToTime(d int64) time.Time {
	return time.Unix(d*86400, 0).UTC()
}
