package histdata

import (
	"sort"
	"time"
)

// BlocksPerDay is the expected number of mined blocks per simulated day.
const BlocksPerDay = 144

// defaultNetworkTHs is the fallback network hashrate when the monthly series
// has no entry at all (seeded data should make this unreachable).
const defaultNetworkTHs = 1000

// HashrateSeries is the monthly network-hashrate table, keyed by "YYYY-MM".
type HashrateSeries struct {
	months []string // ascending
	values []float64
}

// NewHashrateSeries builds a series from a month → TH/s map.
func NewHashrateSeries(byMonth map[string]float64) *HashrateSeries {
	s := &HashrateSeries{
		months: make([]string, 0, len(byMonth)),
		values: make([]float64, 0, len(byMonth)),
	}
	for m := range byMonth {
		s.months = append(s.months, m)
	}
	sort.Strings(s.months)
	for _, m := range s.months {
		s.values = append(s.values, byMonth[m])
	}
	return s
}

// At returns the network hashrate in TH/s for the month containing date.
// Dates outside the table clamp to the nearest entry.
func (s *HashrateSeries) At(date time.Time) float64 {
	if len(s.months) == 0 {
		return defaultNetworkTHs
	}
	month := date.UTC().Format("2006-01")
	// Last month <= the requested one.
	idx := sort.SearchStrings(s.months, month)
	if idx < len(s.months) && s.months[idx] == month {
		return s.values[idx]
	}
	if idx == 0 {
		return s.values[0]
	}
	return s.values[idx-1]
}

// halving is one step of the block-reward schedule.
type halving struct {
	date   string // "YYYY-MM-DD", reward applies from this date on
	reward float64
}

// halvings is the reward step function. The initial 50 BTC era is implicit
// for dates before the first entry.
var halvings = []halving{
	{"2012-11-28", 25},
	{"2016-07-09", 12.5},
	{"2020-05-11", 6.25},
}

const genesisReward = 50

// BlockReward returns the BTC block subsidy in effect on date.
func BlockReward(date time.Time) float64 {
	key := date.UTC().Format("2006-01-02")
	reward := float64(genesisReward)
	for _, h := range halvings {
		if key >= h.date {
			reward = h.reward
		}
	}
	return reward
}

// NextHalvingDays returns the whole days until the next scheduled halving,
// or -1 when no further halving is in the table.
func NextHalvingDays(date time.Time) int {
	d := date.UTC()
	key := d.Format("2006-01-02")
	for _, h := range halvings {
		if key < h.date {
			next, err := time.Parse("2006-01-02", h.date)
			if err != nil {
				continue
			}
			days := int((next.Unix() - d.Unix() + 86399) / 86400)
			return days
		}
	}
	return -1
}
