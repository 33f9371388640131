// Package events maintains the date-ordered queue of scheduled effects and
// the set of currently active effects: price biases, energy price deltas,
// volatility multipliers and network-hashrate multipliers, each with a
// per-tick expiry.
package events

import (
	"log"
	"time"

	"github.com/google/uuid"

	"btcsim/internal/model"
	"btcsim/internal/ringbuf"
)

const (
	// Default effect durations in simulated days when an event omits one.
	defaultBiasDays   = 1
	defaultEffectDays = 7

	// Energy prices never fall below this floor, whatever the deltas say.
	energyFloor = 0.02

	// Retained news feed length.
	newsCap = 200
)

// expiringMult is one volatility or hashrate multiplier with an expiry tick.
type expiringMult struct {
	mult      float64
	untilTick int64
}

// energyMod shifts one region's energy price. untilTick < 0 means permanent.
type energyMod struct {
	region    model.Region
	delta     float64
	untilTick int64
}

// Scheduler consumes the historical schedule as the simulated date advances
// and tracks every active effect. It is not self-synchronizing: the owning
// session serializes all calls under its lock.
type Scheduler struct {
	scheduled []model.ScheduledEvent // sorted by date
	nextIdx   int

	biases     map[string]*model.Bias // by asset symbol
	volBoosts  []expiringMult
	hashBoosts []expiringMult
	energyMods []energyMod

	news      *ringbuf.Ring[model.NewsItem]
	triggered []model.NewsItem // drained by the orchestrator each tick

	minBiasProb, maxBiasProb float64
}

// New creates a scheduler over a date-sorted historical schedule.
// Bias strengths are clamped into [minBiasProb, maxBiasProb] on trigger.
func New(scheduled []model.ScheduledEvent, minBiasProb, maxBiasProb float64) *Scheduler {
	return &Scheduler{
		scheduled:   scheduled,
		biases:      make(map[string]*model.Bias),
		news:        ringbuf.New[model.NewsItem](newsCap),
		minBiasProb: minBiasProb,
		maxBiasProb: maxBiasProb,
	}
}

// ApplyDue triggers every scheduled event whose date matches the current
// simulated date and skips events whose date has already passed — a
// consumed or skipped event is never reapplied.
func (s *Scheduler) ApplyDue(simDate string, tick int64) {
	for s.nextIdx < len(s.scheduled) && s.scheduled[s.nextIdx].Date <= simDate {
		ev := s.scheduled[s.nextIdx]
		s.nextIdx++
		if ev.Date == simDate {
			s.Trigger(ev, tick)
		}
	}
}

// Trigger applies one event's effects immediately and records it in the
// news feed. Used both for due scheduled events and ad-hoc admin events.
func (s *Scheduler) Trigger(ev model.ScheduledEvent, tick int64) model.NewsItem {
	item := model.NewsItem{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Date:      ev.Date,
		Headline:  ev.Headline,
		Body:      ev.Body,
		Effects:   ev.Effects,
	}
	s.news.Push(item)
	s.triggered = append(s.triggered, item)

	fx := ev.Effects
	if fx.BiasDirection != "" {
		days := fx.DurationDays
		if days <= 0 {
			days = defaultBiasDays
		}
		s.biases["BTC"] = &model.Bias{
			Direction: fx.BiasDirection,
			Strength:  clamp(fx.BiasStrength, s.minBiasProb, s.maxBiasProb),
			UntilTick: tick + int64(days),
		}
	}
	if fx.VolatilityBoost > 0 {
		s.volBoosts = append(s.volBoosts, expiringMult{
			mult:      fx.VolatilityBoost,
			untilTick: tick + int64(effectDays(fx.DurationDays)),
		})
	}
	if fx.HashrateBoost > 0 {
		s.hashBoosts = append(s.hashBoosts, expiringMult{
			mult:      fx.HashrateBoost,
			untilTick: tick + int64(effectDays(fx.DurationDays)),
		})
	}
	if fx.EnergyDelta != nil {
		regions := fx.EnergyDelta.Regions
		if len(regions) == 0 {
			regions = model.Regions
		}
		until := tick + int64(effectDays(fx.DurationDays))
		if fx.DurationDays < 0 {
			until = -1 // permanent
		}
		for _, region := range regions {
			if !model.ValidRegion(region) {
				log.Printf("[events] ignoring energy delta for unknown region %q", region)
				continue
			}
			s.energyMods = append(s.energyMods, energyMod{
				region:    region,
				delta:     fx.EnergyDelta.Delta,
				untilTick: until,
			})
		}
	}
	return item
}

// Purge drops every effect whose expiry tick has passed. Called once per
// tick before new events are applied.
func (s *Scheduler) Purge(tick int64) {
	for symbol, b := range s.biases {
		if !b.Active(tick) {
			delete(s.biases, symbol)
		}
	}
	s.volBoosts = keepLive(s.volBoosts, tick)
	s.hashBoosts = keepLive(s.hashBoosts, tick)

	kept := s.energyMods[:0]
	for _, m := range s.energyMods {
		if m.untilTick < 0 || m.untilTick > tick {
			kept = append(kept, m)
		}
	}
	s.energyMods = kept
}

// Bias returns the active bias for an asset, or nil.
func (s *Scheduler) Bias(symbol string, tick int64) *model.Bias {
	if b := s.biases[symbol]; b.Active(tick) {
		return b
	}
	return nil
}

// SetBias installs or clears (strength 0) a manual per-asset bias.
func (s *Scheduler) SetBias(symbol string, bias *model.Bias) {
	if bias == nil || bias.Strength == 0 {
		delete(s.biases, symbol)
		return
	}
	bias.Strength = clamp(bias.Strength, s.minBiasProb, s.maxBiasProb)
	s.biases[symbol] = bias
}

// VolMultiplier returns the product of all active volatility boosts.
func (s *Scheduler) VolMultiplier() float64 {
	return product(s.volBoosts)
}

// HashrateMultiplier returns the product of all active hashrate boosts.
func (s *Scheduler) HashrateMultiplier() float64 {
	return product(s.hashBoosts)
}

// EnergyPrices applies the active deltas to the base table, flooring each
// region's price at the minimum.
func (s *Scheduler) EnergyPrices(base map[model.Region]float64) map[model.Region]float64 {
	out := make(map[model.Region]float64, len(base))
	for region, price := range base {
		out[region] = price
	}
	for _, m := range s.energyMods {
		out[m.region] += m.delta
	}
	for region, price := range out {
		if price < energyFloor {
			out[region] = energyFloor
		}
	}
	return out
}

// News returns up to limit feed items, newest first.
func (s *Scheduler) News(limit int) []model.NewsItem {
	return s.news.Newest(limit)
}

// DrainTriggered returns and clears the events triggered since the last
// drain; the orchestrator persists and broadcasts them.
func (s *Scheduler) DrainTriggered() []model.NewsItem {
	out := s.triggered
	s.triggered = nil
	return out
}

func effectDays(days int) int {
	if days <= 0 {
		return defaultEffectDays
	}
	return days
}

func keepLive(ms []expiringMult, tick int64) []expiringMult {
	kept := ms[:0]
	for _, m := range ms {
		if m.untilTick > tick {
			kept = append(kept, m)
		}
	}
	return kept
}

func product(ms []expiringMult) float64 {
	p := 1.0
	for _, m := range ms {
		p *= m.mult
	}
	return p
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
