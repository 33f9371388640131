package sim

import (
	"fmt"

	"btcsim/internal/model"
)

// BiasRequest is a manual probability override from the admin surface.
// Clear removes the active bias instead of setting one.
type BiasRequest struct {
	Direction    model.BiasDirection `json:"direction"`
	Strength     float64             `json:"strength"`
	DurationDays int                 `json:"durationDays"`
	Clear        bool                `json:"clear,omitempty"`
}

// AdminParams carries live parameter updates. Nil pointers leave the current
// value untouched.
type AdminParams struct {
	TickMs        *int     `json:"tickMs,omitempty"`
	DailyStepPct  *float64 `json:"dailyStepPct,omitempty"`
	VolMultiplier *float64 `json:"volMultiplier,omitempty"`

	Bias *BiasRequest `json:"bias,omitempty"`

	// EnergyOverrides pins a region's price; ClearEnergy removes pins.
	EnergyOverrides map[model.Region]float64 `json:"energyOverrides,omitempty"`
	ClearEnergy     []model.Region           `json:"clearEnergy,omitempty"`
}

// CreateNewsEvent triggers an admin-authored news event immediately, with
// the same effect semantics as a scheduled one. Admin only.
func (s *Session) CreateNewsEvent(admin bool, ev model.ScheduledEvent) model.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !admin {
		return s.reject(model.Fail(model.ErrUnauthorized, "admin action"))
	}
	if ev.Headline == "" {
		return s.reject(model.Fail(model.ErrInvalidRequest, "headline is required"))
	}

	ev.Date = model.DayString(s.simDay(s.tick))
	item := s.sched.Trigger(ev, s.tick)
	s.sched.DrainTriggered() // persisted here, not by the next tick
	s.logAdmin("admin news: " + item.Headline)
	if s.met != nil {
		s.met.NewsEventsTotal.Inc()
		s.met.AdminOpsTotal.WithLabelValues("news").Inc()
	}

	s.enqueue(model.PersistBatch{
		Tick: s.tick,
		News: []model.NewsRecord{{
			ID: item.ID, Date: item.Date, Headline: item.Headline,
			Body: item.Body, Timestamp: item.Timestamp,
		}},
	})
	return model.Ok()
}

// UpdateAdminParams applies live parameter changes: tick cadence, daily step
// percentage, volatility multiplier, manual bias, energy price pins. Either
// every change applies or none does. Admin only.
func (s *Session) UpdateAdminParams(admin bool, req AdminParams) model.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !admin {
		return s.reject(model.Fail(model.ErrUnauthorized, "admin action"))
	}

	if req.TickMs != nil && !validTickInterval(*req.TickMs) {
		return s.reject(model.Fail(model.ErrInvalidRequest,
			fmt.Sprintf("tick interval %dms not in %v", *req.TickMs, TickIntervals)))
	}
	if req.DailyStepPct != nil && (*req.DailyStepPct <= 0 || *req.DailyStepPct > 0.5) {
		return s.reject(model.Fail(model.ErrInvalidRequest, "daily step pct out of range (0, 0.5]"))
	}
	if req.VolMultiplier != nil && (*req.VolMultiplier <= 0 || *req.VolMultiplier > 10) {
		return s.reject(model.Fail(model.ErrInvalidRequest, "volatility multiplier out of range (0, 10]"))
	}
	if req.Bias != nil && !req.Bias.Clear {
		if req.Bias.Direction != model.BiasUp && req.Bias.Direction != model.BiasDown {
			return s.reject(model.Fail(model.ErrInvalidRequest, "bias direction must be UP or DOWN"))
		}
		if req.Bias.DurationDays <= 0 {
			return s.reject(model.Fail(model.ErrInvalidRequest, "bias duration must be positive"))
		}
	}
	for region := range req.EnergyOverrides {
		if !model.ValidRegion(region) {
			return s.reject(model.Fail(model.ErrInvalidRequest, "unknown region "+string(region)))
		}
	}
	for _, region := range req.ClearEnergy {
		if !model.ValidRegion(region) {
			return s.reject(model.Fail(model.ErrInvalidRequest, "unknown region "+string(region)))
		}
	}

	if req.TickMs != nil {
		s.tickMs = *req.TickMs
		s.logAdmin(fmt.Sprintf("tick interval set to %dms", *req.TickMs))
	}
	if req.DailyStepPct != nil {
		s.params.DailyStepPct = *req.DailyStepPct
		s.logAdmin(fmt.Sprintf("daily step pct set to %g", *req.DailyStepPct))
	}
	if req.VolMultiplier != nil {
		s.params.VolMultiplier = *req.VolMultiplier
		s.logAdmin(fmt.Sprintf("volatility multiplier set to %g", *req.VolMultiplier))
	}
	if req.Bias != nil {
		if req.Bias.Clear {
			s.sched.SetBias("BTC", nil)
			s.logAdmin("manual bias cleared")
		} else {
			strength := clampStrength(req.Bias.Strength, s.params.MinBiasProb, s.params.MaxBiasProb)
			s.sched.SetBias("BTC", &model.Bias{
				Direction: req.Bias.Direction,
				Strength:  strength,
				UntilTick: s.tick + int64(req.Bias.DurationDays),
			})
			s.logAdmin(fmt.Sprintf("manual bias %s %.2f for %dd", req.Bias.Direction, strength, req.Bias.DurationDays))
		}
	}
	for region, price := range req.EnergyOverrides {
		s.energyOverrides[region] = price
		s.logAdmin(fmt.Sprintf("energy price for %s pinned at %.3f", region, price))
	}
	for _, region := range req.ClearEnergy {
		delete(s.energyOverrides, region)
		s.logAdmin(fmt.Sprintf("energy price pin for %s cleared", region))
	}

	if s.met != nil {
		s.met.AdminOpsTotal.WithLabelValues("params").Inc()
	}
	return model.Ok()
}

func validTickInterval(ms int) bool {
	for _, v := range TickIntervals {
		if v == ms {
			return true
		}
	}
	return false
}

func clampStrength(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
