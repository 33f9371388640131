package events

import (
	"testing"

	"btcsim/internal/model"
)

func newTestScheduler(events []model.ScheduledEvent) *Scheduler {
	return New(events, 0.51, 0.95)
}

func TestApplyDue_TriggersOnDateAndSkipsPast(t *testing.T) {
	s := newTestScheduler([]model.ScheduledEvent{
		{Date: "2013-01-05", Headline: "missed", Effects: model.EventEffects{VolatilityBoost: 2}},
		{Date: "2013-02-01", Headline: "due", Effects: model.EventEffects{VolatilityBoost: 3, DurationDays: 5}},
		{Date: "2013-03-01", Headline: "future", Effects: model.EventEffects{VolatilityBoost: 4}},
	})

	// Simulated clock jumps straight to Feb 1: the January event is skipped,
	// not applied late.
	s.ApplyDue("2013-02-01", 31)

	if got := s.VolMultiplier(); got != 3 {
		t.Errorf("VolMultiplier = %v, want 3 (only the due event applied)", got)
	}
	news := s.News(0)
	if len(news) != 1 || news[0].Headline != "due" {
		t.Errorf("news = %+v, want only the due event", news)
	}

	// Re-running the same date must not reapply anything.
	s.ApplyDue("2013-02-01", 31)
	if got := s.VolMultiplier(); got != 3 {
		t.Errorf("VolMultiplier after rerun = %v, want 3", got)
	}
}

func TestPurge_ExpiresEffects(t *testing.T) {
	s := newTestScheduler(nil)
	s.Trigger(model.ScheduledEvent{
		Date: "2013-01-01",
		Effects: model.EventEffects{
			BiasDirection:   model.BiasUp,
			BiasStrength:    0.8,
			VolatilityBoost: 2,
			HashrateBoost:   1.5,
			DurationDays:    3,
		},
	}, 10)

	if s.Bias("BTC", 12) == nil {
		t.Error("bias should still be active at tick 12")
	}
	s.Purge(13)
	if s.Bias("BTC", 13) == nil {
		t.Error("bias expires after its until tick, not at it")
	}
	s.Purge(14)
	if s.Bias("BTC", 14) != nil {
		t.Error("bias should be purged at tick 14")
	}
	if got := s.VolMultiplier(); got != 1 {
		t.Errorf("VolMultiplier after purge = %v, want 1", got)
	}
	if got := s.HashrateMultiplier(); got != 1 {
		t.Errorf("HashrateMultiplier after purge = %v, want 1", got)
	}
}

func TestMultipliers_ComposeMultiplicatively(t *testing.T) {
	s := newTestScheduler(nil)
	s.Trigger(model.ScheduledEvent{Effects: model.EventEffects{VolatilityBoost: 2, DurationDays: 10}}, 0)
	s.Trigger(model.ScheduledEvent{Effects: model.EventEffects{VolatilityBoost: 1.5, DurationDays: 10}}, 0)
	s.Trigger(model.ScheduledEvent{Effects: model.EventEffects{HashrateBoost: 3, DurationDays: 10}}, 0)
	s.Trigger(model.ScheduledEvent{Effects: model.EventEffects{HashrateBoost: 0.5, DurationDays: 10}}, 0)

	if got := s.VolMultiplier(); got != 3 {
		t.Errorf("VolMultiplier = %v, want 2 × 1.5 = 3", got)
	}
	if got := s.HashrateMultiplier(); got != 1.5 {
		t.Errorf("HashrateMultiplier = %v, want 3 × 0.5 = 1.5", got)
	}
}

func TestTrigger_ClampsBiasStrength(t *testing.T) {
	s := newTestScheduler(nil)
	s.Trigger(model.ScheduledEvent{
		Effects: model.EventEffects{BiasDirection: model.BiasDown, BiasStrength: 0.999, DurationDays: 5},
	}, 0)

	b := s.Bias("BTC", 1)
	if b == nil {
		t.Fatal("expected active bias")
	}
	if b.Strength != 0.95 {
		t.Errorf("strength = %v, want clamped 0.95", b.Strength)
	}

	s.Trigger(model.ScheduledEvent{
		Effects: model.EventEffects{BiasDirection: model.BiasUp, BiasStrength: 0.1, DurationDays: 5},
	}, 0)
	if b := s.Bias("BTC", 1); b.Strength != 0.51 {
		t.Errorf("strength = %v, want clamped 0.51", b.Strength)
	}
}

func TestEnergyPrices_DeltasAndFloor(t *testing.T) {
	base := map[model.Region]float64{
		model.RegionAsia:    0.09,
		model.RegionEurope:  0.17,
		model.RegionAmerica: 0.12,
	}

	s := newTestScheduler(nil)
	s.Trigger(model.ScheduledEvent{Effects: model.EventEffects{
		EnergyDelta:  &model.EnergyDelta{Regions: []model.Region{model.RegionEurope}, Delta: 0.05},
		DurationDays: 3,
	}}, 0)
	s.Trigger(model.ScheduledEvent{Effects: model.EventEffects{
		EnergyDelta:  &model.EnergyDelta{Regions: []model.Region{model.RegionAsia}, Delta: -0.5},
		DurationDays: 3,
	}}, 0)

	prices := s.EnergyPrices(base)
	if got := prices[model.RegionEurope]; got < 0.2199 || got > 0.2201 {
		t.Errorf("EUROPE = %v, want 0.22", got)
	}
	if got := prices[model.RegionAsia]; got != 0.02 {
		t.Errorf("ASIA = %v, want floor 0.02", got)
	}
	if got := prices[model.RegionAmerica]; got != 0.12 {
		t.Errorf("AMERICA = %v, want untouched 0.12", got)
	}

	// Expiry restores the base table.
	s.Purge(10)
	prices = s.EnergyPrices(base)
	if got := prices[model.RegionEurope]; got != 0.17 {
		t.Errorf("EUROPE after expiry = %v, want 0.17", got)
	}
}

func TestEnergyPrices_PermanentDelta(t *testing.T) {
	base := map[model.Region]float64{model.RegionAsia: 0.09}
	s := newTestScheduler(nil)
	s.Trigger(model.ScheduledEvent{Effects: model.EventEffects{
		EnergyDelta:  &model.EnergyDelta{Regions: []model.Region{model.RegionAsia}, Delta: 0.03},
		DurationDays: -1,
	}}, 0)

	s.Purge(100000)
	got := s.EnergyPrices(base)[model.RegionAsia]
	if got < 0.1199 || got > 0.1201 {
		t.Errorf("ASIA = %v, want permanent 0.12", got)
	}
}

func TestDrainTriggered(t *testing.T) {
	s := newTestScheduler(nil)
	s.Trigger(model.ScheduledEvent{Headline: "one"}, 0)
	s.Trigger(model.ScheduledEvent{Headline: "two"}, 0)

	out := s.DrainTriggered()
	if len(out) != 2 {
		t.Fatalf("drained %d items, want 2", len(out))
	}
	if out := s.DrainTriggered(); len(out) != 0 {
		t.Errorf("second drain returned %d items, want 0", len(out))
	}
}

func TestNews_NewestFirstAndCapped(t *testing.T) {
	s := newTestScheduler(nil)
	for i := 0; i < 250; i++ {
		s.Trigger(model.ScheduledEvent{Headline: "ev"}, 0)
	}
	s.Trigger(model.ScheduledEvent{Headline: "latest"}, 0)

	news := s.News(0)
	if len(news) != 200 {
		t.Errorf("retained %d items, want 200", len(news))
	}
	if news[0].Headline != "latest" {
		t.Errorf("first item = %q, want newest", news[0].Headline)
	}
	if got := s.News(5); len(got) != 5 {
		t.Errorf("News(5) returned %d items", len(got))
	}
}
