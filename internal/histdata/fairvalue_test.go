package histdata

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewFairValueOracle_EmptySchedule(t *testing.T) {
	if _, err := NewFairValueOracle(nil); err != ErrNoAnchors {
		t.Fatalf("expected ErrNoAnchors, got %v", err)
	}
}

func TestFairValueOracle_ClampsOutsideRange(t *testing.T) {
	o, err := NewFairValueOracle([]AnchorPoint{
		{Date: day("2013-01-01"), Value: 13.3},
		{Date: day("2013-04-01"), Value: 104},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := o.ValueAt(day("2012-06-15")); got != 13.3 {
		t.Errorf("before first anchor: got %v, want 13.3", got)
	}
	if got := o.ValueAt(day("2014-01-01")); got != 104 {
		t.Errorf("after last anchor: got %v, want 104", got)
	}
}

func TestFairValueOracle_InterpolatesByWholeDays(t *testing.T) {
	o, err := NewFairValueOracle([]AnchorPoint{
		{Date: day("2013-01-01"), Value: 100},
		{Date: day("2013-01-11"), Value: 200},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		date string
		want float64
	}{
		{"2013-01-01", 100},
		{"2013-01-06", 150}, // midpoint of a 10-day bracket
		{"2013-01-08", 170},
		{"2013-01-11", 200},
	}
	for _, c := range cases {
		if got := o.ValueAt(day(c.date)); got != c.want {
			t.Errorf("ValueAt(%s) = %v, want %v", c.date, got, c.want)
		}
	}
}

func TestFairValueOracle_UnsortedInput(t *testing.T) {
	o, err := NewFairValueOracle([]AnchorPoint{
		{Date: day("2013-03-01"), Value: 34},
		{Date: day("2013-01-01"), Value: 13},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := o.First().Value; got != 13 {
		t.Errorf("First().Value = %v, want 13", got)
	}
	if got := o.Last().Value; got != 34 {
		t.Errorf("Last().Value = %v, want 34", got)
	}
}

func TestBlockReward_HalvingSteps(t *testing.T) {
	cases := []struct {
		date string
		want float64
	}{
		{"2012-11-27", 50},
		{"2012-11-28", 25},
		{"2016-07-08", 25},
		{"2016-07-09", 12.5},
		{"2017-12-31", 12.5},
		{"2020-05-11", 6.25},
	}
	for _, c := range cases {
		if got := BlockReward(day(c.date)); got != c.want {
			t.Errorf("BlockReward(%s) = %v, want %v", c.date, got, c.want)
		}
	}
}

func TestNextHalvingDays(t *testing.T) {
	if got := NextHalvingDays(day("2016-07-08")); got != 1 {
		t.Errorf("one day before halving: got %d, want 1", got)
	}
	if got := NextHalvingDays(day("2021-01-01")); got != -1 {
		t.Errorf("after last scheduled halving: got %d, want -1", got)
	}
	if got := NextHalvingDays(day("2016-06-09")); got != 30 {
		t.Errorf("30 days before halving: got %d, want 30", got)
	}
}

func TestHashrateSeries_MonthLookup(t *testing.T) {
	s := NewHashrateSeries(map[string]float64{
		"2013-01": 25,
		"2013-02": 35,
		"2013-04": 80,
	})

	if got := s.At(day("2013-02-15")); got != 35 {
		t.Errorf("exact month: got %v, want 35", got)
	}
	if got := s.At(day("2013-03-15")); got != 35 {
		t.Errorf("gap month clamps to previous: got %v, want 35", got)
	}
	if got := s.At(day("2012-06-01")); got != 25 {
		t.Errorf("before first month: got %v, want 25", got)
	}
	if got := s.At(day("2017-12-01")); got != 80 {
		t.Errorf("after last month: got %v, want 80", got)
	}
}
