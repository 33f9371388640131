package model

import "time"

// SimStatus is the lifecycle state of a simulation session.
type SimStatus string

const (
	StatusLobby   SimStatus = "LOBBY"
	StatusRunning SimStatus = "RUNNING"
	StatusPaused  SimStatus = "PAUSED"
	StatusEnded   SimStatus = "ENDED"
)

// Region identifies a mining region with its own energy price.
type Region string

const (
	RegionAsia    Region = "ASIA"
	RegionEurope  Region = "EUROPE"
	RegionAmerica Region = "AMERICA"
)

// Regions lists all valid regions in a stable order.
var Regions = []Region{RegionAsia, RegionEurope, RegionAmerica}

// ValidRegion reports whether r is a known region.
func ValidRegion(r Region) bool {
	for _, v := range Regions {
		if v == r {
			return true
		}
	}
	return false
}

// BiasDirection is the direction of a price bias override.
type BiasDirection string

const (
	BiasUp   BiasDirection = "UP"
	BiasDown BiasDirection = "DOWN"
)

// Bias is an active probability override on an asset's random walk.
// Strength is the up-probability when Direction is UP (1−strength when DOWN),
// already clamped into the allowed [0.51, 0.95] band by the event scheduler.
type Bias struct {
	Direction BiasDirection `json:"direction"`
	Strength  float64       `json:"strength"`
	UntilTick int64         `json:"untilTick"`
}

// Active reports whether the bias still applies at the given tick.
func (b *Bias) Active(tick int64) bool {
	return b != nil && b.UntilTick >= tick
}

// EnergyDelta shifts the energy price of one or more regions by Delta USD/kWh.
// Empty Regions means all regions.
type EnergyDelta struct {
	Regions []Region `json:"regions,omitempty"`
	Delta   float64  `json:"delta"`
}

// EventEffects is the effect payload of a scheduled or admin-created event.
// Zero-valued fields mean "no effect of that kind". DurationDays == 0 applies
// the per-kind default; a negative DurationDays on an energy delta makes it
// permanent.
type EventEffects struct {
	BiasDirection   BiasDirection `json:"biasDirection,omitempty"`
	BiasStrength    float64       `json:"biasStrength,omitempty"`
	VolatilityBoost float64       `json:"volatilityBoost,omitempty"`
	HashrateBoost   float64       `json:"hashrateBoost,omitempty"`
	EnergyDelta     *EnergyDelta  `json:"energyDelta,omitempty"`
	DurationDays    int           `json:"durationDays,omitempty"`
}

// ScheduledEvent is a dated news event, either loaded from the historical
// schedule or created live by an admin.
type ScheduledEvent struct {
	Date     string       `json:"date"` // "YYYY-MM-DD" simulated date
	Headline string       `json:"headline"`
	Body     string       `json:"body"`
	Effects  EventEffects `json:"effects"`
}

// NewsItem is one entry of the broadcast news feed.
type NewsItem struct {
	ID        string       `json:"id"`
	Timestamp int64        `json:"timestamp"` // wall-clock ms when triggered
	Date      string       `json:"date"`      // simulated date of the event
	Headline  string       `json:"headline"`
	Body      string       `json:"body"`
	Effects   EventEffects `json:"effects"`
}

// SimState is the tick-clock state of one simulated room.
type SimState struct {
	RoomID    string    `json:"roomId"`
	Status    SimStatus `json:"status"`
	Tick      int64     `json:"tick"`
	StartedAt int64     `json:"startedAt,omitempty"` // wall-clock ms, 0 until started
}

// DayString formats a simulated instant as its "YYYY-MM-DD" date key.
func DayString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
