package pricing

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// UnitSeconds is the length of one priced unit.
	UnitSeconds = 1800
	// MaxPoints is awarded for collection exactly at the end of the window.
	MaxPoints = 50
	// GraceMinutes is the window after expiry during which points decay to zero.
	GraceMinutes = 15
)

var ErrInvalidDuration = errors.New("invalid duration")

// Policy maps durations to prices. The zero value accepts nothing.
type Policy struct {
	unitPrice decimal.Decimal
	durations []int
}

// NewPolicy builds a Policy from the price of one 30-minute unit and the accepted durations in seconds.
func NewPolicy(unitPrice decimal.Decimal, durationsSeconds []int) *Policy {
	d := slices.Clone(durationsSeconds)
	slices.Sort(d)
	return &Policy{unitPrice: unitPrice, durations: d}
}

// UnitPrice returns the price of one 30-minute unit.
func (p *Policy) UnitPrice() decimal.Decimal {
	return p.unitPrice
}

// Durations returns the accepted durations in seconds, ascending.
func (p *Policy) Durations() []int {
	return slices.Clone(p.durations)
}

// Allowed reports whether durationSeconds is one of the preset durations.
func (p *Policy) Allowed(durationSeconds int) bool {
	return slices.Contains(p.durations, durationSeconds)
}

// Price returns (durationSeconds / 1800) * unitPrice for a preset duration.
func (p *Policy) Price(durationSeconds int) (decimal.Decimal, error) {
	if !p.Allowed(durationSeconds) {
		return decimal.Zero, fmt.Errorf("%w: %d seconds", ErrInvalidDuration, durationSeconds)
	}
	units := decimal.NewFromInt(int64(durationSeconds)).Div(decimal.NewFromInt(UnitSeconds))
	return units.Mul(p.unitPrice), nil
}

// Points is the reward for collecting minutesLate minutes after the window ended.
// Early (negative) and beyond-grace collections earn nothing.
func Points(minutesLate float64) int {
	if minutesLate < 0 || minutesLate > GraceMinutes {
		return 0
	}
	return int(math.Round(MaxPoints * (1 - minutesLate/GraceMinutes)))
}

// MinutesLate is the signed lateness of now relative to endTime.
func MinutesLate(endTime, now time.Time) float64 {
	return now.Sub(endTime).Minutes()
}

// Remaining returns the whole seconds left until endTime, never negative.
func Remaining(endTime, now time.Time) int {
	if !endTime.After(now) {
		return 0
	}
	return int(endTime.Sub(now) / time.Second)
}

// FormatRemaining renders seconds as MM:SS, or "Time is up!" at zero.
func FormatRemaining(seconds int) string {
	if seconds <= 0 {
		return "Time is up!"
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
