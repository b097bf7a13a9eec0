package integrators

import (
	"math"

	"github.com/san-kum/rigidsim/internal/body"
)

// SleepConfig holds the thresholds below which bodies accumulate rest time.
type SleepConfig struct {
	Enabled         bool
	LinearVelocity  float64
	AngularVelocity float64
	TimeBeforeSleep float64
}

func DefaultSleepConfig() SleepConfig {
	return SleepConfig{
		Enabled:         true,
		LinearVelocity:  0.02,
		AngularVelocity: 3 * math.Pi / 180,
		TimeBeforeSleep: 1.0,
	}
}

// SleepPolicy decides when a whole island goes to sleep.
type SleepPolicy struct {
	cfg SleepConfig
}

func NewSleepPolicy(cfg SleepConfig) *SleepPolicy {
	return &SleepPolicy{cfg: cfg}
}

func (p *SleepPolicy) Config() SleepConfig { return p.cfg }

// Resting reports whether b moves slower than both thresholds.
func (p *SleepPolicy) Resting(b *body.Body) bool {
	lin, ang := p.cfg.LinearVelocity, p.cfg.AngularVelocity
	return b.LinearVelocity().LenSqr() <= lin*lin && b.AngularVelocity().LenSqr() <= ang*ang
}

// Update advances every member's rest timer by dt and puts all of them to
// sleep once the least rested member has been still for TimeBeforeSleep.
// It reports whether the island fell asleep.
func (p *SleepPolicy) Update(members []*body.Body, dt float64) bool {
	if !p.cfg.Enabled || len(members) == 0 {
		return false
	}
	minTime := math.Inf(1)
	for _, b := range members {
		if !b.IsDynamic() {
			continue
		}
		if !b.AllowSleep() || !p.Resting(b) {
			b.SetSleepTime(0)
			minTime = 0
			continue
		}
		t := b.SleepTime() + dt
		b.SetSleepTime(t)
		minTime = math.Min(minTime, t)
	}
	if minTime < p.cfg.TimeBeforeSleep || math.IsInf(minTime, 1) {
		return false
	}
	for _, b := range members {
		b.SetSleeping(true)
	}
	return true
}
