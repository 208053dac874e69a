package stableswap

import (
	"time"

	"ammcore/internal/ammerr"
)

// MinRampDuration is the shortest window an amplification ramp may span.
const MinRampDuration = uint64(24 * time.Hour / time.Millisecond)

// Ramp stores a linear amplification schedule. Timestamps are milliseconds.
// The current coefficient is a pure function of now; stored values change
// only through Start and Stop.
type Ramp struct {
	Initial   uint64 `json:"initial"`
	Target    uint64 `json:"target"`
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time"`
}

// NewRamp returns a schedule fixed at amp.
func NewRamp(amp uint64) (Ramp, error) {
	if err := ValidateAmp(amp); err != nil {
		return Ramp{}, err
	}
	return Ramp{Initial: amp, Target: amp}, nil
}

// Current returns the interpolated coefficient at now, clamped to the
// segment between Initial and Target.
func (r Ramp) Current(now uint64) uint64 {
	if now >= r.EndTime || r.EndTime <= r.StartTime {
		return r.Target
	}
	if now <= r.StartTime {
		return r.Initial
	}
	elapsed := now - r.StartTime
	span := r.EndTime - r.StartTime
	if r.Target >= r.Initial {
		return r.Initial + (r.Target-r.Initial)*elapsed/span
	}
	return r.Initial - (r.Initial-r.Target)*elapsed/span
}

// Ramping reports whether the schedule is still moving at now.
func (r Ramp) Ramping(now uint64) bool {
	return r.Initial != r.Target && now < r.EndTime
}

// Start begins a ramp from the current coefficient towards target, ending at
// endTime. Ramps shorter than MinRampDuration are rejected.
func (r Ramp) Start(target, now, endTime uint64) (Ramp, error) {
	if err := ValidateAmp(target); err != nil {
		return Ramp{}, err
	}
	if endTime <= now || endTime-now < MinRampDuration {
		return Ramp{}, ammerr.Wrapf(ammerr.ErrInvalidAmp, "ramp window %d..%d shorter than %dms", now, endTime, MinRampDuration)
	}
	return Ramp{
		Initial:   r.Current(now),
		Target:    target,
		StartTime: now,
		EndTime:   endTime,
	}, nil
}

// Stop freezes the schedule at its value at now.
func (r Ramp) Stop(now uint64) Ramp {
	current := r.Current(now)
	return Ramp{Initial: current, Target: current, StartTime: now, EndTime: now}
}
