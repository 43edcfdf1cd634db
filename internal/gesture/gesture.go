// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gesture turns a stream of filtered bend angles for one finger into
// discrete tap events.
//
// A tap is one full cycle of the state machine:
//
//	EqualUp --(angle falls)--> GoesDown --(angle settles)--> EqualDown
//	   ^                                                         |
//	   +----(angle settles)---- GoesUp <----(angle rises)--------+
//
// The tap is reported on the EqualDown -> GoesUp edge, and only when the
// finger travelled further than the press threshold on the way down.
package gesture

import (
	"math"
	"time"
)

// State is the position of a finger within the bend cycle.
type State int

const (
	EqualUp State = iota
	GoesDown
	EqualDown
	GoesUp
)

func (s State) String() string {
	switch s {
	case EqualUp:
		return "equal_up"
	case GoesDown:
		return "goes_down"
	case EqualDown:
		return "equal_down"
	case GoesUp:
		return "goes_up"
	default:
		return "unknown"
	}
}

// Thresholds are angle differences in degrees.
type Thresholds struct {
	// DownUp is the sample-to-sample change that starts a down or up stroke.
	DownUp float64
	// Settle is the sample-to-sample change below which the finger is at rest.
	Settle float64
	// Press is the minimum stroke depth for a tap.
	Press float64
}

// DefaultThresholds match the reference glove.
var DefaultThresholds = Thresholds{
	DownUp: 1.5,
	Settle: 0.5,
	Press:  16.2,
}

// Tap is a validated press on one channel.
type Tap struct {
	Channel    int       `json:"channel"`
	UpAngle    float64   `json:"up_angle"`
	PressAngle float64   `json:"press_angle"`
	Time       time.Time `json:"time"`
}

// Depth is how far the finger travelled during the down stroke.
func (t Tap) Depth() float64 { return t.UpAngle - t.PressAngle }

// Machine is the per-channel gesture state machine. It is not safe for
// concurrent use.
type Machine struct {
	channel int
	th      Thresholds

	state      State
	last       float64
	primed     bool
	upAngle    float64
	pressAngle float64
}

// NewMachine returns a machine for channel in state EqualUp.
func NewMachine(channel int, th Thresholds) *Machine {
	return &Machine{
		channel: channel,
		th:      th,
		state:   EqualUp,
	}
}

// Update consumes one filtered angle. It returns a Tap and true when the
// sample completes a valid press. The first sample only records the
// reference angle.
func (m *Machine) Update(real float64, now time.Time) (Tap, bool) {
	if !m.primed {
		m.last = real
		m.primed = true
		return Tap{}, false
	}

	var (
		tap Tap
		ok  bool
	)

	switch m.state {
	case EqualUp:
		if m.last > real+m.th.DownUp {
			m.upAngle = real
			m.state = GoesDown
		}
	case GoesDown:
		if math.Abs(m.last-real) < m.th.Settle {
			m.pressAngle = real
			m.state = EqualDown
		}
	case EqualDown:
		if m.last < real-m.th.DownUp {
			m.state = GoesUp
			if m.upAngle > m.pressAngle+m.th.Press {
				tap = Tap{
					Channel:    m.channel,
					UpAngle:    m.upAngle,
					PressAngle: m.pressAngle,
					Time:       now,
				}
				ok = true
			}
		}
	case GoesUp:
		if math.Abs(m.last-real) < m.th.Settle {
			m.state = EqualUp
		}
	}

	m.last = real
	return tap, ok
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Channel returns the channel index the machine was built for.
func (m *Machine) Channel() int { return m.channel }

// Last returns the previous filtered angle.
func (m *Machine) Last() float64 { return m.last }
