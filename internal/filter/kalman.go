// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter smooths a single noisy angle stream with a scalar Kalman
// filter (random-walk state model, identity measurement).
package filter

// DefaultProcessVariance is the process-noise variance Q shared by every channel.
const DefaultProcessVariance = 0.3

// Kalman holds the state of one channel's estimator.
type Kalman struct {
	q float64 // process-noise variance
	r float64 // measurement-noise variance, measured per physical sensor

	p        float64 // error covariance
	gain     float64
	prior    float64
	estimate float64
}

// NewKalman creates a filter with process variance q and measurement
// variance r. The error covariance starts at 1.0 and the estimate at 0.
func NewKalman(q, r float64) *Kalman {
	return &Kalman{
		q: q,
		r: r,
		p: 1.0,
	}
}

// Update feeds one raw measurement and returns the new estimate.
func (k *Kalman) Update(raw float64) float64 {
	pc := k.p + k.q
	k.gain = pc / (pc + k.r)
	k.p = (1 - k.gain) * pc

	k.prior = k.estimate
	k.estimate = k.gain*(raw-k.prior) + k.prior
	return k.estimate
}

// Estimate returns the most recent estimate.
func (k *Kalman) Estimate() float64 { return k.estimate }

// Gain returns the gain used by the last Update.
func (k *Kalman) Gain() float64 { return k.gain }

// Covariance returns the current error covariance.
func (k *Kalman) Covariance() float64 { return k.p }
