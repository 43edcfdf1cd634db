// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/tapglove/internal/calibration"
	"github.com/relabs-tech/tapglove/internal/clock"
	"github.com/relabs-tech/tapglove/internal/logger"
)

// Axis names the tilt angle a finger sensor reports.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Array is the set of finger sensors sharing one I2C bus behind a mux. Every
// sensor answers on the same address, so a channel must be selected before it
// is touched.
type Array struct {
	mux   *Mux
	gyros []*MPU6050
	axes  []Axis
}

// ArrayOpts describes the wiring of an Array.
type ArrayOpts struct {
	MuxAddr  uint16
	GyroAddr uint16
	Axes     []Axis // one per channel
}

// NewArray builds an Array with one MPU-6050 per axis entry.
func NewArray(bus i2c.Bus, opts ArrayOpts, clk clock.Clock) *Array {
	n := len(opts.Axes)
	a := &Array{
		mux:   NewMux(bus, opts.MuxAddr, n),
		gyros: make([]*MPU6050, n),
		axes:  append([]Axis(nil), opts.Axes...),
	}
	for ch := range a.gyros {
		a.gyros[ch] = NewMPU6050(&i2c.Dev{Addr: opts.GyroAddr, Bus: bus}, clk)
	}
	return a
}

// Init selects every channel in turn and initialises its sensor.
func (a *Array) Init() error {
	for ch, g := range a.gyros {
		a.mux.Select(ch)
		if err := g.Init(); err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
		logger.Log.Infof("sensors: channel %d gyro initialised (axis %s)", ch, a.axes[ch])
	}
	return nil
}

// Channels returns the number of sensors.
func (a *Array) Channels() int { return len(a.gyros) }

// Select routes the bus to channel ch. Out-of-range channels are ignored.
func (a *Array) Select(ch int) { a.mux.Select(ch) }

// ReadAngle updates channel ch's sensor and returns its configured tilt angle.
// It fails without touching the bus unless ch is the selected mux port.
func (a *Array) ReadAngle(ch int) (float64, error) {
	if ch < 0 || ch >= len(a.gyros) {
		return 0, fmt.Errorf("channel %d out of range", ch)
	}
	if cur := a.mux.Current(); cur != ch {
		return 0, fmt.Errorf("channel %d not selected (mux on %d)", ch, cur)
	}
	g := a.gyros[ch]
	if err := g.Update(); err != nil {
		return 0, fmt.Errorf("channel %d: %w", ch, err)
	}
	if a.axes[ch] == AxisY {
		return g.AngleY(), nil
	}
	return g.AngleX(), nil
}

// SetOffsets applies stored gyro bias, one entry per channel.
func (a *Array) SetOffsets(offsets []calibration.Offsets) error {
	if len(offsets) != len(a.gyros) {
		return fmt.Errorf("got %d offsets for %d channels", len(offsets), len(a.gyros))
	}
	for ch, o := range offsets {
		a.gyros[ch].SetOffsets(o)
	}
	return nil
}

// CalcOffsets measures the gyro bias of every channel with n samples each.
// All fingers must be kept still while it runs.
func (a *Array) CalcOffsets(n int) ([]calibration.Offsets, error) {
	out := make([]calibration.Offsets, len(a.gyros))
	for ch, g := range a.gyros {
		a.mux.Select(ch)
		o, err := g.CalcOffsets(n)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		logger.Log.Infof("sensors: channel %d offsets X=%.3f Y=%.3f Z=%.3f", ch, o.X, o.Y, o.Z)
		out[ch] = o
	}
	return out, nil
}

// Close disables every mux port.
func (a *Array) Close() error {
	return a.mux.Disable()
}
