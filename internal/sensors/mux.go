// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/tapglove/internal/logger"
)

// DefaultMuxAddr is the TCA9548A address with A0-A2 tied low.
const DefaultMuxAddr = 0x70

// Mux routes the shared I2C bus to one sensor at a time through a TCA9548A.
type Mux struct {
	dev      *i2c.Dev
	channels int
	current  int
}

// NewMux returns a multiplexer at addr serving the first channels ports.
func NewMux(bus i2c.Bus, addr uint16, channels int) *Mux {
	return &Mux{
		dev:      &i2c.Dev{Addr: addr, Bus: bus},
		channels: channels,
		current:  -1,
	}
}

// Select enables port ch and disables all others. Indices outside
// [0, channels) are ignored. A bus error is logged and leaves Current at -1,
// since the previously routed port may still be connected.
func (m *Mux) Select(ch int) {
	if ch < 0 || ch >= m.channels {
		return
	}
	if err := m.dev.Tx([]byte{1 << uint(ch)}, nil); err != nil {
		logger.Log.Warnf("mux: select channel %d: %v", ch, err)
		m.current = -1
		return
	}
	m.current = ch
}

// Disable turns every port off.
func (m *Mux) Disable() error {
	if err := m.dev.Tx([]byte{0}, nil); err != nil {
		return fmt.Errorf("mux: disable: %w", err)
	}
	m.current = -1
	return nil
}

// Current returns the selected port, or -1.
func (m *Mux) Current() int { return m.current }

// Channels returns the number of usable ports.
func (m *Mux) Channels() int { return m.channels }
