// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package decoder implements multi-tap decoding: taps on one finger are
// counted until another finger is tapped or the flush window passes, then the
// count is mapped to a character through the keymap.
package decoder

import (
	"time"

	"github.com/relabs-tech/tapglove/internal/clock"
	"github.com/relabs-tech/tapglove/internal/logger"
)

const (
	// MaxPending is the saturation value of a channel's tap counter. It has
	// no character, so a burst of seven or more taps resolves to nothing.
	MaxPending = 7

	DefaultFlushWindow = 800 * time.Millisecond
)

// Symbol is one resolved character.
type Symbol struct {
	Char    rune
	Channel int
	Taps    int
	Time    time.Time
}

// Sink receives resolved characters. Emit must not call back into the
// Decoder.
type Sink interface {
	Emit(Symbol)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Symbol)

func (f SinkFunc) Emit(s Symbol) { f(s) }

// Decoder owns the pending tap counters and the flush timer. It is driven
// from the poll loop and is not safe for concurrent use.
type Decoder struct {
	keymap *Keymap
	sink   Sink
	clock  clock.Clock
	window time.Duration

	pending   []int
	lastFlush time.Time
}

// New returns a Decoder with one counter per keymap channel. The flush timer
// starts at the clock's current time.
func New(km *Keymap, sink Sink, clk clock.Clock, window time.Duration) *Decoder {
	return &Decoder{
		keymap:    km,
		sink:      sink,
		clock:     clk,
		window:    window,
		pending:   make([]int, km.Channels()),
		lastFlush: clk.Now(),
	}
}

// OnTap registers a tap on ch. Pending taps on every other channel are
// flushed first, lowest channel first.
func (d *Decoder) OnTap(ch int) {
	if ch < 0 || ch >= len(d.pending) {
		logger.Log.Debugf("decoder: tap on unknown channel %d ignored", ch)
		return
	}

	for other := range d.pending {
		if other != ch && d.pending[other] > 0 {
			d.Flush(other)
		}
	}

	if d.pending[ch] < MaxPending {
		d.pending[ch]++
	}
	d.lastFlush = d.clock.Now()
}

// OnTimeout flushes every channel with pending taps, lowest channel first,
// and restarts the flush timer.
func (d *Decoder) OnTimeout() {
	for ch := range d.pending {
		if d.pending[ch] > 0 {
			d.Flush(ch)
		}
	}
	d.lastFlush = d.clock.Now()
}

// Poll calls OnTimeout when more than the flush window has passed since the
// timer was last restarted. It reports whether the timeout fired.
func (d *Decoder) Poll() bool {
	if d.clock.Now().Sub(d.lastFlush) > d.window {
		d.OnTimeout()
		return true
	}
	return false
}

// Flush resolves ch's pending count to a character, hands it to the sink and
// clears the count. A count without a character (zero, saturated, or past
// the end of the table) only clears.
func (d *Decoder) Flush(ch int) {
	if ch < 0 || ch >= len(d.pending) {
		return
	}
	taps := d.pending[ch]
	d.pending[ch] = 0

	r, ok := d.keymap.Lookup(ch, taps)
	if !ok {
		if taps > 0 {
			logger.Log.Debugf("decoder: channel %d flushed %d taps with no character", ch, taps)
		}
		return
	}
	if d.sink != nil {
		d.sink.Emit(Symbol{
			Char:    r,
			Channel: ch,
			Taps:    taps,
			Time:    d.clock.Now(),
		})
	}
}

// Pending returns the tap count buffered on ch.
func (d *Decoder) Pending(ch int) int {
	if ch < 0 || ch >= len(d.pending) {
		return 0
	}
	return d.pending[ch]
}

// Channels returns the number of decoded channels.
func (d *Decoder) Channels() int { return len(d.pending) }

// LastFlush returns the time the flush timer was last restarted.
func (d *Decoder) LastFlush() time.Time { return d.lastFlush }
