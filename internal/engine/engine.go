// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package engine runs the poll loop: every round it reads each channel in
// ascending order, filters the angle, feeds the gesture machine and hands
// taps to the decoder, then checks the flush timer once.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/relabs-tech/tapglove/internal/clock"
	"github.com/relabs-tech/tapglove/internal/decoder"
	"github.com/relabs-tech/tapglove/internal/filter"
	"github.com/relabs-tech/tapglove/internal/gesture"
	"github.com/relabs-tech/tapglove/internal/logger"
)

// Source yields one raw angle per channel read. Select must be called before
// ReadAngle for the same channel; out-of-range channels are ignored.
type Source interface {
	Select(ch int)
	ReadAngle(ch int) (float64, error)
}

// Sample is one filtered reading of one channel.
type Sample struct {
	Channel  int       `json:"channel"`
	Raw      float64   `json:"raw"`
	Filtered float64   `json:"filtered"`
	State    string    `json:"state"`
	Time     time.Time `json:"time"`
}

// Telemetry observes the loop. Implementations must not block.
type Telemetry interface {
	Sample(Sample)
	Tap(tap gesture.Tap, pending int)
}

// Options tunes the per-channel pipeline.
type Options struct {
	ProcessVariance     float64
	MeasurementVariance []float64 // one per channel
	Thresholds          gesture.Thresholds
	SampleInterval      time.Duration
	Telemetry           Telemetry // optional
}

type channel struct {
	filter  *filter.Kalman
	machine *gesture.Machine
}

// Engine owns all per-channel state. It runs on a single goroutine.
type Engine struct {
	src      Source
	dec      *decoder.Decoder
	clock    clock.Clock
	opts     Options
	channels []channel

	rounds  uint64
	skipped uint64
}

// New builds one filter and one gesture machine per decoder channel.
func New(src Source, dec *decoder.Decoder, clk clock.Clock, opts Options) (*Engine, error) {
	n := dec.Channels()
	if len(opts.MeasurementVariance) != n {
		return nil, fmt.Errorf("engine: %d measurement variances for %d channels", len(opts.MeasurementVariance), n)
	}
	if opts.SampleInterval <= 0 {
		return nil, fmt.Errorf("engine: sample interval must be positive, got %v", opts.SampleInterval)
	}
	e := &Engine{
		src:      src,
		dec:      dec,
		clock:    clk,
		opts:     opts,
		channels: make([]channel, n),
	}
	for ch := range e.channels {
		e.channels[ch] = channel{
			filter:  filter.NewKalman(opts.ProcessVariance, opts.MeasurementVariance[ch]),
			machine: gesture.NewMachine(ch, opts.Thresholds),
		}
	}
	return e, nil
}

// Step runs one poll round.
func (e *Engine) Step() {
	for ch := range e.channels {
		e.stepChannel(ch)
	}
	e.dec.Poll()
	e.rounds++
}

func (e *Engine) stepChannel(ch int) {
	c := &e.channels[ch]

	e.src.Select(ch)
	raw, err := e.src.ReadAngle(ch)
	if err != nil {
		e.skipped++
		logger.Log.Warnf("engine: channel %d read skipped: %v", ch, err)
		return
	}

	now := e.clock.Now()
	filtered := c.filter.Update(raw)
	tap, ok := c.machine.Update(filtered, now)

	if t := e.opts.Telemetry; t != nil {
		t.Sample(Sample{
			Channel:  c.machine.Channel(),
			Raw:      raw,
			Filtered: filtered,
			State:    c.machine.State().String(),
			Time:     now,
		})
	}
	if !ok {
		return
	}

	logger.Log.Debugf("engine: tap on channel %d depth %.1f", ch, tap.Depth())
	e.dec.OnTap(ch)
	if t := e.opts.Telemetry; t != nil {
		t.Tap(tap, e.dec.Pending(ch))
	}
}

// Run steps the loop every SampleInterval until ctx is done. Taps still
// pending at shutdown are flushed before it returns.
func (e *Engine) Run(ctx context.Context) error {
	logger.Log.Infof("engine: polling %d channels every %v", len(e.channels), e.opts.SampleInterval)

	ticker := time.NewTicker(e.opts.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.dec.OnTimeout()
			logger.Log.Infof("engine: stopped after %d rounds (%d reads skipped)", e.rounds, e.skipped)
			return nil
		case <-ticker.C:
			e.Step()
		}
	}
}

// Rounds returns the number of completed poll rounds.
func (e *Engine) Rounds() uint64 { return e.rounds }

// Skipped returns the number of failed channel reads.
func (e *Engine) Skipped() uint64 { return e.skipped }

// State returns the gesture state of ch.
func (e *Engine) State(ch int) gesture.State {
	return e.channels[ch].machine.State()
}

// Filtered returns the latest filtered angle of ch.
func (e *Engine) Filtered(ch int) float64 {
	return e.channels[ch].filter.Estimate()
}
