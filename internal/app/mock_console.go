// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/tapglove/internal/clock"
	"github.com/relabs-tech/tapglove/internal/config"
	"github.com/relabs-tech/tapglove/internal/decoder"
	"github.com/relabs-tech/tapglove/internal/engine"
	"github.com/relabs-tech/tapglove/internal/logger"
	"github.com/relabs-tech/tapglove/internal/output"
	"github.com/relabs-tech/tapglove/internal/sensors"
	"github.com/relabs-tech/tapglove/internal/transcript"
)

// mockPipeline is the full decoding chain fed by scripted finger motion.
type mockPipeline struct {
	src *sensors.MockSource
	eng *engine.Engine
	tr  *transcript.Transcript
}

// mockPause is the number of rest rounds between characters on the same
// finger: twice the flush window, and always more than one window.
func mockPause(cfg *config.Config) int {
	pause := 2 * cfg.FlushWindow / cfg.SampleInterval
	if floor := cfg.FlushWindow/cfg.SampleInterval + 2; pause < floor {
		pause = floor
	}
	return pause
}

// newMockPipeline scripts text with the configured keymap.
func newMockPipeline(cfg *config.Config, text string, noise float64, clk clock.Clock, sink decoder.Sink) (*mockPipeline, error) {
	km, err := loadKeymap(cfg)
	if err != nil {
		return nil, err
	}

	src := sensors.NewMockSource(km.Channels())
	if noise > 0 {
		src.WithNoise(noise, time.Now().UnixNano())
	}
	if err := src.Type(km, text, mockPause(cfg)); err != nil {
		return nil, err
	}

	p := &mockPipeline{src: src, tr: transcript.New(0)}
	sinks := output.Multi{
		decoder.SinkFunc(func(s decoder.Symbol) { p.tr.Apply(s.Char) }),
		sink,
	}
	dec := decoder.New(km, sinks, clk, cfg.FlushDuration())
	if p.eng, err = engine.New(src, dec, clk, engineOptions(cfg)); err != nil {
		return nil, err
	}
	return p, nil
}

// RunMockConsole types text through a scripted source and the real decoding
// chain at the configured sample rate, printing each character as it is
// decoded. No hardware is needed.
func RunMockConsole(ctx context.Context, text string, noise float64, w io.Writer) error {
	cfg := config.Get()

	var p *mockPipeline
	echo := decoder.SinkFunc(func(s decoder.Symbol) {
		fmt.Fprint(w, formatText(output.NewMessage(s), p.tr.String()))
	})
	p, err := newMockPipeline(cfg, text, noise, clock.Real{}, echo)
	if err != nil {
		return err
	}
	logger.Log.Infof("mock: typing %q over %d rounds", text, p.src.Rounds())

	ticker := time.NewTicker(cfg.SampleDuration())
	defer ticker.Stop()
	for !p.src.Done() {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.eng.Step()
		}
	}

	want := transcript.New(0)
	want.ApplyString(text)
	if got := p.tr.String(); got != want.String() {
		logger.Log.Warnf("mock: decoded %q, expected %q", got, want.String())
	}
	return nil
}
