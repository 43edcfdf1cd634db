// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package output delivers resolved characters to the outside world. Every
// sink is fire-and-forget: transport failures are logged, never returned to
// the decoder.
package output

import (
	"time"

	"github.com/relabs-tech/tapglove/internal/decoder"
	"github.com/relabs-tech/tapglove/internal/logger"
)

// Message is the wire form of a resolved character.
type Message struct {
	Char    string    `json:"char"`
	Channel int       `json:"channel"`
	Taps    int       `json:"taps"`
	Time    time.Time `json:"time"`
}

// NewMessage converts a decoder symbol.
func NewMessage(s decoder.Symbol) Message {
	return Message{
		Char:    string(s.Char),
		Channel: s.Channel,
		Taps:    s.Taps,
		Time:    s.Time,
	}
}

// LogSink writes one log line per character.
type LogSink struct{}

func (LogSink) Emit(s decoder.Symbol) {
	logger.Log.Infow("output: character",
		"char", string(s.Char),
		"channel", s.Channel,
		"taps", s.Taps,
	)
}

// Multi forwards every symbol to each sink in order. Nil entries are skipped.
type Multi []decoder.Sink

func (m Multi) Emit(s decoder.Symbol) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(s)
		}
	}
}
