// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"math/rand"

	"github.com/relabs-tech/tapglove/internal/decoder"
)

const (
	MockRestAngle  = 40.0
	MockPressAngle = 10.0
	mockStroke     = 5.0
	mockHoldDown   = 3
	mockHoldUp     = 4
	mockLeadIn     = 10
)

// MockSource replays scripted finger motion, one frame per poll round. Each
// channel keeps its own read position, so the script stays aligned as long as
// every channel is read once per round.
type MockSource struct {
	channels int
	frames   [][]float64 // frames[round][channel]
	pos      []int
	selected int

	noise float64
	rng   *rand.Rand
}

// NewMockSource returns a source with every finger resting for a few rounds.
func NewMockSource(channels int) *MockSource {
	m := &MockSource{
		channels: channels,
		pos:      make([]int, channels),
		selected: -1,
	}
	m.Idle(mockLeadIn)
	return m
}

// WithNoise adds uniform noise of ±amp degrees to every reading.
func (m *MockSource) WithNoise(amp float64, seed int64) *MockSource {
	m.noise = amp
	m.rng = rand.New(rand.NewSource(seed))
	return m
}

func (m *MockSource) frame(active int, angle float64) {
	f := make([]float64, m.channels)
	for ch := range f {
		f[ch] = MockRestAngle
	}
	if active >= 0 {
		f[active] = angle
	}
	m.frames = append(m.frames, f)
}

// Idle appends rounds frames with every finger at rest.
func (m *MockSource) Idle(rounds int) {
	for i := 0; i < rounds; i++ {
		m.frame(-1, 0)
	}
}

// Tap appends one full bend-and-release of channel ch.
func (m *MockSource) Tap(ch int) {
	for a := MockRestAngle - mockStroke; a >= MockPressAngle; a -= mockStroke {
		m.frame(ch, a)
	}
	for i := 0; i < mockHoldDown; i++ {
		m.frame(ch, MockPressAngle)
	}
	for a := MockPressAngle + mockStroke; a <= MockRestAngle; a += mockStroke {
		m.frame(ch, a)
	}
	for i := 0; i < mockHoldUp; i++ {
		m.frame(ch, MockRestAngle)
	}
}

// Type scripts the taps that spell text with km. pause rounds of rest are
// inserted between consecutive characters on the same finger and after the
// last character; it must outlast the flush window.
func (m *MockSource) Type(km *decoder.Keymap, text string, pause int) error {
	prev := -1
	for _, r := range text {
		ch, taps, ok := km.Locate(r)
		if !ok {
			return fmt.Errorf("mock: no key for %q", r)
		}
		if ch >= m.channels {
			return fmt.Errorf("mock: %q needs channel %d, source has %d", r, ch, m.channels)
		}
		if ch == prev {
			m.Idle(pause)
		}
		for i := 0; i < taps; i++ {
			m.Tap(ch)
		}
		prev = ch
	}
	m.Idle(pause)
	return nil
}

// Rounds returns the length of the script in poll rounds.
func (m *MockSource) Rounds() int { return len(m.frames) }

// Done reports whether every channel has consumed the whole script.
func (m *MockSource) Done() bool {
	for _, p := range m.pos {
		if p < len(m.frames) {
			return false
		}
	}
	return true
}

// Select records the selected channel. Out-of-range channels are ignored.
func (m *MockSource) Select(ch int) {
	if ch < 0 || ch >= m.channels {
		return
	}
	m.selected = ch
}

// ReadAngle returns the next scripted angle of ch, or the rest angle once the
// script is exhausted.
func (m *MockSource) ReadAngle(ch int) (float64, error) {
	if ch < 0 || ch >= m.channels {
		return 0, fmt.Errorf("channel %d out of range", ch)
	}
	if ch != m.selected {
		return 0, fmt.Errorf("channel %d read while channel %d selected", ch, m.selected)
	}
	angle := MockRestAngle
	if p := m.pos[ch]; p < len(m.frames) {
		angle = m.frames[p][ch]
		m.pos[ch]++
	}
	if m.rng != nil {
		angle += (m.rng.Float64()*2 - 1) * m.noise
	}
	return angle, nil
}
