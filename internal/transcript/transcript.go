// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transcript keeps the text typed so far for the console, web and
// display tools.
package transcript

import (
	"strings"
	"sync"
)

// DefaultMax is the number of runes kept when New is given a non-positive size.
const DefaultMax = 4096

// Transcript is a bounded rune buffer. It is safe for concurrent use.
type Transcript struct {
	mu    sync.RWMutex
	runes []rune
	max   int
	count uint64
}

func New(max int) *Transcript {
	if max <= 0 {
		max = DefaultMax
	}
	return &Transcript{max: max}
}

// Apply adds one decoded character. Backspace removes the last rune.
func (t *Transcript) Apply(r rune) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	if r == '\b' {
		if n := len(t.runes); n > 0 {
			t.runes = t.runes[:n-1]
		}
		return
	}
	t.runes = append(t.runes, r)
	if over := len(t.runes) - t.max; over > 0 {
		t.runes = append(t.runes[:0], t.runes[over:]...)
	}
}

// ApplyString applies every rune of s.
func (t *Transcript) ApplyString(s string) {
	for _, r := range s {
		t.Apply(r)
	}
}

func (t *Transcript) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return string(t.runes)
}

// Count returns how many characters have been applied, backspaces included.
func (t *Transcript) Count() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// Reset clears the buffer and the character count.
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.runes = t.runes[:0]
	t.count = 0
	t.mu.Unlock()
}

// Lines wraps the text at width runes, breaking on newlines too, and returns
// at most the last n lines.
func (t *Transcript) Lines(width, n int) []string {
	if width <= 0 || n <= 0 {
		return nil
	}
	t.mu.RLock()
	text := string(t.runes)
	t.mu.RUnlock()

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		r := []rune(para)
		for len(r) > width {
			lines = append(lines, string(r[:width]))
			r = r[width:]
		}
		lines = append(lines, string(r))
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
