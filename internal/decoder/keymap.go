// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package decoder

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// MaxTableLen is the number of characters reachable on one channel.
const MaxTableLen = 6

var (
	ErrNoChannels   = errors.New("keymap has no channels")
	ErrTableTooLong = errors.New("keymap table longer than 6 characters")
	ErrBadCharacter = errors.New("keymap entry must be exactly one character")
)

// Keymap holds the character table of every channel. Index 0 of a table is
// the character for one tap. A Keymap is immutable once built.
type Keymap struct {
	tables [][]rune
}

// DefaultTables is the layout of the reference five-finger glove.
var DefaultTables = [][]rune{
	{'w', 'l', ',', 'i', 'p', 'v'},
	{'o', 'r', 'b', 'j', 'q', 'x'},
	{'d', 'h', 'c', 'k', 's', 'y'},
	{'e', '\b', 'f', 'm', 't', 'z'},
	{' ', 'a', 'g', 'n', 'u', '!'},
}

// NewKeymap validates and copies tables.
func NewKeymap(tables [][]rune) (*Keymap, error) {
	if len(tables) == 0 {
		return nil, ErrNoChannels
	}
	km := &Keymap{tables: make([][]rune, len(tables))}
	for ch, t := range tables {
		if len(t) > MaxTableLen {
			return nil, fmt.Errorf("channel %d: %w", ch, ErrTableTooLong)
		}
		km.tables[ch] = append([]rune(nil), t...)
	}
	return km, nil
}

// DefaultKeymap returns the built-in five channel layout.
func DefaultKeymap() *Keymap {
	km, err := NewKeymap(DefaultTables)
	if err != nil {
		panic(err)
	}
	return km
}

type keymapFile struct {
	Channels [][]string `yaml:"channels"`
}

// LoadKeymap reads a YAML keymap:
//
//	channels:
//	  - ["w", "l", ",", "i", "p", "v"]
//	  - ["o", "r", "b", "j", "q", "x"]
func LoadKeymap(path string) (*Keymap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keymap file: %w", err)
	}
	defer f.Close()

	var kf keymapFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&kf); err != nil {
		return nil, fmt.Errorf("failed to parse keymap %s: %w", path, err)
	}

	tables := make([][]rune, len(kf.Channels))
	for ch, entries := range kf.Channels {
		for i, e := range entries {
			if utf8.RuneCountInString(e) != 1 {
				return nil, fmt.Errorf("channel %d entry %d %q: %w", ch, i+1, e, ErrBadCharacter)
			}
			r, _ := utf8.DecodeRuneInString(e)
			tables[ch] = append(tables[ch], r)
		}
	}
	return NewKeymap(tables)
}

// Channels returns the number of channels in the keymap.
func (k *Keymap) Channels() int { return len(k.tables) }

// Lookup returns the character for taps presses on channel ch. Counts
// outside 1..len(table) have no character.
func (k *Keymap) Lookup(ch, taps int) (rune, bool) {
	if ch < 0 || ch >= len(k.tables) {
		return 0, false
	}
	t := k.tables[ch]
	if taps < 1 || taps > len(t) {
		return 0, false
	}
	return t[taps-1], true
}

// Locate finds the channel and tap count that produce r.
func (k *Keymap) Locate(r rune) (ch, taps int, ok bool) {
	for ch, t := range k.tables {
		for i, c := range t {
			if c == r {
				return ch, i + 1, true
			}
		}
	}
	return 0, 0, false
}
