// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration persists per-channel gyro bias offsets.
//
// File layout: one record per channel, in channel order, each record three
// little-endian IEEE-754 float32 values (X, Y, Z). No header.
package calibration

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// RecordSize is the on-disk size of one channel's offsets.
const RecordSize = 3 * 4

// ErrShortFile is returned when the file holds fewer records than requested.
var ErrShortFile = errors.New("calibration file too short")

// Offsets is the gyro bias of one sensor in °/s.
type Offsets struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Encode serialises offsets in channel order.
func Encode(offsets []Offsets) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(offsets)*RecordSize))
	for _, o := range offsets {
		// bytes.Buffer writes cannot fail
		_ = binary.Write(buf, binary.LittleEndian, o)
	}
	return buf.Bytes()
}

// Decode reads n records from b. Trailing bytes are ignored.
func Decode(b []byte, n int) ([]Offsets, error) {
	if len(b) < n*RecordSize {
		return nil, fmt.Errorf("%w: need %d bytes for %d channels, have %d", ErrShortFile, n*RecordSize, n, len(b))
	}
	out := make([]Offsets, n)
	if err := binary.Read(bytes.NewReader(b[:n*RecordSize]), binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("decode offsets: %w", err)
	}
	return out, nil
}

// Save writes offsets to path, replacing any existing file.
func Save(path string, offsets []Offsets) error {
	if err := os.WriteFile(path, Encode(offsets), 0o644); err != nil {
		return fmt.Errorf("write calibration %s: %w", path, err)
	}
	return nil
}

// Load reads n channels of offsets from path.
func Load(path string, n int) ([]Offsets, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration %s: %w", path, err)
	}
	return Decode(b, n)
}
