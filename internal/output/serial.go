// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package output

import (
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/tapglove/internal/decoder"
	"github.com/relabs-tech/tapglove/internal/logger"
)

// SerialKeyboard types characters through a BLE HID keyboard bridge attached
// to a serial port. The bridge turns every received byte sequence into key
// presses; 0x08 is sent as backspace.
type SerialKeyboard struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewSerialKeyboard wraps an already open port.
func NewSerialKeyboard(w io.WriteCloser) *SerialKeyboard {
	return &SerialKeyboard{w: w}
}

// OpenSerialKeyboard opens port at baud 8N1.
func OpenSerialKeyboard(port string, baud uint) (*SerialKeyboard, error) {
	opts := serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	w, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("keyboard: open serial port %s: %w", port, err)
	}
	logger.Log.Infof("keyboard: serial bridge on %s at %d baud", port, baud)
	return NewSerialKeyboard(w), nil
}

func (k *SerialKeyboard) Emit(s decoder.Symbol) {
	n := utf8.RuneLen(s.Char)
	if n < 0 {
		logger.Log.Warnf("keyboard: cannot encode character %U", s.Char)
		return
	}
	buf := make([]byte, n)
	utf8.EncodeRune(buf, s.Char)

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, err := k.w.Write(buf); err != nil {
		logger.Log.Warnf("keyboard: write %q: %v", s.Char, err)
	}
}

// Close closes the serial port.
func (k *SerialKeyboard) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.w.Close()
}
