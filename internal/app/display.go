// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/tapglove/internal/config"
	"github.com/relabs-tech/tapglove/internal/logger"
	"github.com/relabs-tech/tapglove/internal/output"
	"github.com/relabs-tech/tapglove/internal/transcript"
)

// OLED geometry with basicfont.Face7x13: 18 columns, 4 rows.
const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
	charWidth     = 7
	textColumns   = displayWidth / charWidth
	textRows      = 3
)

// displayState is what the update loop renders.
type displayState struct {
	mu      sync.Mutex
	tr      *transcript.Transcript
	channel int // channel with pending taps, -1 for none
	pending int
}

func (s *displayState) onText(m output.Message) {
	s.mu.Lock()
	if m.Channel == s.channel {
		s.channel, s.pending = -1, 0
	}
	s.mu.Unlock()
}

func (s *displayState) onTap(ev output.TapEvent) {
	s.mu.Lock()
	s.channel, s.pending = ev.Channel, ev.Pending
	s.mu.Unlock()
}

func (s *displayState) status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel < 0 {
		return fmt.Sprintf("%d chars", s.tr.Count())
	}
	return fmt.Sprintf("ch%d %s", s.channel, tapMarks(s.pending))
}

func tapMarks(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '*'
	}
	return string(b)
}

// renderScreen draws up to textRows transcript lines and a status line.
func renderScreen(lines []string, status string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i >= textRows {
			break
		}
		drawer.Dot = fixed.P(0, lineHeight*(i+1))
		drawer.DrawString(line)
	}
	drawer.Dot = fixed.P(0, displayHeight-2)
	drawer.DrawString(status)
	return img
}

func showSplash(dev *ssd1306.Dev) error {
	img := renderScreen([]string{"", "   tap glove"}, "  waiting...")
	return dev.Draw(dev.Bounds(), img, image.Point{})
}

// RunDisplay shows the tail of the decoded text on an SSD1306 OLED.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	bus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	logger.Log.Info("display: SSD1306 initialized")

	if err := showSplash(dev); err != nil {
		logger.Log.Warnf("display: error showing splash: %v", err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	state := &displayState{tr: transcript.New(0), channel: -1}

	err = subscribe(client, cfg.TopicText, func(_ mqtt.Client, msg mqtt.Message) {
		m, err := applyText(state.tr, msg.Payload())
		if err != nil {
			logger.Log.Warnf("display: %v", err)
			return
		}
		state.onText(m)
	})
	if err != nil {
		return err
	}
	err = subscribe(client, cfg.TopicTaps, func(_ mqtt.Client, msg mqtt.Message) {
		ev, err := decodeTap(msg.Payload())
		if err != nil {
			logger.Log.Warnf("display: %v", err)
			return
		}
		state.onTap(ev)
	})
	if err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	logger.Log.Info("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			img := renderScreen(state.tr.Lines(textColumns, textRows), state.status())
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				logger.Log.Warnf("display: error updating display: %v", err)
			}
		}
	}
}
