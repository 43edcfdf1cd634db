// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/tapglove/internal/config"
	"github.com/relabs-tech/tapglove/internal/logger"
	"github.com/relabs-tech/tapglove/internal/output"
	"github.com/relabs-tech/tapglove/internal/transcript"
)

// printable renders control characters readably.
func printable(char string) string {
	switch char {
	case "\b":
		return "⌫"
	case " ":
		return "␠"
	}
	return strconv.Quote(char)
}

func formatText(m output.Message, text string) string {
	return fmt.Sprintf("[TEXT] %-5s ch=%d taps=%d | %s\n", printable(m.Char), m.Channel, m.Taps, text)
}

func formatTap(ev output.TapEvent) string {
	return fmt.Sprintf("[TAP ] ch=%d pending=%d depth=%5.1f\n", ev.Channel, ev.Pending, ev.Depth)
}

// RunConsoleMQTT prints every decoded character with the running transcript,
// and every tap when telemetry is on, until ctx is done.
func RunConsoleMQTT(ctx context.Context, w io.Writer) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	tr := transcript.New(0)
	var mu sync.Mutex // serialises writes to w

	err = subscribe(client, cfg.TopicText, func(_ mqtt.Client, msg mqtt.Message) {
		m, err := applyText(tr, msg.Payload())
		if err != nil {
			logger.Log.Warnf("console: %v", err)
			return
		}
		mu.Lock()
		fmt.Fprint(w, formatText(m, tr.String()))
		mu.Unlock()
	})
	if err != nil {
		return err
	}

	err = subscribe(client, cfg.TopicTaps, func(_ mqtt.Client, msg mqtt.Message) {
		ev, err := decodeTap(msg.Payload())
		if err != nil {
			logger.Log.Warnf("console: %v", err)
			return
		}
		mu.Lock()
		fmt.Fprint(w, formatTap(ev))
		mu.Unlock()
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	logger.Log.Info("console: shutting down")
	return nil
}
