// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package output

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/tapglove/internal/decoder"
	"github.com/relabs-tech/tapglove/internal/engine"
	"github.com/relabs-tech/tapglove/internal/gesture"
	"github.com/relabs-tech/tapglove/internal/logger"
)

// Publisher is the part of mqtt.Client the sinks use.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

const publishTimeout = 2 * time.Second

// MQTTSink publishes every character as a Message to one topic. The poll
// loop never waits on the broker; completion is checked in the background.
type MQTTSink struct {
	client Publisher
	topic  string
}

func NewMQTTSink(client Publisher, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic}
}

func (m *MQTTSink) Emit(s decoder.Symbol) {
	payload, err := json.Marshal(NewMessage(s))
	if err != nil {
		logger.Log.Errorf("mqtt: marshal character: %v", err)
		return
	}
	token := m.client.Publish(m.topic, 1, false, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			logger.Log.Warnf("mqtt: publish %q to %s timed out", s.Char, m.topic)
			return
		}
		if err := token.Error(); err != nil {
			logger.Log.Warnf("mqtt: publish %q to %s: %v", s.Char, m.topic, err)
		}
	}()
}

// TapEvent is a validated press and the channel's pending count after it.
type TapEvent struct {
	gesture.Tap
	Depth   float64 `json:"depth"`
	Pending int     `json:"pending"`
}

// MQTTTelemetry streams samples and taps for live plotting. Messages are
// QoS 0 and never awaited.
type MQTTTelemetry struct {
	client       Publisher
	topicSamples string
	topicTaps    string
}

func NewMQTTTelemetry(client Publisher, topicSamples, topicTaps string) *MQTTTelemetry {
	return &MQTTTelemetry{client: client, topicSamples: topicSamples, topicTaps: topicTaps}
}

func (t *MQTTTelemetry) Sample(s engine.Sample) {
	t.publish(t.topicSamples, s)
}

func (t *MQTTTelemetry) Tap(tap gesture.Tap, pending int) {
	t.publish(t.topicTaps, TapEvent{Tap: tap, Depth: tap.Depth(), Pending: pending})
}

func (t *MQTTTelemetry) publish(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("telemetry: marshal for %s: %v", topic, err)
		return
	}
	t.client.Publish(topic, 0, false, payload)
}
