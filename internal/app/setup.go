// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/tapglove/internal/calibration"
	"github.com/relabs-tech/tapglove/internal/clock"
	"github.com/relabs-tech/tapglove/internal/config"
	"github.com/relabs-tech/tapglove/internal/decoder"
	"github.com/relabs-tech/tapglove/internal/engine"
	"github.com/relabs-tech/tapglove/internal/gesture"
	"github.com/relabs-tech/tapglove/internal/logger"
	"github.com/relabs-tech/tapglove/internal/output"
	"github.com/relabs-tech/tapglove/internal/sensors"
	"github.com/relabs-tech/tapglove/internal/transcript"
)

// openBus initialises periph and opens the configured I2C bus. The caller
// closes the bus.
func openBus(cfg *config.Config) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", cfg.I2CBus, err)
	}
	return bus, nil
}

func axes(cfg *config.Config) ([]sensors.Axis, error) {
	out := make([]sensors.Axis, len(cfg.ChannelAxes))
	for i, a := range cfg.ChannelAxes {
		switch sensors.Axis(a) {
		case sensors.AxisX, sensors.AxisY:
			out[i] = sensors.Axis(a)
		default:
			return nil, fmt.Errorf("channel %d: unknown axis %q", i, a)
		}
	}
	return out, nil
}

// openArray builds and initialises the finger sensors behind the mux.
func openArray(bus i2c.Bus, cfg *config.Config) (*sensors.Array, error) {
	ax, err := axes(cfg)
	if err != nil {
		return nil, err
	}
	array := sensors.NewArray(bus, sensors.ArrayOpts{
		MuxAddr:  cfg.MuxI2CAddr,
		GyroAddr: cfg.GyroI2CAddr,
		Axes:     ax,
	}, clock.Real{})
	if err := array.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize sensors: %w", err)
	}
	return array, nil
}

// loadOffsets applies stored gyro offsets. A missing file leaves the offsets
// at zero.
func loadOffsets(array *sensors.Array, cfg *config.Config) error {
	offsets, err := calibration.Load(cfg.CalibrationPath, cfg.ChannelCount)
	if errors.Is(err, os.ErrNotExist) {
		logger.Log.Warnf("calibration: %s not found, running with zero offsets (run calibration first)", cfg.CalibrationPath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load calibration: %w", err)
	}
	logger.Log.Infof("calibration: loaded offsets for %d channels from %s", len(offsets), cfg.CalibrationPath)
	return array.SetOffsets(offsets)
}

// loadKeymap returns the configured keymap, or the built-in layout when no
// path is set. Its channel count must match CHANNEL_COUNT.
func loadKeymap(cfg *config.Config) (*decoder.Keymap, error) {
	km := decoder.DefaultKeymap()
	if cfg.KeymapPath != "" {
		var err error
		if km, err = decoder.LoadKeymap(cfg.KeymapPath); err != nil {
			return nil, err
		}
		logger.Log.Infof("keymap: loaded %d channels from %s", km.Channels(), cfg.KeymapPath)
	}
	if km.Channels() != cfg.ChannelCount {
		return nil, fmt.Errorf("keymap has %d channels, CHANNEL_COUNT is %d", km.Channels(), cfg.ChannelCount)
	}
	return km, nil
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		ProcessVariance:     cfg.ProcessVariance,
		MeasurementVariance: cfg.MeasurementVariance,
		Thresholds: gesture.Thresholds{
			DownUp: cfg.DownUpDelta,
			Settle: cfg.SettleDelta,
			Press:  cfg.PressThreshold,
		},
		SampleInterval: cfg.SampleDuration(),
	}
}

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	if broker == "" {
		return nil, fmt.Errorf("MQTT_BROKER is not configured")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	logger.Log.Infof("mqtt: %s connected to %s", clientID, broker)
	return client, nil
}

func subscribe(client mqtt.Client, topic string, handler mqtt.MessageHandler) error {
	token := client.Subscribe(topic, 0, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	logger.Log.Infof("mqtt: subscribed to %s", topic)
	return nil
}

// applyText decodes a text message and applies it to tr.
func applyText(tr *transcript.Transcript, payload []byte) (output.Message, error) {
	var m output.Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return m, fmt.Errorf("text unmarshal: %w", err)
	}
	tr.ApplyString(m.Char)
	return m, nil
}

func decodeTap(payload []byte) (output.TapEvent, error) {
	var ev output.TapEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("tap unmarshal: %w", err)
	}
	return ev, nil
}

// Setup loads the global configuration and starts the logger at its level.
func Setup(configPath string) error {
	if err := config.InitGlobal(configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return logger.Init(config.Get().LogLevel)
}
