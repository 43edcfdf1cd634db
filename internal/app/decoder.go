// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"

	"github.com/relabs-tech/tapglove/internal/calibration"
	"github.com/relabs-tech/tapglove/internal/clock"
	"github.com/relabs-tech/tapglove/internal/config"
	"github.com/relabs-tech/tapglove/internal/decoder"
	"github.com/relabs-tech/tapglove/internal/engine"
	"github.com/relabs-tech/tapglove/internal/logger"
	"github.com/relabs-tech/tapglove/internal/output"
)

// DecoderOptions are command-line switches of the decoder service.
type DecoderOptions struct {
	// Calibrate measures and saves fresh gyro offsets before decoding.
	Calibrate bool
}

// RunDecoder reads the glove and types decoded characters until ctx is done.
func RunDecoder(ctx context.Context, opts DecoderOptions) error {
	cfg := config.Get()
	logger.Log.Infof("decoder: starting with %d channels", cfg.ChannelCount)

	bus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	array, err := openArray(bus, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := array.Close(); err != nil {
			logger.Log.Warnf("decoder: %v", err)
		}
	}()

	if opts.Calibrate {
		logger.Log.Infof("calibration: keep all fingers still (%d samples per channel)", cfg.CalibrationSamples)
		offsets, err := array.CalcOffsets(cfg.CalibrationSamples)
		if err != nil {
			return fmt.Errorf("calibration failed: %w", err)
		}
		if err := calibration.Save(cfg.CalibrationPath, offsets); err != nil {
			return err
		}
	} else if err := loadOffsets(array, cfg); err != nil {
		return err
	}

	km, err := loadKeymap(cfg)
	if err != nil {
		return err
	}

	sinks, telemetry, closeSinks, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	eopts := engineOptions(cfg)
	if telemetry != nil {
		eopts.Telemetry = telemetry
	}

	dec := decoder.New(km, sinks, clock.Real{}, cfg.FlushDuration())
	eng, err := engine.New(array, dec, clock.Real{}, eopts)
	if err != nil {
		return err
	}
	return eng.Run(ctx)
}

// buildSinks assembles the configured outputs. The log sink is always on; the
// serial keyboard and MQTT sinks are enabled by their config keys.
func buildSinks(cfg *config.Config) (output.Multi, *output.MQTTTelemetry, func(), error) {
	sinks := output.Multi{output.LogSink{}}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.KeyboardSerialPort != "" {
		kb, err := output.OpenSerialKeyboard(cfg.KeyboardSerialPort, uint(cfg.KeyboardBaudRate))
		if err != nil {
			return nil, nil, nil, err
		}
		sinks = append(sinks, kb)
		closers = append(closers, func() {
			if err := kb.Close(); err != nil {
				logger.Log.Warnf("keyboard: close: %v", err)
			}
		})
	} else {
		logger.Log.Info("keyboard: KEYBOARD_SERIAL_PORT not set, serial keyboard disabled")
	}

	var telemetry *output.MQTTTelemetry
	if cfg.MQTTBroker != "" {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDecoder)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		closers = append(closers, func() { client.Disconnect(250) })
		sinks = append(sinks, output.NewMQTTSink(client, cfg.TopicText))
		if cfg.TelemetryEnabled {
			telemetry = output.NewMQTTTelemetry(client, cfg.TopicSamples, cfg.TopicTaps)
			logger.Log.Infof("telemetry: publishing to %s and %s", cfg.TopicSamples, cfg.TopicTaps)
		}
	}

	return sinks, telemetry, closeAll, nil
}
