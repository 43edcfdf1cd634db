// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/relabs-tech/tapglove/internal/calibration"
	"github.com/relabs-tech/tapglove/internal/config"
	"github.com/relabs-tech/tapglove/internal/logger"
)

// RunCalibration measures the gyro bias of every finger sensor and writes the
// offsets file. settle is the delay given to the wearer before sampling.
func RunCalibration(ctx context.Context, settle time.Duration) error {
	cfg := config.Get()

	bus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	array, err := openArray(bus, cfg)
	if err != nil {
		return err
	}
	defer array.Close()

	logger.Log.Infof("calibration: lay the hand flat and keep still, sampling starts in %v", settle)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
	}

	start := time.Now()
	offsets, err := array.CalcOffsets(cfg.CalibrationSamples)
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}
	if err := calibration.Save(cfg.CalibrationPath, offsets); err != nil {
		return err
	}
	logger.Log.Infof("calibration: %d channels saved to %s in %v", len(offsets), cfg.CalibrationPath, time.Since(start).Round(time.Millisecond))
	return nil
}
