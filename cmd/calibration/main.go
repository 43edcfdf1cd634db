// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// calibration measures the gyro bias of every finger sensor and writes the
// offsets file used by tapglove.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/tapglove/internal/app"
	"github.com/relabs-tech/tapglove/internal/logger"
)

var version = "dev"

func main() {
	var (
		configPath string
		settle     time.Duration
	)

	root := &cobra.Command{
		Use:          "calibration",
		Short:        "Measure and save gyro offsets",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Setup(configPath); err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.RunCalibration(ctx, settle)
		},
	}
	root.Flags().StringVar(&configPath, "config", "./tapglove_config.txt", "path to configuration file")
	root.Flags().DurationVar(&settle, "settle", 3*time.Second, "delay before sampling starts")

	if err := fang.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}
