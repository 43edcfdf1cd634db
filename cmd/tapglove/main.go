// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// tapglove reads the finger sensors of the glove and types the decoded
// characters.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/tapglove/internal/app"
	"github.com/relabs-tech/tapglove/internal/logger"
)

var version = "dev"

func main() {
	var (
		configPath string
		opts       app.DecoderOptions
	)

	root := &cobra.Command{
		Use:   "tapglove",
		Short: "Decode finger taps into text",
		Long: `tapglove polls one MPU-6050 per finger through a TCA9548A multiplexer,
turns bend-and-release gestures into taps and decodes multi-tap sequences
into characters. Characters are logged, typed through the serial keyboard
bridge and published over MQTT, depending on the configuration.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Setup(configPath); err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.RunDecoder(ctx, opts)
		},
	}
	root.Flags().StringVar(&configPath, "config", "./tapglove_config.txt", "path to configuration file")
	root.Flags().BoolVar(&opts.Calibrate, "calibrate", false, "measure and save gyro offsets before decoding")

	if err := fang.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}
