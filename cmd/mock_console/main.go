// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// mock_console types a text through scripted finger motion and the real
// decoding chain, without hardware.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
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
		noise      float64
	)

	root := &cobra.Command{
		Use:          "mock_console [text]",
		Short:        "Decode scripted taps without hardware",
		Args:         cobra.ArbitraryArgs,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Setup(configPath); err != nil {
				return err
			}
			defer logger.Sync()

			text := "hello world!"
			if len(args) > 0 {
				text = strings.Join(args, " ")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.RunMockConsole(ctx, text, noise, cmd.OutOrStdout())
		},
	}
	root.Flags().StringVar(&configPath, "config", "./tapglove_config.txt", "path to configuration file")
	root.Flags().Float64Var(&noise, "noise", 0, "uniform noise in degrees added to every reading")

	if err := fang.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}
