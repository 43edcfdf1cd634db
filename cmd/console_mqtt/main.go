// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// console_mqtt prints the characters decoded by tapglove as they arrive over
// MQTT.
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
	var configPath string

	root := &cobra.Command{
		Use:          "console_mqtt",
		Short:        "Print decoded characters from MQTT",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Setup(configPath); err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.RunConsoleMQTT(ctx, cmd.OutOrStdout())
		},
	}
	root.Flags().StringVar(&configPath, "config", "./tapglove_config.txt", "path to configuration file")

	if err := fang.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}
