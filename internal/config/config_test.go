// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tapglove_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.ChannelCount)
	assert.Equal(t, uint16(0x70), cfg.MuxI2CAddr)
	assert.Equal(t, 800*time.Millisecond, cfg.FlushDuration())
	assert.Equal(t, 10*time.Millisecond, cfg.SampleDuration())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
# two finger prototype
CHANNEL_COUNT=2
CHANNEL_AXES = Y, x
MEASUREMENT_VARIANCE=0.01, 0.02
MUX_I2C_ADDR=0x71
SAMPLE_INTERVAL=5
FLUSH_WINDOW=650
PRESS_THRESHOLD=12.5
MQTT_BROKER=tcp://localhost:1883
TELEMETRY_ENABLED=true
KEYBOARD_SERIAL_PORT=/dev/ttyUSB0
LOG_LEVEL=DEBUG
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.ChannelCount)
	assert.Equal(t, []string{"y", "x"}, cfg.ChannelAxes)
	assert.Equal(t, []float64{0.01, 0.02}, cfg.MeasurementVariance)
	assert.Equal(t, uint16(0x71), cfg.MuxI2CAddr)
	assert.Equal(t, uint16(0x68), cfg.GyroI2CAddr)
	assert.Equal(t, 5*time.Millisecond, cfg.SampleDuration())
	assert.Equal(t, 650*time.Millisecond, cfg.FlushDuration())
	assert.Equal(t, 12.5, cfg.PressThreshold)
	assert.Equal(t, 1.5, cfg.DownUpDelta)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.True(t, cfg.TelemetryEnabled)
	assert.Equal(t, "/dev/ttyUSB0", cfg.KeyboardSerialPort)
	assert.Equal(t, 115200, cfg.KeyboardBaudRate)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing equals", "CHANNEL_COUNT 5\n", "invalid config line 1"},
		{"unknown key", "FOO=bar\n", "unknown config key"},
		{"bad channel count", "CHANNEL_COUNT=9\n", "CHANNEL_COUNT must be 1-8"},
		{"bad axis", "CHANNEL_AXES=x,z,x,x,x\n", "must be x or y"},
		{"axes mismatch", "CHANNEL_COUNT=3\nMEASUREMENT_VARIANCE=1,1,1\n", "CHANNEL_AXES has 5 entries"},
		{"variance mismatch", "MEASUREMENT_VARIANCE=0.1,0.2\n", "MEASUREMENT_VARIANCE has 2 entries"},
		{"variance not positive", "MEASUREMENT_VARIANCE=0.1,0,0.1,0.1,0.1\n", "entry 1 must be positive"},
		{"bad float", "PRESS_THRESHOLD=deep\n", "invalid PRESS_THRESHOLD"},
		{"zero flush window", "FLUSH_WINDOW=0\n", "FLUSH_WINDOW is required"},
		{"address too wide", "MUX_I2C_ADDR=0x170\n", "invalid MUX_I2C_ADDR"},
		{"bad bool", "TELEMETRY_ENABLED=sometimes\n", "invalid TELEMETRY_ENABLED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInitGlobal(t *testing.T) {
	path := writeConfig(t, "FLUSH_WINDOW=900\n")
	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, 900, Get().FlushWindow)

	// later calls keep the first configuration
	require.NoError(t, InitGlobal(writeConfig(t, "FLUSH_WINDOW=100\n")))
	assert.Equal(t, 900, Get().FlushWindow)
}
