// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MaxChannels is the number of ports on the TCA9548A multiplexer.
const MaxChannels = 8

// Config holds all application configuration values.
type Config struct {
	// Channels
	ChannelCount int
	// ChannelAxes selects the tilt axis ("x" or "y") reported for each channel.
	ChannelAxes []string

	// I2C Hardware
	I2CBus      string // "" selects the first bus
	MuxI2CAddr  uint16
	GyroI2CAddr uint16

	// Timing
	SampleInterval int // milliseconds
	FlushWindow    int // milliseconds

	// Filter
	ProcessVariance     float64
	MeasurementVariance []float64 // one per channel

	// Gesture thresholds (degrees)
	DownUpDelta    float64
	SettleDelta    float64
	PressThreshold float64

	// Calibration
	CalibrationPath    string
	CalibrationSamples int

	// Keymap
	KeymapPath string // "" uses the built-in layout

	// Keyboard bridge
	KeyboardSerialPort string // "" disables the serial keyboard
	KeyboardBaudRate   int

	// MQTT
	MQTTBroker          string // "" disables MQTT publishing
	MQTTClientIDDecoder string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicText    string
	TopicTaps    string
	TopicSamples string

	TelemetryEnabled bool

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds

	// Logging
	LogLevel string
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration of the reference five-finger glove.
func Default() *Config {
	return &Config{
		ChannelCount: 5,
		ChannelAxes:  []string{"y", "x", "x", "x", "x"},

		MuxI2CAddr:  0x70,
		GyroI2CAddr: 0x68,

		SampleInterval: 10,
		FlushWindow:    800,

		ProcessVariance:     0.3,
		MeasurementVariance: []float64{0.00827, 0.00547, 0.00766, 0.00907, 0.00607},

		DownUpDelta:    1.5,
		SettleDelta:    0.5,
		PressThreshold: 16.2,

		CalibrationPath:    "tapglove_offsets.bin",
		CalibrationSamples: 3000,

		KeyboardBaudRate: 115200,

		MQTTClientIDDecoder: "tapglove-decoder",
		MQTTClientIDConsole: "tapglove-console",
		MQTTClientIDWeb:     "tapglove-web",
		MQTTClientIDDisplay: "tapglove-display",

		TopicText:    "tapglove/text",
		TopicTaps:    "tapglove/taps",
		TopicSamples: "tapglove/samples",

		WebServerPort:         8080,
		DisplayUpdateInterval: 200,

		LogLevel: "info",
	}
}

// Load reads the configuration file on top of Default and returns the result.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Channels
	case "CHANNEL_COUNT":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CHANNEL_COUNT %q: %w", value, err)
		}
		if n < 1 || n > MaxChannels {
			return fmt.Errorf("CHANNEL_COUNT must be 1-%d, got %d", MaxChannels, n)
		}
		c.ChannelCount = n
	case "CHANNEL_AXES":
		axes := splitList(value)
		for i, a := range axes {
			a = strings.ToLower(a)
			if a != "x" && a != "y" {
				return fmt.Errorf("CHANNEL_AXES entry %d must be x or y, got %q", i, a)
			}
			axes[i] = a
		}
		c.ChannelAxes = axes

	// I2C Hardware
	case "I2C_BUS":
		c.I2CBus = value
	case "MUX_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 7)
		if err != nil {
			return fmt.Errorf("invalid MUX_I2C_ADDR %q: %w", value, err)
		}
		c.MuxI2CAddr = uint16(addr)
	case "GYRO_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 7)
		if err != nil {
			return fmt.Errorf("invalid GYRO_I2C_ADDR %q: %w", value, err)
		}
		c.GyroI2CAddr = uint16(addr)

	// Timing
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval
	case "FLUSH_WINDOW":
		window, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid FLUSH_WINDOW %q: %w", value, err)
		}
		c.FlushWindow = window

	// Filter
	case "PROCESS_VARIANCE":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid PROCESS_VARIANCE %q: %w", value, err)
		}
		c.ProcessVariance = v
	case "MEASUREMENT_VARIANCE":
		items := splitList(value)
		vals := make([]float64, len(items))
		for i, s := range items {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid MEASUREMENT_VARIANCE entry %d %q: %w", i, s, err)
			}
			vals[i] = v
		}
		c.MeasurementVariance = vals

	// Gesture thresholds
	case "DOWN_UP_DELTA":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid DOWN_UP_DELTA %q: %w", value, err)
		}
		c.DownUpDelta = v
	case "SETTLE_DELTA":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SETTLE_DELTA %q: %w", value, err)
		}
		c.SettleDelta = v
	case "PRESS_THRESHOLD":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid PRESS_THRESHOLD %q: %w", value, err)
		}
		c.PressThreshold = v

	// Calibration
	case "CALIBRATION_PATH":
		c.CalibrationPath = value
	case "CALIBRATION_SAMPLES":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_SAMPLES %q: %w", value, err)
		}
		c.CalibrationSamples = n

	// Keymap
	case "KEYMAP_PATH":
		c.KeymapPath = value

	// Keyboard bridge
	case "KEYBOARD_SERIAL_PORT":
		c.KeyboardSerialPort = value
	case "KEYBOARD_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid KEYBOARD_BAUD_RATE %q: %w", value, err)
		}
		c.KeyboardBaudRate = rate

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_DECODER":
		c.MQTTClientIDDecoder = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_TEXT":
		c.TopicText = value
	case "TOPIC_TAPS":
		c.TopicTaps = value
	case "TOPIC_SAMPLES":
		c.TopicSamples = value
	case "TELEMETRY_ENABLED":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid TELEMETRY_ENABLED %q: %w", value, err)
		}
		c.TelemetryEnabled = b

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.ChannelCount < 1 || c.ChannelCount > MaxChannels {
		return fmt.Errorf("CHANNEL_COUNT must be 1-%d, got %d", MaxChannels, c.ChannelCount)
	}
	if len(c.ChannelAxes) != c.ChannelCount {
		return fmt.Errorf("CHANNEL_AXES has %d entries, CHANNEL_COUNT is %d", len(c.ChannelAxes), c.ChannelCount)
	}
	if len(c.MeasurementVariance) != c.ChannelCount {
		return fmt.Errorf("MEASUREMENT_VARIANCE has %d entries, CHANNEL_COUNT is %d", len(c.MeasurementVariance), c.ChannelCount)
	}
	for i, r := range c.MeasurementVariance {
		if r <= 0 {
			return fmt.Errorf("MEASUREMENT_VARIANCE entry %d must be positive, got %v", i, r)
		}
	}
	if c.ProcessVariance <= 0 {
		return fmt.Errorf("PROCESS_VARIANCE must be positive, got %v", c.ProcessVariance)
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL is required")
	}
	if c.FlushWindow <= 0 {
		return fmt.Errorf("FLUSH_WINDOW is required")
	}
	if c.CalibrationSamples <= 0 {
		return fmt.Errorf("CALIBRATION_SAMPLES must be positive, got %d", c.CalibrationSamples)
	}
	if c.KeyboardSerialPort != "" && c.KeyboardBaudRate == 0 {
		return fmt.Errorf("KEYBOARD_BAUD_RATE is required with KEYBOARD_SERIAL_PORT")
	}
	return nil
}

// SampleDuration returns SampleInterval as a time.Duration.
func (c *Config) SampleDuration() time.Duration {
	return time.Duration(c.SampleInterval) * time.Millisecond
}

// FlushDuration returns FlushWindow as a time.Duration.
func (c *Config) FlushDuration() time.Duration {
	return time.Duration(c.FlushWindow) * time.Millisecond
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// InitGlobal loads the global configuration from file. Only the first call
// has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
