// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3"

	"github.com/relabs-tech/tapglove/internal/calibration"
	"github.com/relabs-tech/tapglove/internal/clock"
)

// MPU-6050 registers.
const (
	regSmplrtDiv   = 0x19
	regConfig      = 0x1A
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regAccelXoutH  = 0x3B
	regPwrMgmt1    = 0x6B
)

const (
	// DefaultGyroAddr is the MPU-6050 address with AD0 low.
	DefaultGyroAddr = 0x68

	gyroFS500     = 0x08 // ±500 °/s
	gyroScale     = 65.5 // LSB per °/s at ±500 °/s
	accelScale    = 16384.0
	clockPLLXGyro = 0x01

	// weight of the integrated gyro angle in the complementary filter
	gyroWeight = 0.98

	radToDeg = 180 / math.Pi
)

// Motion is one decoded accelerometer + gyro sample.
type Motion struct {
	Ax, Ay, Az float64 // g
	Gx, Gy, Gz float64 // °/s, raw (no offset applied)
}

// MPU6050 reads tilt angles from one MPU-6050. Angles are a complementary
// blend of the integrated, bias-corrected gyro rate and the accelerometer
// tilt.
type MPU6050 struct {
	dev   conn.Conn
	clock clock.Clock

	offsets calibration.Offsets

	angleX, angleY float64
	last           time.Time
	started        bool
}

// NewMPU6050 wraps a device connection; call Init before Update.
func NewMPU6050(dev conn.Conn, clk clock.Clock) *MPU6050 {
	return &MPU6050{dev: dev, clock: clk}
}

// Init configures ±2 g / ±500 °/s ranges, no DLPF, full sample rate, and
// wakes the device on the X gyro PLL.
func (m *MPU6050) Init() error {
	writes := []struct {
		reg, val byte
		name     string
	}{
		{regSmplrtDiv, 0x00, "SMPLRT_DIV"},
		{regConfig, 0x00, "CONFIG"},
		{regGyroConfig, gyroFS500, "GYRO_CONFIG"},
		{regAccelConfig, 0x00, "ACCEL_CONFIG"},
		{regPwrMgmt1, clockPLLXGyro, "PWR_MGMT_1"},
	}
	for _, w := range writes {
		if err := m.dev.Tx([]byte{w.reg, w.val}, nil); err != nil {
			return fmt.Errorf("mpu6050: write %s: %w", w.name, err)
		}
	}
	m.started = false
	return nil
}

// ReadMotion burst-reads accelerometer, temperature and gyro registers.
func (m *MPU6050) ReadMotion() (Motion, error) {
	var buf [14]byte
	if err := m.dev.Tx([]byte{regAccelXoutH}, buf[:]); err != nil {
		return Motion{}, fmt.Errorf("mpu6050: read motion: %w", err)
	}
	word := func(i int) float64 {
		return float64(int16(binary.BigEndian.Uint16(buf[i:])))
	}
	// bytes 6-7 hold the die temperature
	return Motion{
		Ax: word(0) / accelScale,
		Ay: word(2) / accelScale,
		Az: word(4) / accelScale,
		Gx: word(8) / gyroScale,
		Gy: word(10) / gyroScale,
		Gz: word(12) / gyroScale,
	}, nil
}

// Update reads one sample and advances the X and Y angles.
func (m *MPU6050) Update() error {
	mo, err := m.ReadMotion()
	if err != nil {
		return err
	}
	now := m.clock.Now()

	accAngleX := math.Atan2(mo.Ay, mo.Az+math.Abs(mo.Ax)) * radToDeg
	accAngleY := -math.Atan2(mo.Ax, mo.Az+math.Abs(mo.Ay)) * radToDeg

	if !m.started {
		m.angleX, m.angleY = accAngleX, accAngleY
		m.last = now
		m.started = true
		return nil
	}

	dt := now.Sub(m.last).Seconds()
	m.last = now

	gx := mo.Gx - float64(m.offsets.X)
	gy := mo.Gy - float64(m.offsets.Y)

	m.angleX = gyroWeight*(m.angleX+gx*dt) + (1-gyroWeight)*accAngleX
	m.angleY = gyroWeight*(m.angleY+gy*dt) + (1-gyroWeight)*accAngleY
	return nil
}

// AngleX returns the roll angle in degrees.
func (m *MPU6050) AngleX() float64 { return m.angleX }

// AngleY returns the pitch angle in degrees.
func (m *MPU6050) AngleY() float64 { return m.angleY }

// SetOffsets sets the gyro bias subtracted from every reading.
func (m *MPU6050) SetOffsets(o calibration.Offsets) { m.offsets = o }

// Offsets returns the current gyro bias.
func (m *MPU6050) Offsets() calibration.Offsets { return m.offsets }

// CalcOffsets averages n gyro readings taken while the sensor is at rest,
// stores the result as the new bias and returns it.
func (m *MPU6050) CalcOffsets(n int) (calibration.Offsets, error) {
	if n <= 0 {
		return calibration.Offsets{}, fmt.Errorf("mpu6050: sample count must be positive, got %d", n)
	}
	var sx, sy, sz float64
	for i := 0; i < n; i++ {
		mo, err := m.ReadMotion()
		if err != nil {
			return calibration.Offsets{}, err
		}
		sx += mo.Gx
		sy += mo.Gy
		sz += mo.Gz
	}
	o := calibration.Offsets{
		X: float32(sx / float64(n)),
		Y: float32(sy / float64(n)),
		Z: float32(sz / float64(n)),
	}
	m.offsets = o
	return o, nil
}
