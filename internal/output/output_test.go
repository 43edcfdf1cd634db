// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package output

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/relabs-tech/tapglove/internal/decoder"
	"github.com/relabs-tech/tapglove/internal/engine"
	"github.com/relabs-tech/tapglove/internal/gesture"
	"github.com/relabs-tech/tapglove/internal/logger"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core).Sugar()
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

func TestLogSink(t *testing.T) {
	logs := observe(t)
	LogSink{}.Emit(decoder.Symbol{Char: 'h', Channel: 2, Taps: 2, Time: at})

	entries := logs.FilterMessage("output: character").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "h", fields["char"])
	assert.EqualValues(t, 2, fields["channel"])
	assert.EqualValues(t, 2, fields["taps"])
}

func TestMultiFansOutInOrder(t *testing.T) {
	var got []string
	mk := func(name string) decoder.Sink {
		return decoder.SinkFunc(func(s decoder.Symbol) { got = append(got, name+string(s.Char)) })
	}
	m := Multi{mk("a:"), nil, mk("b:")}
	m.Emit(decoder.Symbol{Char: 'x'})
	m.Emit(decoder.Symbol{Char: 'y'})
	assert.Equal(t, []string{"a:x", "b:x", "a:y", "b:y"}, got)
}

type fakePort struct {
	written []byte
	err     error
	closed  bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestSerialKeyboardEncoding(t *testing.T) {
	port := &fakePort{}
	k := NewSerialKeyboard(port)
	for _, r := range []rune{'h', ' ', '\b', 'ä', '!'} {
		k.Emit(decoder.Symbol{Char: r})
	}
	assert.Equal(t, []byte{'h', ' ', 0x08, 0xC3, 0xA4, '!'}, port.written)

	require.NoError(t, k.Close())
	assert.True(t, port.closed)
}

func TestSerialKeyboardErrorsAreLogged(t *testing.T) {
	logs := observe(t)
	port := &fakePort{err: errors.New("device gone")}
	k := NewSerialKeyboard(port)

	k.Emit(decoder.Symbol{Char: 'a'})
	k.Emit(decoder.Symbol{Char: 0xD800})

	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu  sync.Mutex
	msg []published
	err error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msg = append(p.msg, published{topic, qos, retained, payload.([]byte)})
	return newFakeToken(p.err)
}

func TestMQTTSinkPublishesMessage(t *testing.T) {
	pub := &fakePublisher{}
	NewMQTTSink(pub, "tapglove/text").Emit(decoder.Symbol{Char: 'e', Channel: 3, Taps: 1, Time: at})

	require.Len(t, pub.msg, 1)
	assert.Equal(t, "tapglove/text", pub.msg[0].topic)
	assert.Equal(t, byte(1), pub.msg[0].qos)
	assert.False(t, pub.msg[0].retained)

	var m Message
	require.NoError(t, json.Unmarshal(pub.msg[0].payload, &m))
	assert.Equal(t, Message{Char: "e", Channel: 3, Taps: 1, Time: at}, m)
}

func TestMQTTSinkLogsPublishFailure(t *testing.T) {
	logs := observe(t)
	pub := &fakePublisher{err: errors.New("not connected")}
	NewMQTTSink(pub, "tapglove/text").Emit(decoder.Symbol{Char: 'e'})

	assert.Eventually(t, func() bool {
		return logs.FilterLevelExact(zapcore.WarnLevel).Len() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMQTTTelemetryTopics(t *testing.T) {
	pub := &fakePublisher{}
	tel := NewMQTTTelemetry(pub, "tapglove/samples", "tapglove/taps")

	tel.Sample(engine.Sample{Channel: 1, Raw: 30.5, Filtered: 30.2, State: "goes_down", Time: at})
	tel.Tap(gesture.Tap{Channel: 1, UpAngle: 38, PressAngle: 10, Time: at}, 3)

	require.Len(t, pub.msg, 2)
	assert.Equal(t, "tapglove/samples", pub.msg[0].topic)
	assert.Equal(t, byte(0), pub.msg[0].qos)
	assert.JSONEq(t,
		`{"channel":1,"raw":30.5,"filtered":30.2,"state":"goes_down","time":"2026-03-01T12:00:00Z"}`,
		string(pub.msg[0].payload))

	assert.Equal(t, "tapglove/taps", pub.msg[1].topic)
	assert.JSONEq(t,
		`{"channel":1,"up_angle":38,"press_angle":10,"time":"2026-03-01T12:00:00Z","depth":28,"pending":3}`,
		string(pub.msg[1].payload))
}
