// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package decoder

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/tapglove/internal/clock"
)

type recorder struct {
	symbols []Symbol
}

func (r *recorder) Emit(s Symbol) { r.symbols = append(r.symbols, s) }

func (r *recorder) text() string {
	var out []rune
	for _, s := range r.symbols {
		out = append(out, s.Char)
	}
	return string(out)
}

func newTestDecoder(t *testing.T, tables [][]rune) (*Decoder, *recorder, *clock.Fake) {
	t.Helper()
	km, err := NewKeymap(tables)
	require.NoError(t, err)
	rec := &recorder{}
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	return New(km, rec, clk, DefaultFlushWindow), rec, clk
}

func TestDecoder_RepeatedTapsThenTimeout(t *testing.T) {
	d, rec, clk := newTestDecoder(t, DefaultTables)

	for i := 0; i < 3; i++ {
		d.OnTap(0)
		clk.Advance(200 * time.Millisecond)
		assert.False(t, d.Poll())
	}
	assert.Equal(t, 3, d.Pending(0))
	assert.Empty(t, rec.symbols)

	clk.Advance(601 * time.Millisecond)
	assert.True(t, d.Poll())

	require.Len(t, rec.symbols, 1)
	assert.Equal(t, ',', rec.symbols[0].Char)
	assert.Equal(t, 0, rec.symbols[0].Channel)
	assert.Equal(t, 3, rec.symbols[0].Taps)
	assert.Equal(t, 0, d.Pending(0))
}

func TestDecoder_TapOnOtherChannelFlushesFirst(t *testing.T) {
	d, rec, _ := newTestDecoder(t, DefaultTables)

	d.OnTap(0)
	d.OnTap(1)

	require.Len(t, rec.symbols, 1)
	assert.Equal(t, 'w', rec.symbols[0].Char)
	assert.Equal(t, 0, d.Pending(0))
	assert.Equal(t, 1, d.Pending(1))
}

func TestDecoder_TwoChannelScenario(t *testing.T) {
	d, rec, clk := newTestDecoder(t, [][]rune{
		{'w', 'l', ',', 'i', 'p', 'v'},
		{'o', 'r', 'b', 'j', 'q', 'x'},
	})

	d.OnTap(0)
	d.OnTap(0)
	d.OnTap(1)
	assert.Equal(t, "l", rec.text())
	assert.Equal(t, 1, d.Pending(1))

	clk.Advance(DefaultFlushWindow + time.Millisecond)
	require.True(t, d.Poll())

	want := []Symbol{
		{Char: 'l', Channel: 0, Taps: 2, Time: clk.Now().Add(-DefaultFlushWindow - time.Millisecond)},
		{Char: 'o', Channel: 1, Taps: 1, Time: clk.Now()},
	}
	if diff := cmp.Diff(want, rec.symbols); diff != "" {
		t.Errorf("emitted symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestDecoder_TimeoutFlushesAllPendingInChannelOrder(t *testing.T) {
	d, rec, _ := newTestDecoder(t, DefaultTables)

	// Load counters directly so several channels are pending at once.
	d.pending[4] = 2
	d.pending[1] = 1
	d.pending[2] = 3

	d.OnTimeout()
	assert.Equal(t, "oca", rec.text())
	for ch := 0; ch < d.Channels(); ch++ {
		assert.Equal(t, 0, d.Pending(ch))
	}
}

func TestDecoder_CascadeFlushSkipsOnlyTappedChannel(t *testing.T) {
	d, rec, _ := newTestDecoder(t, DefaultTables)

	d.pending[0] = 1
	d.pending[1] = 2
	d.pending[3] = 1
	d.pending[4] = 3

	d.OnTap(1)

	// channel 1 keeps its own count and gains the new tap
	assert.Equal(t, "weg", rec.text())
	assert.Equal(t, 3, d.Pending(1))
	assert.Equal(t, 0, d.Pending(0))
	assert.Equal(t, 0, d.Pending(3))
	assert.Equal(t, 0, d.Pending(4))
}

func TestDecoder_SaturatesAtSeven(t *testing.T) {
	d, rec, clk := newTestDecoder(t, DefaultTables)

	for i := 0; i < 20; i++ {
		d.OnTap(2)
		assert.LessOrEqual(t, d.Pending(2), MaxPending)
	}
	assert.Equal(t, MaxPending, d.Pending(2))

	clk.Advance(time.Second)
	assert.True(t, d.Poll())
	assert.Empty(t, rec.symbols)
	assert.Equal(t, 0, d.Pending(2))
}

func TestDecoder_SixthTapIsLastCharacter(t *testing.T) {
	d, rec, _ := newTestDecoder(t, DefaultTables)
	for i := 0; i < 6; i++ {
		d.OnTap(4)
	}
	d.OnTimeout()
	assert.Equal(t, "!", rec.text())
}

func TestDecoder_ShortTableHasNoCharacterPastEnd(t *testing.T) {
	d, rec, _ := newTestDecoder(t, [][]rune{{'a', 'b'}})
	for i := 0; i < 3; i++ {
		d.OnTap(0)
	}
	d.OnTimeout()
	assert.Empty(t, rec.symbols)
	assert.Equal(t, 0, d.Pending(0))
}

func TestDecoder_TimeoutWithNothingPendingRestartsTimer(t *testing.T) {
	d, rec, clk := newTestDecoder(t, DefaultTables)

	clk.Advance(DefaultFlushWindow)
	assert.False(t, d.Poll(), "window must be strictly exceeded")

	clk.Advance(time.Millisecond)
	assert.True(t, d.Poll())
	assert.Equal(t, clk.Now(), d.LastFlush())
	assert.Empty(t, rec.symbols)

	assert.False(t, d.Poll())
}

func TestDecoder_TapRestartsTimer(t *testing.T) {
	d, rec, clk := newTestDecoder(t, DefaultTables)

	clk.Advance(700 * time.Millisecond)
	d.OnTap(3)
	clk.Advance(700 * time.Millisecond)
	assert.False(t, d.Poll())
	assert.Equal(t, 1, d.Pending(3))

	clk.Advance(101 * time.Millisecond)
	assert.True(t, d.Poll())
	assert.Equal(t, "e", rec.text())
}

func TestDecoder_FlushZeroEmitsNothing(t *testing.T) {
	d, rec, _ := newTestDecoder(t, DefaultTables)
	d.Flush(0)
	d.Flush(-1)
	d.Flush(99)
	assert.Empty(t, rec.symbols)
}

func TestDecoder_UnknownChannelTapIgnored(t *testing.T) {
	d, rec, clk := newTestDecoder(t, DefaultTables)
	before := d.LastFlush()
	d.OnTap(0)
	clk.Advance(time.Millisecond)
	d.OnTap(7)
	d.OnTap(-1)
	assert.Equal(t, 1, d.Pending(0))
	assert.Empty(t, rec.symbols)
	assert.Equal(t, before, d.LastFlush())
	assert.Equal(t, 0, d.Pending(7))
}

func TestDecoder_NilSink(t *testing.T) {
	km := DefaultKeymap()
	d := New(km, nil, clock.NewFake(time.Unix(0, 0)), DefaultFlushWindow)
	d.OnTap(0)
	assert.NotPanics(t, d.OnTimeout)
}

func TestSinkFunc(t *testing.T) {
	var got []rune
	km := DefaultKeymap()
	d := New(km, SinkFunc(func(s Symbol) { got = append(got, s.Char) }), clock.NewFake(time.Unix(0, 0)), DefaultFlushWindow)
	d.OnTap(3)
	d.OnTap(3)
	d.OnTimeout()
	assert.Equal(t, []rune{'\b'}, got)
}
