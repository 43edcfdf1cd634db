// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transcript

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestApplyAndBackspace(t *testing.T) {
	tr := New(0)
	tr.ApplyString("hellp\bo")
	assert.Equal(t, "hello", tr.String())
	assert.Equal(t, uint64(7), tr.Count())

	tr.Reset()
	assert.Zero(t, tr.Count())
	tr.Apply('\b')
	assert.Equal(t, "", tr.String())
	assert.Equal(t, uint64(1), tr.Count())
}

func TestBoundedKeepsTail(t *testing.T) {
	tr := New(4)
	tr.ApplyString("abcdef")
	assert.Equal(t, "cdef", tr.String())
	tr.ApplyString("\b\bäö")
	assert.Equal(t, "cdäö", tr.String())
}

func TestLines(t *testing.T) {
	tr := New(0)
	tr.ApplyString("the quick brown\nfox")

	tests := []struct {
		width, n int
		want     []string
	}{
		{width: 5, n: 10, want: []string{"the q", "uick ", "brown", "fox"}},
		{width: 5, n: 2, want: []string{"brown", "fox"}},
		{width: 20, n: 3, want: []string{"the quick brown", "fox"}},
		{width: 0, n: 3, want: nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tr.Lines(tt.width, tt.n)); diff != "" {
			t.Errorf("Lines(%d, %d) mismatch (-want +got):\n%s", tt.width, tt.n, diff)
		}
	}
}

func TestConcurrentApply(t *testing.T) {
	tr := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Apply('x')
				_ = tr.String()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, tr.String(), 800)
}
