// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiversHaveIndependentCursors(t *testing.T) {
	s := New[int]("test", 8)
	a := s.Subscribe()
	b := s.Subscribe()

	s.Publish(1)
	s.Publish(2)

	assert.Equal(t, 1, a.Recv())
	assert.Equal(t, 2, a.Recv())
	assert.Equal(t, 1, b.Recv())
	assert.Equal(t, 2, b.Recv())
}

func TestCallbacksRunBeforeQueueing(t *testing.T) {
	s := New[int]("test", 4)
	out := New[int]("doubled", 4)
	rx := out.Subscribe()

	var order []string
	s.OnPublish(func(v int) {
		order = append(order, "cb")
		out.Publish(v * 2)
	})
	raw := s.Subscribe()

	s.Publish(21)
	order = append(order, "recv")

	assert.Equal(t, 42, rx.Recv())
	assert.Equal(t, 21, raw.Recv())
	assert.Equal(t, []string{"cb", "recv"}, order)
}

func TestFullQueueDropsOldest(t *testing.T) {
	s := New[int]("test", 3)
	rx := s.Subscribe()

	for i := 1; i <= 5; i++ {
		s.Publish(i)
	}

	assert.Equal(t, uint64(2), rx.Dropped())
	assert.Equal(t, 3, rx.Recv())
	assert.Equal(t, 4, rx.Recv())
	assert.Equal(t, 5, rx.Recv())
}

func TestLatestDrainsToNewest(t *testing.T) {
	s := New[int]("test", 8)
	rx := s.Subscribe()

	s.Publish(1)
	s.Publish(2)
	s.Publish(3)

	assert.Equal(t, 3, rx.Latest())

	_, ok := rx.TryLatest()
	assert.False(t, ok)
}

func TestLatestBlocksUntilPublished(t *testing.T) {
	s := New[int]("test", 8)
	rx := s.Subscribe()

	done := make(chan int)
	go func() { done <- rx.Latest() }()

	s.Publish(7)
	require.Equal(t, 7, <-done)
}

func TestDefaultDepth(t *testing.T) {
	s := New[int]("test", 0)
	assert.Equal(t, DefaultDepth, cap(s.Subscribe().ch))
	assert.Equal(t, "test", s.Name())
}
