// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package stream carries samples from one producer to any number of
// independent consumers through bounded queues.
//
// A Stream is created by the composition root and handed to the producer and
// to each consumer explicitly. Publish never blocks the producer: a consumer
// that falls behind loses its oldest queued values.
package stream

import (
	"sync"
	"sync/atomic"
)

// DefaultDepth is the per-receiver queue depth used when none is configured.
const DefaultDepth = 64

// Stream is a single-producer, multi-consumer flow of values of type T.
type Stream[T any] struct {
	name  string
	depth int

	mu        sync.RWMutex
	receivers []*Receiver[T]
	callbacks []func(T)
}

// New creates a stream whose receivers buffer up to depth values each.
func New[T any](name string, depth int) *Stream[T] {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Stream[T]{name: name, depth: depth}
}

// Name returns the stream name given at construction.
func (s *Stream[T]) Name() string { return s.name }

// Subscribe opens a new receive handle. Only values published after this
// call are delivered to it.
func (s *Stream[T]) Subscribe() *Receiver[T] {
	r := &Receiver[T]{ch: make(chan T, s.depth)}
	s.mu.Lock()
	s.receivers = append(s.receivers, r)
	s.mu.Unlock()
	return r
}

// OnPublish registers fn to run synchronously inside Publish, in the
// producer's goroutine, before the value is queued to receivers. Callbacks
// must not block.
func (s *Stream[T]) OnPublish(fn func(T)) {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, fn)
	s.mu.Unlock()
}

// Publish delivers v to every callback and every receiver.
func (s *Stream[T]) Publish(v T) {
	s.mu.RLock()
	callbacks := s.callbacks
	receivers := s.receivers
	s.mu.RUnlock()

	for _, fn := range callbacks {
		fn(v)
	}
	for _, r := range receivers {
		r.offer(v)
	}
}

// Receiver is one consumer's cursor into a Stream.
type Receiver[T any] struct {
	ch      chan T
	dropped atomic.Uint64
}

// offer queues v, evicting the oldest queued value when the queue is full.
// Only the producer goroutine calls offer, so the retry loop terminates.
func (r *Receiver[T]) offer(v T) {
	for {
		select {
		case r.ch <- v:
			return
		default:
		}
		select {
		case <-r.ch:
			r.dropped.Add(1)
		default:
		}
	}
}

// Recv blocks until the next value is available.
func (r *Receiver[T]) Recv() T {
	return <-r.ch
}

// Latest blocks until at least one value is available, then discards
// everything but the most recent queued value and returns it.
func (r *Receiver[T]) Latest() T {
	v := <-r.ch
	for {
		select {
		case next := <-r.ch:
			v = next
		default:
			return v
		}
	}
}

// TryLatest returns the most recent queued value without blocking. ok is
// false when nothing was queued.
func (r *Receiver[T]) TryLatest() (v T, ok bool) {
	for {
		select {
		case next := <-r.ch:
			v, ok = next, true
		default:
			return v, ok
		}
	}
}

// Dropped reports how many values were evicted because this receiver fell
// behind.
func (r *Receiver[T]) Dropped() uint64 {
	return r.dropped.Load()
}
