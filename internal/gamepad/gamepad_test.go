// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gamepad

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/relabs-tech/joystick_link/internal/joystick"
	"github.com/relabs-tech/joystick_link/internal/stream"
)

func TestAxisValueEndpoints(t *testing.T) {
	assert.Equal(t, int8(-127), AxisValue(0))
	assert.Equal(t, int8(0), AxisValue(5000))
	assert.Equal(t, int8(127), AxisValue(10000))
	assert.Equal(t, int8(-63), AxisValue(2500))
}

func TestAxisValueInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint16Range(0, joystick.NormalizedMax).Draw(t, "v")
		a := AxisValue(v)
		if a < -127 || a > 127 {
			t.Fatalf("AxisValue(%d) = %d", v, a)
		}
	})
}

func TestReportBytes(t *testing.T) {
	r := ReportFromSample(joystick.NormalizedSample{0, 5000, 10000, 2500})
	r.Buttons = 0x03

	assert.Equal(t, [ReportLen]byte{0x03, 0x81, 0x00, 0x7F, 0xC1}, r.Bytes())
}

// gadgetWriter accepts limit writes and then fails. after runs once per
// accepted write, standing in for samples arriving while the host polls.
type gadgetWriter struct {
	buf    bytes.Buffer
	writes int
	limit  int
	after  func(writes int)
}

func (w *gadgetWriter) Write(b []byte) (int, error) {
	if w.writes == w.limit {
		return 0, errors.New("gadget unbound")
	}
	n, err := w.buf.Write(b)
	w.writes++
	if w.after != nil {
		w.after(w.writes)
	}
	return n, err
}

func TestSinkRunReportsNewestSample(t *testing.T) {
	normalized := stream.New[joystick.NormalizedSample]("mixer_out", 8)
	rx := normalized.Subscribe()
	normalized.Publish(joystick.NormalizedSample{5000, 5000, 5000, 5000})
	normalized.Publish(joystick.NormalizedSample{10000, 0, 10000, 0})
	normalized.Publish(joystick.NormalizedSample{})

	w := &gadgetWriter{limit: 2}
	w.after = func(writes int) {
		switch writes {
		case 1:
			normalized.Publish(joystick.NormalizedSample{5000, 5000, 5000, 5000})
			normalized.Publish(joystick.NormalizedSample{10000, 0, 10000, 0})
		case 2:
			normalized.Publish(joystick.NormalizedSample{})
		}
	}
	err := NewSink(w, log.New(io.Discard)).Run(rx)
	require.ErrorContains(t, err, "gadget unbound")

	assert.Equal(t, []byte{
		0x00, 0x81, 0x81, 0x81, 0x81,
		0x00, 0x7F, 0x81, 0x7F, 0x81,
	}, w.buf.Bytes(), "queued samples are skipped in favour of the newest")
	assert.Equal(t, 2, w.writes)
}
