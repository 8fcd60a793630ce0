// go-phylink
// Copyright (c) 2025 The Phylink Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-phylink.
//
// go-phylink is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-phylink is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-phylink; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package phylink

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// convertFrame pushes a whole frame through a fresh converter and
// collects the output units.
func convertFrame(t *testing.T, inWidth, outWidth int, in Frame) Frame {
	t.Helper()
	conv, err := NewConverter(inWidth, outWidth)
	require.NoError(t, err)

	var out Frame
	for i := range in {
		units, err := conv.Push(in[i])
		require.NoError(t, err)
		out = append(out, units...)
	}
	require.True(t, conv.Idle(), "converter left partial state after a complete frame")
	return out
}

func TestConverterRoundTrip(t *testing.T) {
	t.Parallel()

	widths := []int{8, 16, 32, 64}
	sizes := []int{1, 7, 8, 13, 64, 100, 200}

	for _, inWidth := range widths {
		for _, outWidth := range widths {
			for _, size := range sizes {
				name := fmt.Sprintf("%dto%d_%dbytes", inWidth, outWidth, size)
				inWidth, outWidth, size := inWidth, outWidth, size
				t.Run(name, func(t *testing.T) {
					t.Parallel()

					payload := make([]byte, size)
					for i := range payload {
						payload[i] = byte(i)
					}

					in, err := BuildFrame(inWidth, payload)
					require.NoError(t, err)

					out := convertFrame(t, inWidth, outWidth, in)

					require.NoError(t, ValidateFrame(outWidth, out))
					assert.Equal(t, payload, FramePayload(out))
				})
			}
		}
	}
}

func TestConverterWidenSingleOutput(t *testing.T) {
	t.Parallel()

	// A 20-byte payload at width 8 widens into exactly one 32-byte unit
	// carrying a partial mask; the widener must not wait for more input
	// after Last.
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(0xF0 + i)
	}
	in, err := BuildFrame(8, payload)
	require.NoError(t, err)

	out := convertFrame(t, 8, 32, in)

	require.Len(t, out, 1)
	assert.True(t, out[0].First)
	assert.True(t, out[0].Last)
	assert.Equal(t, FullMask(20), out[0].Mask)
	assert.Equal(t, payload, out[0].Data[:20])
}

func TestConverterWidenFullSingleUnit(t *testing.T) {
	t.Parallel()

	// One full 8-byte unit carrying a whole frame widens to exactly one
	// 32-byte unit whose mask covers only the first 8 bytes.
	in := Frame{testUnit(8, 0xAB)}
	out := convertFrame(t, 8, 32, in)

	require.Len(t, out, 1)
	assert.True(t, out[0].First)
	assert.True(t, out[0].Last)
	assert.Equal(t, FullMask(8), out[0].Mask)
	assert.Equal(t, in[0].Data, out[0].Data[:8])
}

func TestConverterNarrowDropsInvalidTail(t *testing.T) {
	t.Parallel()

	// An 11-byte payload at width 32 narrows to two 8-byte units, not
	// four: sub-units past the final valid byte never appear.
	payload := make([]byte, 11)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	in, err := BuildFrame(32, payload)
	require.NoError(t, err)

	out := convertFrame(t, 32, 8, in)

	require.Len(t, out, 2)
	assert.True(t, out[0].First)
	assert.False(t, out[0].Last)
	assert.Equal(t, FullMask(8), out[0].Mask)
	assert.False(t, out[1].First)
	assert.True(t, out[1].Last)
	assert.Equal(t, FullMask(3), out[1].Mask)
}

func TestConverterEqualWidthPassthrough(t *testing.T) {
	t.Parallel()

	in, err := BuildFrame(16, make([]byte, 40))
	require.NoError(t, err)

	out := convertFrame(t, 16, 16, in)
	assert.Equal(t, in, out)
}

func TestConverterProtocolViolations(t *testing.T) {
	t.Parallel()

	t.Run("missing_first", func(t *testing.T) {
		t.Parallel()
		conv, err := NewConverter(8, 16)
		require.NoError(t, err)

		u := testUnit(8, 1)
		u.First = false
		_, err = conv.Push(u)
		require.ErrorIs(t, err, ErrFrameCorrupted)
	})

	t.Run("first_inside_frame", func(t *testing.T) {
		t.Parallel()
		conv, err := NewConverter(8, 16)
		require.NoError(t, err)

		head := testUnit(8, 1)
		head.Last = false
		_, err = conv.Push(head)
		require.NoError(t, err)

		_, err = conv.Push(testUnit(8, 2))
		require.ErrorIs(t, err, ErrFrameCorrupted)
	})

	t.Run("interior_partial_mask", func(t *testing.T) {
		t.Parallel()
		conv, err := NewConverter(8, 16)
		require.NoError(t, err)

		u := testUnit(8, 1)
		u.Last = false
		u.Mask = 0x0F
		_, err = conv.Push(u)
		require.ErrorIs(t, err, ErrFrameCorrupted)
	})

	t.Run("width_mismatch", func(t *testing.T) {
		t.Parallel()
		conv, err := NewConverter(8, 16)
		require.NoError(t, err)

		_, err = conv.Push(testUnit(16, 1))
		require.Error(t, err)
		assert.Equal(t, ErrorTypeProtocol, GetErrorType(err))
	})
}

func TestConverterBackToBackFrames(t *testing.T) {
	t.Parallel()

	conv, err := NewConverter(8, 32)
	require.NoError(t, err)

	for frame := 0; frame < 3; frame++ {
		payload := make([]byte, 12)
		for i := range payload {
			payload[i] = byte(frame*16 + i)
		}
		in, err := BuildFrame(8, payload)
		require.NoError(t, err)

		var out Frame
		for i := range in {
			units, err := conv.Push(in[i])
			require.NoError(t, err)
			out = append(out, units...)
		}
		require.NoError(t, ValidateFrame(32, out))
		assert.Equal(t, payload, FramePayload(out))
		assert.True(t, conv.Idle())
	}
}

func TestAdapterRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	in, err := NewStream(8)
	require.NoError(t, err)
	out, err := NewStream(32)
	require.NoError(t, err)

	adapter, err := NewAdapter(in, out)
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- adapter.Run(ctx) }()

	payload := make([]byte, 50)
	for i := range payload {
		payload[i] = byte(i)
	}
	frame, err := BuildFrame(8, payload)
	require.NoError(t, err)

	go func() {
		_ = in.SendFrame(ctx, frame)
		in.Close()
	}()

	got, err := out.RecvFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload, FramePayload(got))

	// After the input closes, Run returns nil and closes the output.
	require.NoError(t, <-runErr)
	_, err = out.Recv(ctx)
	require.ErrorIs(t, err, ErrStreamClosed)
}

func TestAdapterRunInputClosedMidFrame(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	in, err := NewStream(8)
	require.NoError(t, err)
	out, err := NewStream(32)
	require.NoError(t, err)

	adapter, err := NewAdapter(in, out)
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- adapter.Run(ctx) }()

	// Send only the head of a frame, then close.
	head := testUnit(8, 1)
	head.Last = false
	require.NoError(t, in.Send(ctx, head))
	in.Close()

	err = <-runErr
	require.ErrorIs(t, err, ErrFrameCorrupted)
}
