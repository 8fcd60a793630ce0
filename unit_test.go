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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidUnitWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		width int
		want  bool
	}{
		{name: "8_bytes", width: 8, want: true},
		{name: "16_bytes", width: 16, want: true},
		{name: "32_bytes", width: 32, want: true},
		{name: "64_bytes", width: 64, want: true},
		{name: "zero", width: 0, want: false},
		{name: "odd_width", width: 12, want: false},
		{name: "too_wide", width: 128, want: false},
		{name: "negative", width: -8, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidUnitWidth(tt.width))
		})
	}
}

func TestFullMask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		width int
		want  uint64
	}{
		{name: "8_bytes", width: 8, want: 0xFF},
		{name: "16_bytes", width: 16, want: 0xFFFF},
		{name: "32_bytes", width: 32, want: 0xFFFFFFFF},
		{name: "64_bytes", width: 64, want: ^uint64(0)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FullMask(tt.width))
		})
	}
}

func TestUnitValidLen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mask uint64
		want int
	}{
		{name: "full_mask", mask: 0xFF, want: 8},
		{name: "partial_run", mask: 0x07, want: 3},
		{name: "single_byte", mask: 0x01, want: 1},
		{name: "empty_mask", mask: 0, want: 0},
		{name: "holed_mask_invalid", mask: 0x05, want: 0},
		{name: "run_not_from_zero_invalid", mask: 0x0E, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u := Unit{Data: make([]byte, 8), Mask: tt.mask}
			assert.Equal(t, tt.want, u.ValidLen())
		})
	}
}

func TestUnitClone(t *testing.T) {
	t.Parallel()

	u := Unit{Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}, Mask: 0xFF, First: true, Last: true}
	c := u.Clone()

	require.Equal(t, u, c)

	// Mutating the clone must not touch the original.
	c.Data[0] = 0xAA
	assert.Equal(t, byte(1), u.Data[0])
}

func TestBuildFrame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		payload     []byte
		width       int
		wantUnits   int
		wantLastLen int
	}{
		{
			name:        "exact_single_unit",
			width:       8,
			payload:     bytes.Repeat([]byte{0x11}, 8),
			wantUnits:   1,
			wantLastLen: 8,
		},
		{
			name:        "partial_single_unit",
			width:       8,
			payload:     []byte{1, 2, 3},
			wantUnits:   1,
			wantLastLen: 3,
		},
		{
			name:        "multi_unit_with_tail",
			width:       8,
			payload:     bytes.Repeat([]byte{0x22}, 20),
			wantUnits:   3,
			wantLastLen: 4,
		},
		{
			name:        "wide_units",
			width:       32,
			payload:     bytes.Repeat([]byte{0x33}, 64),
			wantUnits:   2,
			wantLastLen: 32,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			frame, err := BuildFrame(tt.width, tt.payload)
			require.NoError(t, err)
			require.Len(t, frame, tt.wantUnits)

			assert.True(t, frame[0].First)
			assert.True(t, frame[len(frame)-1].Last)
			for i, u := range frame {
				assert.Len(t, u.Data, tt.width)
				if i < len(frame)-1 {
					assert.Equal(t, tt.width, u.ValidLen())
					assert.False(t, u.Last)
				}
			}
			assert.Equal(t, tt.wantLastLen, frame[len(frame)-1].ValidLen())

			require.NoError(t, ValidateFrame(tt.width, frame))
			assert.Equal(t, tt.payload, FramePayload(frame))
		})
	}
}

func TestBuildFrameErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty_payload", func(t *testing.T) {
		t.Parallel()
		_, err := BuildFrame(8, nil)
		require.ErrorIs(t, err, ErrZeroLengthFrame)
	})

	t.Run("invalid_width", func(t *testing.T) {
		t.Parallel()
		_, err := BuildFrame(7, []byte{1})
		require.Error(t, err)
		assert.Equal(t, ErrorTypeConfig, GetErrorType(err))
	})
}

func TestValidateFrame(t *testing.T) {
	t.Parallel()

	valid := func() Frame {
		f, err := BuildFrame(8, bytes.Repeat([]byte{0x44}, 20))
		require.NoError(t, err)
		return f
	}

	tests := []struct {
		mutate  func(Frame) Frame
		wantErr error
		name    string
	}{
		{
			name:    "empty_frame",
			mutate:  func(Frame) Frame { return nil },
			wantErr: ErrZeroLengthFrame,
		},
		{
			name: "missing_first",
			mutate: func(f Frame) Frame {
				f[0].First = false
				return f
			},
			wantErr: ErrFrameCorrupted,
		},
		{
			name: "first_inside_frame",
			mutate: func(f Frame) Frame {
				f[1].First = true
				return f
			},
			wantErr: ErrFrameCorrupted,
		},
		{
			name: "missing_last",
			mutate: func(f Frame) Frame {
				f[len(f)-1].Last = false
				return f
			},
			wantErr: ErrFrameCorrupted,
		},
		{
			name: "interior_partial_mask",
			mutate: func(f Frame) Frame {
				f[0].Mask = 0x0F
				return f
			},
			wantErr: ErrFrameCorrupted,
		},
		{
			name: "holed_mask",
			mutate: func(f Frame) Frame {
				f[len(f)-1].Mask = 0x05
				return f
			},
			wantErr: ErrFrameCorrupted,
		},
		{
			name: "zero_mask",
			mutate: func(f Frame) Frame {
				f[len(f)-1].Mask = 0
				return f
			},
			wantErr: ErrZeroLengthFrame,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateFrame(8, tt.mutate(valid()))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, ErrorTypeProtocol, GetErrorType(err))
		})
	}

	t.Run("valid_frame_passes", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, ValidateFrame(8, valid()))
	})
}
