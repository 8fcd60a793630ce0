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
	"fmt"
	"math/bits"
)

// Supported transfer-unit widths in bytes (64 to 512 bits).
const (
	MinUnitWidth = 8
	MaxUnitWidth = 64
)

// ValidUnitWidth reports whether width is a supported transfer-unit
// width in bytes
func ValidUnitWidth(width int) bool {
	switch width {
	case 8, 16, 32, 64:
		return true
	default:
		return false
	}
}

// Unit is one fixed-width transfer granule of a frame stream. Data holds
// the payload at the stream's unit width, Mask carries one validity bit
// per payload byte (bit i covers Data[i]), and First/Last mark the frame
// boundaries.
//
// Valid bytes are always a contiguous run starting at byte 0; only a
// unit with Last set may carry a partial mask.
type Unit struct {
	Data  []byte
	Mask  uint64
	First bool
	Last  bool
}

// FullMask returns the validity mask covering every byte of a unit of
// the given width
func FullMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// maskRun returns the number of contiguous valid bytes starting at byte 0
// and whether the mask is a pure contiguous run (no holes, no stray high
// bits beyond width).
func maskRun(mask uint64, width int) (int, bool) {
	if mask&^FullMask(width) != 0 {
		return 0, false
	}
	// A contiguous run from bit 0 is one less than a power of two.
	if mask&(mask+1) != 0 {
		return 0, false
	}
	return bits.OnesCount64(mask), true
}

// ValidLen returns the number of valid payload bytes in the unit
func (u *Unit) ValidLen() int {
	n, _ := maskRun(u.Mask, len(u.Data))
	return n
}

// Clone returns a deep copy of the unit
func (u *Unit) Clone() Unit {
	c := *u
	c.Data = make([]byte, len(u.Data))
	copy(c.Data, u.Data)
	return c
}

// checkUnit validates a single unit against the stream contract: width
// match, contiguous mask, full mask unless Last, at least one valid byte.
func checkUnit(op string, width int, u Unit) error {
	if len(u.Data) != width {
		return NewProtocolError(op,
			fmt.Sprintf("unit width %d does not match stream width %d", len(u.Data), width), nil)
	}
	n, contiguous := maskRun(u.Mask, width)
	if !contiguous {
		return NewProtocolError(op,
			fmt.Sprintf("validity mask %#x is not a contiguous run", u.Mask), ErrFrameCorrupted)
	}
	if n == 0 {
		return NewProtocolError(op, "unit carries no valid bytes", ErrZeroLengthFrame)
	}
	if !u.Last && n != width {
		return NewProtocolError(op,
			fmt.Sprintf("interior unit has partial mask (%d of %d bytes)", n, width), ErrFrameCorrupted)
	}
	return nil
}

// Frame is one complete message: an ordered sequence of units with First
// set on the first unit only and Last on the final unit only.
type Frame []Unit

// BuildFrame chunks payload into a frame of units at the given width.
// The final unit's mask covers only the trailing payload bytes.
func BuildFrame(width int, payload []byte) (Frame, error) {
	if !ValidUnitWidth(width) {
		return nil, NewConfigError("width", width, "unit width must be 8, 16, 32 or 64 bytes")
	}
	if len(payload) == 0 {
		return nil, ErrZeroLengthFrame
	}

	count := (len(payload) + width - 1) / width
	frame := make(Frame, 0, count)
	for i := 0; i < count; i++ {
		lo := i * width
		hi := lo + width
		if hi > len(payload) {
			hi = len(payload)
		}
		data := make([]byte, width)
		copy(data, payload[lo:hi])
		frame = append(frame, Unit{
			Data:  data,
			Mask:  FullMask(hi - lo),
			First: i == 0,
			Last:  i == count-1,
		})
	}
	return frame, nil
}

// FramePayload concatenates the valid bytes of a frame back into a flat
// payload
func FramePayload(f Frame) []byte {
	var payload []byte
	for i := range f {
		payload = append(payload, f[i].Data[:f[i].ValidLen()]...)
	}
	return payload
}

// ValidateFrame checks a complete frame against the data-model
// invariants: boundary flags well-formed, interior units fully valid,
// only the final unit partial
func ValidateFrame(width int, f Frame) error {
	const op = "ValidateFrame"
	if len(f) == 0 {
		return NewProtocolError(op, "frame has no units", ErrZeroLengthFrame)
	}
	for i := range f {
		u := f[i]
		if u.First != (i == 0) {
			return NewProtocolError(op,
				fmt.Sprintf("First flag wrong on unit %d", i), ErrFrameCorrupted)
		}
		if u.Last != (i == len(f)-1) {
			return NewProtocolError(op,
				fmt.Sprintf("Last flag wrong on unit %d", i), ErrFrameCorrupted)
		}
		if err := checkUnit(op, width, u); err != nil {
			return err
		}
	}
	return nil
}
