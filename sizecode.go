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

// SizeCode is a negotiated size-class code in [0,5], as reported by the
// device for the max payload and max read-request limits.
type SizeCode uint8

// MaxSizeCode is the highest meaningful size-class code.
const MaxSizeCode SizeCode = 5

// DefaultSizeCeiling is the byte ceiling applied to both negotiated size
// limits in the default profile.
const DefaultSizeCeiling uint32 = 512

// SizeForCode maps a size-class code to a byte limit: 128 bytes for code
// 0, doubling per step and saturating at ceiling. Codes above MaxSizeCode
// are clamped.
func SizeForCode(code SizeCode, ceiling uint32) uint32 {
	if code > MaxSizeCode {
		code = MaxSizeCode
	}
	size := uint32(128)
	for i := SizeCode(0); i < code; i++ {
		size *= 2
		if size > ceiling {
			size = ceiling
		}
	}
	return size
}
