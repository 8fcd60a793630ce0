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

// Identity holds the routing sub-fields assigned to the endpoint by the
// link partner. The composed 16-bit tag packs them as
// bus[15:8] | device[7:3] | function[2:0].
type Identity struct {
	Bus      uint8
	Device   uint8 // 5 bits used
	Function uint8 // 3 bits used
}

// Tag returns the composed 16-bit identity tag
func (id Identity) Tag() uint16 {
	return uint16(id.Bus)<<8 |
		uint16(id.Device&0x1f)<<3 |
		uint16(id.Function&0x07)
}

// IdentityFromTag splits a composed tag back into its sub-fields
func IdentityFromTag(tag uint16) Identity {
	return Identity{
		Bus:      uint8(tag >> 8),
		Device:   uint8(tag>>3) & 0x1f,
		Function: uint8(tag) & 0x07,
	}
}
