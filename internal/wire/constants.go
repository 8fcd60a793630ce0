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

// Package wire implements the framed byte protocol the bridge transports
// use to carry stream units and status snapshots over a serial or SPI
// link.
package wire

// Frame markers and control bytes
const (
	Preamble   = 0x00 // Wire frame preamble byte
	StartCode1 = 0x00 // Start code byte 1
	StartCode2 = 0xFF // Start code byte 2
	Postamble  = 0x00 // Wire frame postamble byte
)

// Message types
const (
	MsgUnit   = 0x01 // One stream unit
	MsgStatus = 0x02 // Device status snapshot
	MsgPoll   = 0x03 // Empty poll (clocks out device data on SPI)
)

// Stream identifiers carried in unit messages. Direction is implied by
// the sender: the host writes request/completion egress and MSI, the
// device writes request/completion ingress.
const (
	StreamRequest    = 0x01
	StreamCompletion = 0x02
	StreamMSI        = 0x03
)

// Unit flag bits
const (
	FlagFirst = 0x01 // Unit starts a frame
	FlagLast  = 0x02 // Unit ends a frame
)

// Wire frame size limits
const (
	// MaxDataLength bounds the message body: header plus one unit of
	// payload at the widest supported width.
	MaxDataLength = 3 + 64
	// MinWireLength is preamble + start code + len + lcs + dcs + postamble.
	MinWireLength = 7
	// statusBodyLength is the fixed MsgStatus body size.
	statusBodyLength = 17
)
