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

// MSIWidth is the unit width of the notification/event stream in bytes.
const MSIWidth = 8

// DeviceStatus is a snapshot of the scalar status outputs published by
// the link device. Fields are owned and written only by the device's
// domain; readers tolerate bounded staleness and must not assume two
// snapshots' fields were ever simultaneous on the wire.
type DeviceStatus struct {
	SerialNumber   uint64
	FunctionStatus uint16
	Identity       Identity
	MaxPayloadCode SizeCode
	MaxRequestCode SizeCode
	LinkUp         bool
	MSIEnabled     bool
}

// BusMasterEnabled reports the bus-mastering bit of the function status
// word
func (s DeviceStatus) BusMasterEnabled() bool {
	return s.FunctionStatus&0x0004 != 0
}

// Device is the boundary to the physical-link device: a fixed-width
// framed producer/consumer with published status outputs. This can be
// implemented by the UART or SPI bridge backends, or by a virtual
// device for testing.
type Device interface {
	// RequestSink accepts egress request frames at the device width
	RequestSink() *Stream

	// CompletionSink accepts egress completion frames
	CompletionSink() *Stream

	// RequestSource produces ingress request frames
	RequestSource() *Stream

	// CompletionSource produces ingress completion frames
	CompletionSource() *Stream

	// MSISink accepts notification events (MSIWidth units)
	MSISink() *Stream

	// Width returns the device's fixed unit width in bytes
	Width() int

	// Lanes returns the device's lane count
	Lanes() int

	// Status returns the latest scalar status snapshot
	Status() DeviceStatus

	// Close shuts the device down
	Close() error

	// Type returns the device backend type
	Type() DeviceType
}

// DeviceType represents the kind of device backend
type DeviceType string

const (
	// DeviceUART represents a serial-link bridge device.
	DeviceUART DeviceType = "uart"
	// DeviceSPI represents an SPI bridge device.
	DeviceSPI DeviceType = "spi"
	// DeviceVirtual represents an in-process device for testing
	DeviceVirtual DeviceType = "virtual"
)

// DeviceCapability represents specific capabilities or behaviors of a
// device backend
type DeviceCapability string

const (
	// CapabilityStatusPush indicates the device updates its status
	// snapshot as changes arrive, so callers may poll it slowly.
	CapabilityStatusPush DeviceCapability = "status_push"
)

// DeviceCapabilityChecker is implemented by backends that can report
// optional capabilities
type DeviceCapabilityChecker interface {
	// HasCapability returns true if the device has the specified capability
	HasCapability(capability DeviceCapability) bool
}
