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

package detection

import "strings"

// KnownBridgeIDs lists USB VID:PID pairs of serial bridges commonly
// found on FPGA development boards. Detection reports only these unless
// Options.AllDevices is set.
func KnownBridgeIDs() []string {
	return []string{
		"0403:6010", // FTDI FT2232H (dual channel, JTAG+UART)
		"0403:6011", // FTDI FT4232H
		"0403:6014", // FTDI FT232H
		"10C4:EA60", // Silicon Labs CP210x
		"0D28:0204", // ARM DAPLink CDC
	}
}

// DefaultBlocklist returns VID:PID pairs of devices that should never be
// probed during detection.
// Format: VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return []string{
		// Add known problematic devices here as discovered.
	}
}

// IsBlocked checks if a USB device is in the blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// IsKnownBridge checks if a VID:PID pair belongs to a known bridge chip.
func IsKnownBridge(vidpid string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, known := range KnownBridgeIDs() {
		if vidpid == known {
			return true
		}
	}
	return false
}

// IsPathIgnored checks if a device path is in the ignore list.
// Comparison is case-insensitive to cover Windows COM port naming.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	devicePath = strings.ToUpper(strings.TrimSpace(devicePath))
	for _, ignored := range ignorePaths {
		if devicePath == strings.ToUpper(strings.TrimSpace(ignored)) {
			return true
		}
	}
	return false
}
