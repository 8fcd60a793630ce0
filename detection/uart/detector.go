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

// Package uart provides serial-port detection for bridge devices
package uart

import (
	"context"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"

	"github.com/phylink/go-phylink/detection"
)

// detector implements the Detector interface for serial ports
type detector struct{}

// New creates a new serial-port detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// listPorts is replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect enumerates serial ports and reports candidate bridges
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	var found []detection.DeviceInfo
	for _, port := range ports {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		if detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
			continue
		}
		if !port.IsUSB {
			continue
		}

		vidpid := strings.ToUpper(port.VID + ":" + port.PID)
		if detection.IsBlocked(vidpid, opts.Blocklist) {
			continue
		}
		if !opts.AllDevices && !detection.IsKnownBridge(vidpid) {
			continue
		}

		found = append(found, detection.DeviceInfo{
			Path:         port.Name,
			Transport:    "uart",
			Description:  port.Product,
			VIDPID:       vidpid,
			SerialNumber: port.SerialNumber,
		})
	}
	return found, nil
}
