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

// Package detection finds candidate bridge devices attached to the host.
// Transport-specific detectors register themselves on import:
//
//	import _ "github.com/phylink/go-phylink/detection/uart"
package detection

import (
	"context"
	"errors"
	"sync"
)

// ErrUnsupportedPlatform is returned by detectors that cannot run on the
// current platform.
var ErrUnsupportedPlatform = errors.New("detection not supported on this platform")

// DeviceInfo describes a candidate bridge device
type DeviceInfo struct {
	// Path is the device path or port name to open.
	Path string
	// Transport is the detector's transport name ("uart", "spi").
	Transport string
	// Description is a human-readable device description.
	Description string
	// VIDPID is the USB vendor:product pair when known, e.g. "0403:6010".
	VIDPID string
	// SerialNumber is the USB serial number when known.
	SerialNumber string
}

// Options controls a detection pass
type Options struct {
	// Blocklist lists VID:PID pairs to skip.
	Blocklist []string
	// IgnorePaths lists device paths to skip.
	IgnorePaths []string
	// AllDevices includes ports that do not match a known bridge
	// VID:PID. Default is to report known bridges only.
	AllDevices bool
}

// Detector finds candidate devices on one transport
type Detector interface {
	// Transport returns the transport name
	Transport() string

	// Detect searches for candidate devices
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	detectorsMu sync.RWMutex
	detectors   []Detector
)

// RegisterDetector adds a detector to the global registry. It is called
// from detector package init functions.
func RegisterDetector(d Detector) {
	detectorsMu.Lock()
	defer detectorsMu.Unlock()
	detectors = append(detectors, d)
}

// Detect runs every registered detector and aggregates the results.
// Unsupported-platform detectors are skipped silently.
func Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		opts = &Options{Blocklist: DefaultBlocklist()}
	}

	detectorsMu.RLock()
	active := make([]Detector, len(detectors))
	copy(active, detectors)
	detectorsMu.RUnlock()

	var found []DeviceInfo
	for _, d := range active {
		devices, err := d.Detect(ctx, opts)
		if errors.Is(err, ErrUnsupportedPlatform) {
			continue
		}
		if err != nil {
			return found, err
		}
		found = append(found, devices...)
	}
	return found, nil
}
