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

// phylinkstat opens a link device, waits for the link to come up and
// prints one status snapshot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	phylink "github.com/phylink/go-phylink"
	"github.com/phylink/go-phylink/detection"
	// Import all detectors to register them
	_ "github.com/phylink/go-phylink/detection/uart"
	"github.com/phylink/go-phylink/internal/transport"
	"github.com/phylink/go-phylink/transport/uart"
)

type config struct {
	devicePath *string
	timeout    *time.Duration
	width      *int
	lanes      *int
	allPorts   *bool
}

func parseFlags() *config {
	cfg := &config{
		devicePath: flag.String("device", "",
			"Serial device path (e.g., /dev/ttyUSB0 or COM3). Leave empty for auto-detection."),
		timeout:  flag.Duration("timeout", 10*time.Second, "Timeout waiting for the link (default: 10s)"),
		width:    flag.Int("width", 8, "Device unit width in bytes (8, 16, 32 or 64)"),
		lanes:    flag.Int("lanes", 4, "Device lane count (1, 2, 4, 8 or 16)"),
		allPorts: flag.Bool("all", false, "Consider all serial ports during auto-detection"),
	}
	flag.Parse()
	return cfg
}

// resolveDevicePath returns the configured path or the first detected
// candidate.
func resolveDevicePath(ctx context.Context, cfg *config) (string, error) {
	if *cfg.devicePath != "" {
		return *cfg.devicePath, nil
	}

	_, _ = fmt.Println("Auto-detecting bridge devices...")
	devices, err := detection.Detect(ctx, &detection.Options{
		Blocklist:  detection.DefaultBlocklist(),
		AllDevices: *cfg.allPorts,
	})
	if err != nil {
		return "", fmt.Errorf("detection failed: %w", err)
	}
	if len(devices) == 0 {
		return "", errors.New("no bridge devices found")
	}

	device := devices[0]
	_, _ = fmt.Printf("Using %s (%s %s)\n", device.Path, device.VIDPID, device.Description)
	return device.Path, nil
}

func waitForLink(ctx context.Context, phy *phylink.PHY) error {
	_, err := transport.PollUntil(ctx, "link", 10*time.Millisecond, func() (bool, bool, error) {
		up := phy.LinkUp()
		return up, !up, nil
	})
	return err
}

func printStatus(phy *phylink.PHY) {
	id := phy.Identity()
	cfg := phy.Config()
	_, _ = fmt.Printf("Profile:           %s\n", cfg.ProfileName())
	_, _ = fmt.Printf("Link:              up\n")
	_, _ = fmt.Printf("Identity:          %02x:%02x.%x (tag 0x%04x)\n", id.Bus, id.Device, id.Function, phy.ID())
	_, _ = fmt.Printf("Serial number:     %016x\n", phy.SerialNumber())
	_, _ = fmt.Printf("Function status:   0x%04x\n", phy.FunctionStatus())
	_, _ = fmt.Printf("Bus master:        %v\n", phy.BusMasterEnabled())
	_, _ = fmt.Printf("MSI enabled:       %v\n", phy.MSIEnabled())
	_, _ = fmt.Printf("Max payload size:  %d bytes\n", phy.MaxPayloadSize())
	_, _ = fmt.Printf("Max request size:  %d bytes\n", phy.MaxRequestSize())
}

func run() error {
	cfg := parseFlags()

	ctx, cancel := context.WithTimeout(context.Background(), *cfg.timeout)
	defer cancel()

	path, err := resolveDevicePath(ctx, cfg)
	if err != nil {
		return err
	}

	dev, err := uart.New(path, uart.WithWidth(*cfg.width), uart.WithLanes(*cfg.lanes))
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer func() { _ = dev.Close() }()

	phy, err := phylink.New(dev)
	if err != nil {
		return fmt.Errorf("failed to create PHY: %w", err)
	}
	defer func() { _ = phy.Close() }()

	if err := phy.Start(ctx); err != nil {
		return err
	}

	_, _ = fmt.Printf("Waiting for link (timeout: %s)...\n", *cfg.timeout)
	if err := waitForLink(ctx, phy); err != nil {
		return fmt.Errorf("link never came up: %w", err)
	}

	printStatus(phy)
	return nil
}

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
