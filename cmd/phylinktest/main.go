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

// phylinktest exercises a link device end to end: it opens a bridge (or
// a virtual loopback device), brings up a PHY, pushes test frames
// through the request datapath and reports what comes back.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	phylink "github.com/phylink/go-phylink"
	"github.com/phylink/go-phylink/internal/phytest"
	"github.com/phylink/go-phylink/internal/transport"
	"github.com/phylink/go-phylink/monitor"
	"github.com/phylink/go-phylink/transport/spi"
	"github.com/phylink/go-phylink/transport/uart"
)

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}

func run() int {
	configPath := flag.String("config", "", "Path to a TOML config file")
	devicePath := flag.String("device", "", "Device path (e.g. /dev/ttyUSB0 or SPI0.0)")
	virtual := flag.Bool("virtual", false, "Use a virtual loopback device instead of hardware")
	duration := flag.Duration("duration", 10*time.Second, "Total run duration")
	frames := flag.Int("frames", 0, "Number of test frames to send (0 uses the config value)")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	cfg := DefaultTestConfig()
	if *configPath != "" {
		if err := loadConfig(cfg, *configPath); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
	}
	if *devicePath != "" {
		cfg.Device = *devicePath
	}
	if *frames > 0 {
		cfg.Frames = *frames
	}
	cfg.Duration = *duration
	cfg.Virtual = *virtual
	cfg.Verbose = *verbose

	logger := newLogger(cfg.Verbose)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("shutting down")
		cancel()
	}()

	if err := runTest(ctx, cfg, logger); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error().Err(err).Msg("test failed")
		return 1
	}
	return 0
}

func newLogger(verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", "phylinktest").Logger()
	if !verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}

// openDevice creates the link device the test runs against
func openDevice(cfg *Config) (phylink.Device, *phytest.VirtualDevice, error) {
	if cfg.Virtual {
		vdev, err := phytest.New(cfg.PhyWidth, cfg.Lanes)
		if err != nil {
			return nil, nil, err
		}
		vdev.SetEcho(true)
		return vdev, vdev, nil
	}

	if cfg.Device == "" {
		return nil, nil, errors.New("no device path given (use -device or -virtual)")
	}

	if strings.Contains(strings.ToLower(cfg.Device), "spi") {
		dev, err := spi.New(cfg.Device, spi.WithWidth(cfg.PhyWidth), spi.WithLanes(cfg.Lanes))
		if err != nil {
			return nil, nil, fmt.Errorf("open SPI bridge: %w", err)
		}
		return dev, nil, nil
	}

	dev, err := uart.New(cfg.Device,
		uart.WithBaudRate(cfg.BaudRate),
		uart.WithWidth(cfg.PhyWidth),
		uart.WithLanes(cfg.Lanes))
	if err != nil {
		return nil, nil, fmt.Errorf("open serial bridge: %w", err)
	}
	return dev, nil, nil
}

func runTest(ctx context.Context, cfg *Config, logger zerolog.Logger) error {
	dev, vdev, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	phy, err := phylink.New(dev,
		phylink.WithAppWidth(cfg.AppWidth),
		phylink.WithSpeed(cfg.Speed),
		phylink.WithVariant(cfg.Variant),
		phylink.WithEventQueueDepth(cfg.QueueDepth),
		phylink.WithSizeCeiling(cfg.SizeCeiling),
		phylink.WithStatusInterval(cfg.StatusInterval),
		phylink.WithErrorHandler(func(err error) {
			logger.Warn().Err(err).Msg("datapath error")
		}))
	if err != nil {
		return fmt.Errorf("create PHY: %w", err)
	}
	defer func() { _ = phy.Close() }()

	phyCfg := phy.Config()
	logger.Info().
		Str("profile", phyCfg.ProfileName()).
		Str("device", string(dev.Type())).
		Int("app_width", cfg.AppWidth).
		Int("phy_width", cfg.PhyWidth).
		Msg("starting PHY")

	if err := phy.Start(ctx); err != nil {
		return err
	}

	mon := monitor.NewMonitor(phy, nil, monitor.Callbacks{
		OnLinkUp: func(id phylink.Identity) {
			logger.Info().
				Uint8("bus", id.Bus).
				Uint8("device", id.Device).
				Uint8("function", id.Function).
				Msg("link up")
		},
		OnLinkDown: func() {
			logger.Warn().Msg("link down")
		},
		OnSizesChanged: func(maxPayload, maxRequest uint32) {
			logger.Info().
				Uint32("max_payload", maxPayload).
				Uint32("max_request", maxRequest).
				Msg("negotiated sizes changed")
		},
	})
	go func() { _ = mon.Start(ctx) }()

	if err := waitForLink(ctx, phy); err != nil {
		return fmt.Errorf("link never came up: %w", err)
	}

	if err := sendFrames(ctx, cfg, phy, logger); err != nil {
		return err
	}

	if vdev != nil {
		return verifyEcho(ctx, cfg, phy, logger)
	}

	logger.Info().
		Bool("msi_enabled", phy.MSIEnabled()).
		Bool("bus_master", phy.BusMasterEnabled()).
		Uint32("max_payload", phy.MaxPayloadSize()).
		Uint32("max_request", phy.MaxRequestSize()).
		Str("serial", fmt.Sprintf("%016x", phy.SerialNumber())).
		Msg("final status")
	return nil
}

// waitForLink blocks until the status relay reports the link up
func waitForLink(ctx context.Context, phy *phylink.PHY) error {
	_, err := transport.PollUntil(ctx, "link", time.Millisecond, func() (bool, bool, error) {
		up := phy.LinkUp()
		return up, !up, nil
	})
	return err
}

// sendFrames pushes numbered test frames down the request datapath and
// fires one notification per frame.
func sendFrames(ctx context.Context, cfg *Config, phy *phylink.PHY, logger zerolog.Logger) error {
	for i := 0; i < cfg.Frames; i++ {
		payload := testPayload(i, 3*cfg.AppWidth/2)
		frame, err := phylink.BuildFrame(cfg.AppWidth, payload)
		if err != nil {
			return fmt.Errorf("build frame %d: %w", i, err)
		}
		if err := phy.RequestSink().SendFrame(ctx, frame); err != nil {
			return fmt.Errorf("send frame %d: %w", i, err)
		}
		if err := phy.SendMSI(ctx, uint32(i)); err != nil {
			return fmt.Errorf("send notification %d: %w", i, err)
		}
		logger.Debug().Int("frame", i).Int("bytes", len(payload)).Msg("frame sent")
	}
	logger.Info().Int("frames", cfg.Frames).Msg("all frames sent")
	return nil
}

// verifyEcho reads the echoed frames back off the completion datapath
// and checks them against what was sent.
func verifyEcho(ctx context.Context, cfg *Config, phy *phylink.PHY, logger zerolog.Logger) error {
	for i := 0; i < cfg.Frames; i++ {
		frame, err := phy.CompletionSource().RecvFrame(ctx)
		if err != nil {
			return fmt.Errorf("receive echo %d: %w", i, err)
		}
		got := phylink.FramePayload(frame)
		want := testPayload(i, 3*cfg.AppWidth/2)
		if !bytes.Equal(got, want) {
			return fmt.Errorf("echo %d mismatch: sent %d bytes, got %d", i, len(want), len(got))
		}
	}
	logger.Info().Int("frames", cfg.Frames).Msg("all echoes verified")
	return nil
}

func testPayload(seq, size int) []byte {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(seq + i)
	}
	return payload
}
