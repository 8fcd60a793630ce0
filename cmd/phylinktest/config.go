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

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	phylink "github.com/phylink/go-phylink"
)

// Config holds the resolved test-run settings
type Config struct {
	Device         string
	Speed          phylink.Speed
	Variant        phylink.Variant
	AppWidth       int
	PhyWidth       int
	Lanes          int
	BaudRate       int
	QueueDepth     int
	SizeCeiling    uint32
	StatusInterval time.Duration
	Duration       time.Duration
	Frames         int
	Virtual        bool
	Verbose        bool
}

// DefaultTestConfig returns the defaults used when no config file or
// flag overrides them.
func DefaultTestConfig() *Config {
	return &Config{
		Speed:          phylink.SpeedGen2,
		Variant:        phylink.VariantStandard,
		AppWidth:       8,
		PhyWidth:       8,
		Lanes:          4,
		BaudRate:       115200,
		QueueDepth:     phylink.DefaultQueueDepth,
		SizeCeiling:    phylink.DefaultSizeCeiling,
		StatusInterval: time.Millisecond,
		Duration:       10 * time.Second,
		Frames:         16,
	}
}

// phylinktest config.toml key mapping to run settings.
type fileConfig struct {
	Device         string `toml:"device"`
	Speed          string `toml:"speed"`
	Variant        string `toml:"variant"`
	AppWidth       int    `toml:"app_width"`
	PhyWidth       int    `toml:"phy_width"`
	Lanes          int    `toml:"lanes"`
	BaudRate       int    `toml:"baud_rate"`
	QueueDepth     int    `toml:"event_queue_depth"`
	SizeCeiling    int    `toml:"size_ceiling"`
	StatusInterval string `toml:"status_interval"`
	Frames         int    `toml:"frames"`
}

// loadConfig overlays a TOML file onto the defaults. Keys absent from
// the file keep their default values.
func loadConfig(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("speed") {
		cfg.Speed = phylink.Speed(strings.TrimSpace(raw.Speed))
	}
	if meta.IsDefined("variant") {
		cfg.Variant = phylink.Variant(strings.TrimSpace(raw.Variant))
	}
	if meta.IsDefined("app_width") {
		cfg.AppWidth = raw.AppWidth
	}
	if meta.IsDefined("phy_width") {
		cfg.PhyWidth = raw.PhyWidth
	}
	if meta.IsDefined("lanes") {
		cfg.Lanes = raw.Lanes
	}
	if meta.IsDefined("baud_rate") {
		cfg.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("event_queue_depth") {
		cfg.QueueDepth = raw.QueueDepth
	}
	if meta.IsDefined("size_ceiling") {
		if raw.SizeCeiling < 0 {
			return fmt.Errorf("load config: size_ceiling must be positive, got %d", raw.SizeCeiling)
		}
		cfg.SizeCeiling = uint32(raw.SizeCeiling)
	}
	if meta.IsDefined("status_interval") {
		interval, err := time.ParseDuration(strings.TrimSpace(raw.StatusInterval))
		if err != nil {
			return fmt.Errorf("load config: parse status_interval: %w", err)
		}
		cfg.StatusInterval = interval
	}
	if meta.IsDefined("frames") {
		cfg.Frames = raw.Frames
	}
	return nil
}
