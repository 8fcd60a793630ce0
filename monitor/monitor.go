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

// Package monitor watches a PHY's relayed status and turns level changes
// into edge callbacks: link-up/link-down transitions, identity
// reassignment and renegotiated size limits.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	phylink "github.com/phylink/go-phylink"
)

// Callbacks defines callback functions for link events. Nil callbacks
// are skipped.
type Callbacks struct {
	// OnLinkUp fires when the link transitions from down to up.
	OnLinkUp func(id phylink.Identity)
	// OnLinkDown fires when the link transitions from up to down.
	OnLinkDown func()
	// OnIdentityChanged fires when the identity tag changes while up.
	OnIdentityChanged func(id phylink.Identity)
	// OnSizesChanged fires when a negotiated size limit changes.
	OnSizesChanged func(maxPayload, maxRequest uint32)
}

// Config configures monitoring behavior
type Config struct {
	// PollInterval is the status sampling period.
	PollInterval time.Duration
}

// DefaultConfig returns the default monitoring configuration
func DefaultConfig() *Config {
	return &Config{PollInterval: 10 * time.Millisecond}
}

// LinkState is the last observed link state
type LinkState struct {
	LastChange time.Time
	MaxPayload uint32
	MaxRequest uint32
	ID         phylink.Identity
	Up         bool
}

// Metrics tracks operational counters for a Monitor
type Metrics struct {
	PollCycles  int64 // Total number of polling cycles
	Transitions int64 // Number of link up/down transitions
}

// Monitor polls a PHY's status relays and drives the callbacks
type Monitor struct {
	phy       *phylink.PHY
	config    *Config
	callbacks Callbacks

	mu    sync.Mutex
	state LinkState

	pollCycles  int64
	transitions int64
}

// NewMonitor creates a link monitor over phy
func NewMonitor(phy *phylink.PHY, config *Config, callbacks Callbacks) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		phy:       phy,
		config:    config,
		callbacks: callbacks,
	}
}

// Start runs the monitoring loop until the context ends
func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.poll()
		}
	}
}

// poll samples the PHY once and fires callbacks for every edge since the
// previous sample.
func (m *Monitor) poll() {
	atomic.AddInt64(&m.pollCycles, 1)

	up := m.phy.LinkUp()
	id := m.phy.Identity()
	maxPayload := m.phy.MaxPayloadSize()
	maxRequest := m.phy.MaxRequestSize()

	m.mu.Lock()
	prev := m.state
	m.state = LinkState{
		Up:         up,
		ID:         id,
		MaxPayload: maxPayload,
		MaxRequest: maxRequest,
		LastChange: prev.LastChange,
	}
	if up != prev.Up {
		m.state.LastChange = time.Now()
	}
	m.mu.Unlock()

	switch {
	case up && !prev.Up:
		atomic.AddInt64(&m.transitions, 1)
		if m.callbacks.OnLinkUp != nil {
			m.callbacks.OnLinkUp(id)
		}
	case !up && prev.Up:
		atomic.AddInt64(&m.transitions, 1)
		if m.callbacks.OnLinkDown != nil {
			m.callbacks.OnLinkDown()
		}
	case up && id != prev.ID:
		if m.callbacks.OnIdentityChanged != nil {
			m.callbacks.OnIdentityChanged(id)
		}
	}

	if up && (maxPayload != prev.MaxPayload || maxRequest != prev.MaxRequest) {
		if m.callbacks.OnSizesChanged != nil {
			m.callbacks.OnSizesChanged(maxPayload, maxRequest)
		}
	}
}

// State returns the last observed link state
func (m *Monitor) State() LinkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetMetrics returns a snapshot of the monitor's counters
func (m *Monitor) GetMetrics() Metrics {
	return Metrics{
		PollCycles:  atomic.LoadInt64(&m.pollCycles),
		Transitions: atomic.LoadInt64(&m.transitions),
	}
}
