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

import "time"

// Option is a functional option for configuring a PHY
type Option func(*PHY) error

// WithAppWidth sets the application-side unit width in bytes
func WithAppWidth(width int) Option {
	return func(p *PHY) error {
		p.cfg.AppWidth = width
		return nil
	}
}

// WithSpeed sets the link speed class
func WithSpeed(speed Speed) Option {
	return func(p *PHY) error {
		p.cfg.Speed = speed
		return nil
	}
}

// WithVariant selects the hard-IP profile flavor
func WithVariant(variant Variant) Option {
	return func(p *PHY) error {
		p.cfg.Variant = variant
		return nil
	}
}

// WithEventQueueDepth sets the notification queue capacity, which must
// be a power of two
func WithEventQueueDepth(depth int) Option {
	return func(p *PHY) error {
		p.cfg.EventQueueDepth = depth
		return nil
	}
}

// WithSizeCeiling caps the negotiated size limits in bytes
func WithSizeCeiling(ceiling uint32) Option {
	return func(p *PHY) error {
		p.cfg.SizeCeiling = ceiling
		return nil
	}
}

// WithBAR0Size sets the BAR0 aperture size in bytes
func WithBAR0Size(size uint64) Option {
	return func(p *PHY) error {
		p.cfg.BAR0Size = size
		return nil
	}
}

// WithSharedDomain declares the application and device ends share one
// domain, eliding the notification queue crossing
func WithSharedDomain() Option {
	return func(p *PHY) error {
		p.cfg.SharedDomain = true
		return nil
	}
}

// WithStatusInterval sets the device status sampling period
func WithStatusInterval(interval time.Duration) Option {
	return func(p *PHY) error {
		p.cfg.StatusInterval = interval
		return nil
	}
}

// WithErrorHandler installs a handler for datapath errors. Protocol
// violations are delivered here; they are never silently dropped.
func WithErrorHandler(handler func(error)) Option {
	return func(p *PHY) error {
		if handler == nil {
			return NewConfigError("ErrorHandler", nil, "handler must not be nil")
		}
		p.onError = handler
		return nil
	}
}

// WithConfig replaces the entire configuration. Later options still
// apply on top of it.
func WithConfig(cfg Config) Option {
	return func(p *PHY) error {
		p.cfg = cfg
		return nil
	}
}
