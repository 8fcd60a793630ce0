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

import "sync/atomic"

// Sync relays a value written in one domain so another domain can read
// it without ever observing a torn intermediate. The reader sees a value
// that was current in the writer's domain at some past instant; the
// propagation delay is small and bounded but not zero.
//
// Exactly one domain may call Store. Load is safe from any other domain.
// Separate Sync instances carry no cross-instance ordering: two fields
// relayed independently need not become visible together, so consumers
// must not assume simultaneity across them.
type Sync[T any] struct {
	cell atomic.Pointer[T]
}

// Store publishes v. Only the owning domain may call Store.
func (s *Sync[T]) Store(v T) {
	s.cell.Store(&v)
}

// Load returns the most recently published value visible to the caller's
// domain, or the zero value before the first Store
func (s *Sync[T]) Load() T {
	if p := s.cell.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// LoadOK is Load plus a flag reporting whether a Store has become visible
func (s *Sync[T]) LoadOK() (T, bool) {
	if p := s.cell.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}
