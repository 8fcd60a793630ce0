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

import (
	"context"
)

// DefaultQueueDepth is the queue capacity used for the MSI/event stream.
const DefaultQueueDepth = 4

// AsyncQueue moves units between two independently progressing domains:
// a single producer and a single consumer with no shared notion of
// simultaneity. No unit is duplicated or lost and FIFO order is exact.
//
// The ring uses free-running indexes: the slot is index mod capacity and
// the surplus high bits disambiguate wrap, so a full queue (w-r == cap)
// is never confused with an empty one (w == r). Each side owns its index
// and sees the other side's only through a Sync relay, published after
// the slot access it covers, so "not empty" is never reported before the
// write is visible and "not full" never before the read is.
type AsyncQueue struct {
	buf      []Unit
	notFull  chan struct{}
	notEmpty chan struct{}

	// widx is owned by the producer, ridx by the consumer. The local
	// copies avoid re-reading our own relay.
	widx Sync[uint32]
	ridx Sync[uint32]
	w    uint32
	r    uint32
}

// NewAsyncQueue creates a queue with the given capacity, which must be a
// power of two so index-wrap arithmetic stays exact
func NewAsyncQueue(capacity int) (*AsyncQueue, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, NewConfigError("capacity", capacity, "queue capacity must be a power of two")
	}
	return &AsyncQueue{
		buf:      make([]Unit, capacity),
		notFull:  make(chan struct{}, 1),
		notEmpty: make(chan struct{}, 1),
	}, nil
}

// Cap returns the queue capacity
func (q *AsyncQueue) Cap() int { return len(q.buf) }

// Len returns the number of queued units as seen by the caller. Producer
// and consumer may see momentarily different (but never overstated)
// counts.
func (q *AsyncQueue) Len() int {
	return int(q.widx.Load() - q.ridx.Load())
}

// Full reports whether the producer would find the queue full
func (q *AsyncQueue) Full() bool {
	return q.w-q.ridx.Load() == uint32(len(q.buf))
}

// Empty reports whether the consumer would find the queue empty
func (q *AsyncQueue) Empty() bool {
	return q.widx.Load() == q.r
}

// TryPush appends a unit if space is visible to the producer. Only the
// producer domain may call it.
func (q *AsyncQueue) TryPush(u Unit) bool {
	if q.w-q.ridx.Load() == uint32(len(q.buf)) {
		return false
	}
	q.buf[q.w&uint32(len(q.buf)-1)] = u
	q.w++
	// Publish after the slot write so the consumer never sees the index
	// ahead of the data.
	q.widx.Store(q.w)

	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
	return true
}

// TryPop removes the oldest unit if one is visible to the consumer. Only
// the consumer domain may call it.
func (q *AsyncQueue) TryPop() (Unit, bool) {
	if q.widx.Load() == q.r {
		return Unit{}, false
	}
	u := q.buf[q.r&uint32(len(q.buf)-1)]
	q.buf[q.r&uint32(len(q.buf)-1)] = Unit{}
	q.r++
	q.ridx.Store(q.r)

	select {
	case q.notFull <- struct{}{}:
	default:
	}
	return u, true
}

// Push blocks until the unit is queued or the context ends
func (q *AsyncQueue) Push(ctx context.Context, u Unit) error {
	for {
		if q.TryPush(u) {
			return nil
		}
		select {
		case <-q.notFull:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Pop blocks until a unit is available or the context ends
func (q *AsyncQueue) Pop(ctx context.Context) (Unit, error) {
	for {
		if u, ok := q.TryPop(); ok {
			return u, nil
		}
		select {
		case <-q.notEmpty:
		case <-ctx.Done():
			return Unit{}, ctx.Err()
		}
	}
}
