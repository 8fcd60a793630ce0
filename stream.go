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
	"sync"
)

// Stream is a unidirectional frame stream at a fixed unit width.
//
// Transfers follow a two-signal handshake: a unit moves only when the
// producer has offered it and the consumer is ready to take it, which an
// unbuffered channel rendezvous gives exactly. A producer cannot retract
// an offered unit; Send blocks until the unit is accepted, the stream is
// closed, or the context ends.
//
// A Stream has exactly one producer and one consumer. Only the producer
// may call Close.
type Stream struct {
	ch        chan Unit
	done      chan struct{}
	closeOnce sync.Once
	width     int
}

// NewStream creates a stream with the given unit width in bytes
func NewStream(width int) (*Stream, error) {
	if !ValidUnitWidth(width) {
		return nil, NewConfigError("width", width, "unit width must be 8, 16, 32 or 64 bytes")
	}
	return &Stream{
		width: width,
		ch:    make(chan Unit),
		done:  make(chan struct{}),
	}, nil
}

// Width returns the stream's unit width in bytes
func (s *Stream) Width() int { return s.width }

// Send offers a unit and blocks until it is accepted downstream
func (s *Stream) Send(ctx context.Context, u Unit) error {
	if len(u.Data) != s.width {
		return NewProtocolError("Send", "unit width does not match stream width", nil)
	}
	select {
	case s.ch <- u:
		return nil
	case <-s.done:
		return ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks until a unit is offered upstream and accepts it
func (s *Stream) Recv(ctx context.Context) (Unit, error) {
	select {
	case u := <-s.ch:
		return u, nil
	case <-s.done:
		return Unit{}, ErrStreamClosed
	case <-ctx.Done():
		return Unit{}, ctx.Err()
	}
}

// TrySend offers a unit only if a consumer is ready this instant.
// It reports whether the transfer happened.
func (s *Stream) TrySend(u Unit) bool {
	if len(u.Data) != s.width {
		return false
	}
	select {
	case s.ch <- u:
		return true
	default:
		return false
	}
}

// TryRecv accepts a unit only if a producer is offering one this instant
func (s *Stream) TryRecv() (Unit, bool) {
	select {
	case u := <-s.ch:
		return u, true
	default:
		return Unit{}, false
	}
}

// SendFrame sends every unit of a frame in order
func (s *Stream) SendFrame(ctx context.Context, f Frame) error {
	if err := ValidateFrame(s.width, f); err != nil {
		return err
	}
	for i := range f {
		if err := s.Send(ctx, f[i]); err != nil {
			return err
		}
	}
	return nil
}

// RecvFrame receives units until a Last unit completes the frame
func (s *Stream) RecvFrame(ctx context.Context) (Frame, error) {
	var f Frame
	for {
		u, err := s.Recv(ctx)
		if err != nil {
			return nil, err
		}
		if len(f) == 0 && !u.First {
			return nil, NewProtocolError("RecvFrame", "unit without First outside a frame", ErrFrameCorrupted)
		}
		if len(f) > 0 && u.First {
			return nil, NewProtocolError("RecvFrame", "First flag inside a frame", ErrFrameCorrupted)
		}
		f = append(f, u)
		if u.Last {
			return f, nil
		}
	}
}

// Close marks the stream closed. Receivers unblock with ErrStreamClosed.
// Only the producer may call Close; it is safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
