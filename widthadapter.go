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
	"errors"
	"fmt"
)

// Converter reshapes a frame stream from one unit width to another while
// preserving byte content, frame boundaries and validity semantics
// exactly. It is a pure same-domain transformation: each Push retires
// one input unit and yields every output unit that input makes emittable,
// holding at most one partially-filled output unit of state.
//
// Converter is not safe for concurrent use; it belongs to exactly one
// domain. Use Adapter to pump one between two streams.
type Converter struct {
	acc      []byte
	inWidth  int
	outWidth int
	fill     int
	inFrame  bool
	accFirst bool
}

// NewConverter creates a width converter between the given unit widths
// in bytes
func NewConverter(inWidth, outWidth int) (*Converter, error) {
	if !ValidUnitWidth(inWidth) {
		return nil, NewConfigError("inWidth", inWidth, "unit width must be 8, 16, 32 or 64 bytes")
	}
	if !ValidUnitWidth(outWidth) {
		return nil, NewConfigError("outWidth", outWidth, "unit width must be 8, 16, 32 or 64 bytes")
	}
	c := &Converter{inWidth: inWidth, outWidth: outWidth}
	if outWidth > inWidth {
		c.acc = make([]byte, outWidth)
	}
	return c, nil
}

// InWidth returns the input unit width in bytes
func (c *Converter) InWidth() int { return c.inWidth }

// OutWidth returns the output unit width in bytes
func (c *Converter) OutWidth() int { return c.outWidth }

// Idle reports whether the converter holds no partial frame state
func (c *Converter) Idle() bool { return !c.inFrame && c.fill == 0 }

// Push retires one input unit and returns the output units it completes,
// in order. A nil slice means the unit was absorbed into the pending
// accumulator. Protocol violations are fatal: the converter must be
// discarded once Push returns an error.
func (c *Converter) Push(u Unit) ([]Unit, error) {
	const op = "Converter.Push"

	if err := checkUnit(op, c.inWidth, u); err != nil {
		return nil, err
	}
	if !c.inFrame && !u.First {
		return nil, NewProtocolError(op, "unit without First outside a frame", ErrFrameCorrupted)
	}
	if c.inFrame && u.First {
		return nil, NewProtocolError(op, "First flag inside a frame", ErrFrameCorrupted)
	}
	c.inFrame = !u.Last

	switch {
	case c.outWidth > c.inWidth:
		return c.pushWiden(u), nil
	case c.outWidth < c.inWidth:
		return c.pushNarrow(u), nil
	default:
		return []Unit{u}, nil
	}
}

// pushWiden accumulates input units into a wide output unit, emitting it
// when full or frame-terminal.
func (c *Converter) pushWiden(u Unit) []Unit {
	if c.fill == 0 {
		c.accFirst = u.First
	}
	n := u.ValidLen()
	copy(c.acc[c.fill:], u.Data[:n])
	c.fill += n

	if !u.Last && c.fill < c.outWidth {
		return nil
	}

	out := Unit{
		Data:  make([]byte, c.outWidth),
		Mask:  FullMask(c.fill),
		First: c.accFirst,
		Last:  u.Last,
	}
	copy(out.Data, c.acc[:c.fill])
	c.fill = 0
	c.accFirst = false
	return []Unit{out}
}

// pushNarrow splits a wide input unit into narrow output units in byte
// order. Sub-units beyond the final valid byte are not emitted.
func (c *Converter) pushNarrow(u Unit) []Unit {
	n := u.ValidLen()
	count := (n + c.outWidth - 1) / c.outWidth
	out := make([]Unit, 0, count)
	for j := 0; j < count; j++ {
		lo := j * c.outWidth
		hi := lo + c.outWidth
		if hi > n {
			hi = n
		}
		sub := Unit{
			Data:  make([]byte, c.outWidth),
			Mask:  FullMask(hi - lo),
			First: u.First && j == 0,
			Last:  u.Last && j == count-1,
		}
		copy(sub.Data, u.Data[lo:hi])
		out = append(out, sub)
	}
	return out
}

// Adapter pumps a width conversion between an input and an output stream
// within a single domain. It accepts an input unit only once every output
// unit of the previous input has been retired downstream, so backpressure
// propagates with at most one unit of slack.
type Adapter struct {
	in   *Stream
	out  *Stream
	conv *Converter
}

// NewAdapter creates a width adapter pumping in to out
func NewAdapter(in, out *Stream) (*Adapter, error) {
	conv, err := NewConverter(in.Width(), out.Width())
	if err != nil {
		return nil, err
	}
	return &Adapter{in: in, out: out, conv: conv}, nil
}

// Run pumps units until the input stream closes or the context ends.
// The output stream is closed on return. A protocol violation stops the
// pump and is returned; it is never silently absorbed.
func (a *Adapter) Run(ctx context.Context) error {
	defer a.out.Close()

	for {
		u, err := a.in.Recv(ctx)
		if errors.Is(err, ErrStreamClosed) {
			if !a.conv.Idle() {
				return NewProtocolError("Adapter.Run", "input closed mid-frame", ErrFrameCorrupted)
			}
			return nil
		}
		if err != nil {
			return err
		}

		outs, err := a.conv.Push(u)
		if err != nil {
			return fmt.Errorf("width adapter %d->%d: %w", a.in.Width(), a.out.Width(), err)
		}
		for i := range outs {
			if err := a.out.Send(ctx, outs[i]); err != nil {
				return err
			}
		}
	}
}
