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

// Package spi bridges a remote link device over an SPI bus. The host is
// the bus master, so a poll loop clocks exchanges continuously: pending
// wire frames travel out on MOSI while MISO bytes feed the decoder.
package spi

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	phylink "github.com/phylink/go-phylink"
	"github.com/phylink/go-phylink/internal/wire"
)

const (
	// Max clock frequency (10 MHz).
	maxClockFreq = 10 * physic.MegaHertz

	// idleByte fills MOSI when the host has nothing to send. It never
	// matches the wire start code, so the remote decoder skips it.
	idleByte = 0xAA

	// exchangeSize is the fixed full-duplex transfer length.
	exchangeSize = wire.MaxDataLength + wire.MinWireLength

	defaultPollInterval = 500 * time.Microsecond
)

// Device bridges a remote link device over SPI and implements
// phylink.Device
type Device struct {
	conn    spi.Conn
	port    spi.PortCloser
	busName string

	reqSink   *phylink.Stream
	cmpSink   *phylink.Stream
	reqSource *phylink.Stream
	cmpSource *phylink.Stream
	msiSink   *phylink.Stream

	outbound chan []byte
	pending  []byte // tail of a frame split at an exchange boundary; pollLoop only

	statusMu sync.RWMutex
	status   phylink.DeviceStatus

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	width        int
	lanes        int
	pollInterval time.Duration
}

// Option is a functional option for configuring the bridge
type Option func(*Device) error

// WithWidth sets the remote device's unit width in bytes
func WithWidth(width int) Option {
	return func(d *Device) error {
		if !phylink.ValidUnitWidth(width) {
			return phylink.NewConfigError("Width", width, "unit width must be 8, 16, 32 or 64 bytes")
		}
		d.width = width
		return nil
	}
}

// WithLanes sets the remote device's lane count
func WithLanes(lanes int) Option {
	return func(d *Device) error {
		d.lanes = lanes
		return nil
	}
}

// WithPollInterval sets the bus poll period
func WithPollInterval(interval time.Duration) Option {
	return func(d *Device) error {
		if interval <= 0 {
			return phylink.NewConfigError("PollInterval", interval, "poll interval must be positive")
		}
		d.pollInterval = interval
		return nil
	}
}

// WithConn injects an already-connected SPI connection, used by tests
func WithConn(conn spi.Conn) Option {
	return func(d *Device) error {
		d.conn = conn
		return nil
	}
}

// New opens the SPI bus and starts the bridge
func New(busName string, opts ...Option) (*Device, error) {
	d := &Device{
		busName:      busName,
		width:        8,
		lanes:        4,
		pollInterval: defaultPollInterval,
		outbound:     make(chan []byte, 16),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	if d.conn == nil {
		if _, err := host.Init(); err != nil {
			return nil, phylink.NewTransportError("init", busName, err, phylink.ErrorTypePermanent)
		}
		port, err := spireg.Open(busName)
		if err != nil {
			return nil, phylink.NewTransportError("open", busName, err, phylink.ErrorTypePermanent)
		}
		conn, err := port.Connect(maxClockFreq, spi.Mode0, 8)
		if err != nil {
			_ = port.Close()
			return nil, phylink.NewTransportError("connect", busName, err, phylink.ErrorTypePermanent)
		}
		d.port = port
		d.conn = conn
	}

	if err := d.initStreams(); err != nil {
		if d.port != nil {
			_ = d.port.Close()
		}
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	rxReader, rxWriter := io.Pipe()

	d.wg.Add(5)
	go d.pollLoop(ctx, rxWriter)
	go d.decodeLoop(ctx, rxReader)
	go d.writeLoop(ctx, wire.StreamRequest, d.reqSink)
	go d.writeLoop(ctx, wire.StreamCompletion, d.cmpSink)
	go d.writeLoop(ctx, wire.StreamMSI, d.msiSink)
	return d, nil
}

func (d *Device) initStreams() error {
	var err error
	if d.reqSink, err = phylink.NewStream(d.width); err != nil {
		return err
	}
	if d.cmpSink, err = phylink.NewStream(d.width); err != nil {
		return err
	}
	if d.reqSource, err = phylink.NewStream(d.width); err != nil {
		return err
	}
	if d.cmpSource, err = phylink.NewStream(d.width); err != nil {
		return err
	}
	d.msiSink, err = phylink.NewStream(phylink.MSIWidth)
	return err
}

// pollLoop clocks fixed-size full-duplex exchanges: pending outbound
// wire frames (or idle fill) go out while received bytes feed the
// decoder pipe.
func (d *Device) pollLoop(ctx context.Context, rx *io.PipeWriter) {
	defer d.wg.Done()
	defer rx.Close()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tx := d.nextExchange()
		buf := make([]byte, len(tx))
		if err := d.conn.Tx(tx, buf); err != nil {
			return
		}
		if _, err := rx.Write(buf); err != nil {
			return
		}
	}
}

// nextExchange builds one exchange buffer: a poll frame leads so the
// remote clocks out pending data, queued outbound frames follow, idle
// fill pads the rest. A frame that does not fit is split at the
// exchange boundary and its tail opens the next exchange; the poll is
// withheld then, since any byte injected mid-frame would corrupt it.
func (d *Device) nextExchange() []byte {
	tx := make([]byte, 0, exchangeSize)

	if len(d.pending) > 0 {
		n := exchangeSize
		if n > len(d.pending) {
			n = len(d.pending)
		}
		tx = append(tx, d.pending[:n]...)
		d.pending = d.pending[n:]
	} else {
		tx = append(tx, wire.Encode(wire.PollMessage())...)
	}

	for len(tx) < exchangeSize {
		select {
		case frame := <-d.outbound:
			if room := exchangeSize - len(tx); len(frame) > room {
				tx = append(tx, frame[:room]...)
				d.pending = frame[room:]
				return tx
			}
			tx = append(tx, frame...)
		default:
			tx = append(tx, idleByte)
		}
	}
	return tx
}

// decodeLoop parses received bytes and dispatches messages, exactly as
// the serial bridge does.
func (d *Device) decodeLoop(ctx context.Context, rx *io.PipeReader) {
	defer d.wg.Done()
	defer rx.Close()
	dec := wire.NewDecoder(rx)
	for {
		msg, err := dec.Next()
		if errors.Is(err, phylink.ErrChecksumMismatch) || errors.Is(err, phylink.ErrFrameCorrupted) {
			continue
		}
		if err != nil {
			return
		}

		switch msg.Type {
		case wire.MsgUnit:
			d.dispatchUnit(ctx, msg)
		case wire.MsgStatus:
			st, err := msg.Status()
			if err != nil {
				continue
			}
			d.statusMu.Lock()
			d.status = st
			d.statusMu.Unlock()
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (d *Device) dispatchUnit(ctx context.Context, msg wire.Message) {
	u, err := msg.Unit(d.width)
	if err != nil {
		return
	}
	switch msg.Stream {
	case wire.StreamRequest:
		_ = d.reqSource.Send(ctx, u)
	case wire.StreamCompletion:
		_ = d.cmpSource.Send(ctx, u)
	}
}

// writeLoop drains one host-side sink stream into the outbound queue
func (d *Device) writeLoop(ctx context.Context, stream byte, s *phylink.Stream) {
	defer d.wg.Done()
	for {
		u, err := s.Recv(ctx)
		if err != nil {
			return
		}
		select {
		case d.outbound <- wire.Encode(wire.UnitMessage(stream, u)):
		case <-ctx.Done():
			return
		}
	}
}

// RequestSink implements phylink.Device
func (d *Device) RequestSink() *phylink.Stream { return d.reqSink }

// CompletionSink implements phylink.Device
func (d *Device) CompletionSink() *phylink.Stream { return d.cmpSink }

// RequestSource implements phylink.Device
func (d *Device) RequestSource() *phylink.Stream { return d.reqSource }

// CompletionSource implements phylink.Device
func (d *Device) CompletionSource() *phylink.Stream { return d.cmpSource }

// MSISink implements phylink.Device
func (d *Device) MSISink() *phylink.Stream { return d.msiSink }

// Width implements phylink.Device
func (d *Device) Width() int { return d.width }

// Lanes implements phylink.Device
func (d *Device) Lanes() int { return d.lanes }

// Status implements phylink.Device
func (d *Device) Status() phylink.DeviceStatus {
	d.statusMu.RLock()
	defer d.statusMu.RUnlock()
	return d.status
}

// Type implements phylink.Device
func (*Device) Type() phylink.DeviceType { return phylink.DeviceSPI }

// HasCapability reports bridge capabilities. Status snapshots arrive
// only as often as the poll loop runs, so Status() should be sampled
// conservatively.
func (*Device) HasCapability(phylink.DeviceCapability) bool {
	return false
}

// Close stops the bridge and releases the bus
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.cancel()
		if d.port != nil {
			err = d.port.Close()
		}
		d.wg.Wait()
	})
	return err
}

// Compile-time interface check
var _ phylink.Device = (*Device)(nil)
