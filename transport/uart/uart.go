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

// Package uart bridges a remote link device over a serial port. Stream
// units and status snapshots travel in wire frames; the device end of
// the bridge runs on the far side of the serial link.
package uart

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	phylink "github.com/phylink/go-phylink"
	"github.com/phylink/go-phylink/internal/transport"
	"github.com/phylink/go-phylink/internal/wire"
)

const (
	defaultBaudRate = 115200

	// Port opens are retried briefly: udev can hold a freshly
	// enumerated port exclusively for a moment.
	openRetries    = 3
	openRetryDelay = 100 * time.Millisecond
)

// Device bridges a remote link device over a serial port and implements
// phylink.Device
type Device struct {
	port     io.ReadWriteCloser
	portName string

	reqSink   *phylink.Stream
	cmpSink   *phylink.Stream
	reqSource *phylink.Stream
	cmpSource *phylink.Stream
	msiSink   *phylink.Stream

	statusMu sync.RWMutex
	status   phylink.DeviceStatus

	writeMu   sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	width int
	lanes int
	baud  int
}

// Option is a functional option for configuring the bridge
type Option func(*Device) error

// WithBaudRate sets the serial baud rate
func WithBaudRate(baud int) Option {
	return func(d *Device) error {
		if baud <= 0 {
			return phylink.NewConfigError("BaudRate", baud, "baud rate must be positive")
		}
		d.baud = baud
		return nil
	}
}

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

// WithPort injects an already-open port, used by tests
func WithPort(port io.ReadWriteCloser) Option {
	return func(d *Device) error {
		d.port = port
		return nil
	}
}

// New opens the serial port and starts the bridge
func New(portName string, opts ...Option) (*Device, error) {
	d := &Device{
		portName: portName,
		width:    8,
		lanes:    4,
		baud:     defaultBaudRate,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	if d.port == nil {
		port, err := transport.WithRetry(context.Background(), transport.RetryConfig{
			Description: portName,
			MaxRetries:  openRetries,
			RetryDelay:  openRetryDelay,
		}, func() (serial.Port, bool, error) {
			port, err := serial.Open(portName, &serial.Mode{BaudRate: d.baud})
			if err != nil {
				var portErr *serial.PortError
				if errors.As(err, &portErr) && portErr.Code() == serial.PortBusy {
					return nil, true, nil
				}
				return nil, false, phylink.NewTransportError("open", portName, err, phylink.ErrorTypePermanent)
			}
			return port, false, nil
		})
		if err != nil {
			return nil, err
		}
		d.port = port
	}

	if err := d.initStreams(); err != nil {
		_ = d.port.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(4)
	go d.readLoop(ctx)
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

// readLoop decodes wire frames from the port and dispatches them.
// Backpressure propagates naturally: a stalled source stream stalls the
// decoder, which stalls the remote end's writes.
func (d *Device) readLoop(ctx context.Context) {
	defer d.wg.Done()
	dec := wire.NewDecoder(d.port)
	for {
		msg, err := dec.Next()
		if errors.Is(err, phylink.ErrChecksumMismatch) || errors.Is(err, phylink.ErrFrameCorrupted) {
			// Resynchronize on the next start code.
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

// writeLoop drains one host-side sink stream onto the wire
func (d *Device) writeLoop(ctx context.Context, stream byte, s *phylink.Stream) {
	defer d.wg.Done()
	for {
		u, err := s.Recv(ctx)
		if err != nil {
			return
		}
		if err := d.writeMessage(wire.UnitMessage(stream, u)); err != nil {
			return
		}
	}
}

func (d *Device) writeMessage(msg wire.Message) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if _, err := d.port.Write(wire.Encode(msg)); err != nil {
		return phylink.NewTransportError("write", d.portName, err, phylink.ErrorTypeTransient)
	}
	return nil
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
func (*Device) Type() phylink.DeviceType { return phylink.DeviceUART }

// HasCapability reports bridge capabilities: the remote end pushes
// status snapshots, so Status() never touches the wire
func (*Device) HasCapability(capability phylink.DeviceCapability) bool {
	return capability == phylink.CapabilityStatusPush
}

// Close stops the bridge and closes the port
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.cancel()
		err = d.port.Close()
		d.wg.Wait()
	})
	return err
}

// Compile-time interface check
var _ phylink.Device = (*Device)(nil)
