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

package uart

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phylink "github.com/phylink/go-phylink"
	"github.com/phylink/go-phylink/internal/wire"
)

// fakePort is an in-memory stand-in for a serial port: reads come from a
// pipe the test feeds, writes are captured for inspection.
type fakePort struct {
	rx *io.PipeReader

	mu sync.Mutex
	tx bytes.Buffer
}

func newFakePort() (*fakePort, *io.PipeWriter) {
	r, w := io.Pipe()
	return &fakePort{rx: r}, w
}

func (p *fakePort) Read(b []byte) (int, error) { return p.rx.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tx.Write(b)
}

func (p *fakePort) Close() error { return p.rx.Close() }

func (p *fakePort) written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, p.tx.Len())
	copy(out, p.tx.Bytes())
	return out
}

func newTestDevice(t *testing.T) (*Device, *fakePort, *io.PipeWriter) {
	t.Helper()

	port, feed := newFakePort()
	dev, err := New("fake", WithPort(port))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = feed.Close()
		_ = dev.Close()
	})
	return dev, port, feed
}

func fullUnit(fill byte) phylink.Unit {
	return phylink.Unit{
		Data:  bytes.Repeat([]byte{fill}, 8),
		Mask:  phylink.FullMask(8),
		First: true,
		Last:  true,
	}
}

func TestNewOptionValidation(t *testing.T) {
	t.Parallel()

	port, _ := newFakePort()

	tests := []struct {
		name string
		opt  Option
	}{
		{name: "zero_baud", opt: WithBaudRate(0)},
		{name: "bad_width", opt: WithWidth(12)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New("fake", WithPort(port), tt.opt)
			require.Error(t, err)
			assert.Equal(t, phylink.ErrorTypeConfig, phylink.GetErrorType(err))
		})
	}
}

func TestDeviceProperties(t *testing.T) {
	t.Parallel()

	port, _ := newFakePort()
	dev, err := New("fake", WithPort(port), WithWidth(16), WithLanes(8))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })

	assert.Equal(t, 16, dev.Width())
	assert.Equal(t, 8, dev.Lanes())
	assert.Equal(t, phylink.DeviceUART, dev.Type())
	assert.True(t, dev.HasCapability(phylink.CapabilityStatusPush))
}

func TestIncomingUnitsDispatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dev, _, feed := newTestDevice(t)

	req := fullUnit(0x11)
	cmp := fullUnit(0x22)

	go func() {
		_, _ = feed.Write(wire.Encode(wire.UnitMessage(wire.StreamRequest, req)))
		_, _ = feed.Write(wire.Encode(wire.UnitMessage(wire.StreamCompletion, cmp)))
	}()

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	got, err := dev.RequestSource().Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, req, got)

	got, err = dev.CompletionSource().Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, cmp, got)
}

func TestIncomingStatusSnapshot(t *testing.T) {
	t.Parallel()

	dev, _, feed := newTestDevice(t)

	st := phylink.DeviceStatus{
		SerialNumber:   0xAA55AA55AA55AA55,
		FunctionStatus: 0x0004,
		Identity:       phylink.Identity{Bus: 3},
		MaxPayloadCode: 1,
		MaxRequestCode: 2,
		LinkUp:         true,
		MSIEnabled:     true,
	}

	go func() {
		_, _ = feed.Write(wire.Encode(wire.StatusMessage(st)))
	}()

	require.Eventually(t, func() bool {
		return dev.Status().LinkUp
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, st, dev.Status())
}

func TestOutgoingUnitsEncoded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dev, port, _ := newTestDevice(t)

	u := fullUnit(0x5A)
	require.NoError(t, dev.RequestSink().Send(ctx, u))

	// The write loop runs asynchronously; wait for the frame to land.
	var got phylink.Unit
	require.Eventually(t, func() bool {
		dec := wire.NewDecoder(bytes.NewReader(port.written()))
		m, err := dec.Next()
		if err != nil {
			return false
		}
		if m.Stream != wire.StreamRequest {
			return false
		}
		got, err = m.Unit(8)
		return err == nil
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, u, got)
}

func TestResyncAfterGarbage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dev, _, feed := newTestDevice(t)

	u := fullUnit(0x33)
	corrupted := wire.Encode(wire.UnitMessage(wire.StreamRequest, fullUnit(0x99)))
	corrupted[7] ^= 0x01

	go func() {
		_, _ = feed.Write([]byte{0xDE, 0xAD})
		_, _ = feed.Write(corrupted)
		_, _ = feed.Write(wire.Encode(wire.UnitMessage(wire.StreamRequest, u)))
	}()

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	got, err := dev.RequestSource().Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	port, _ := newFakePort()
	dev, err := New("fake", WithPort(port))
	require.NoError(t, err)

	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())
}
