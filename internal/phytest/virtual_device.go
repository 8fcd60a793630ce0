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

// Package phytest provides an in-process virtual link device for tests
// and the bundled tools.
package phytest

import (
	"context"
	"encoding/binary"
	"sync"

	phylink "github.com/phylink/go-phylink"
)

// VirtualDevice simulates a link device: it consumes egress request
// frames and echoes their payload back as ingress completions, records
// notification vectors, and publishes a scriptable status snapshot.
type VirtualDevice struct {
	reqSink   *phylink.Stream
	cmpSink   *phylink.Stream
	reqSource *phylink.Stream
	cmpSource *phylink.Stream
	msiSink   *phylink.Stream

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	status   phylink.DeviceStatus
	requests [][]byte // payloads of egress request frames
	egress   [][]byte // payloads of egress completion frames
	msi      []uint32

	width int
	lanes int
	echo  bool
}

// New creates and starts a virtual device with the given unit width and
// lane count. The device echoes request payloads back on its completion
// source until Close is called.
func New(width, lanes int) (*VirtualDevice, error) {
	d := &VirtualDevice{
		width: width,
		lanes: lanes,
		echo:  true,
		status: phylink.DeviceStatus{
			LinkUp:         true,
			MSIEnabled:     true,
			FunctionStatus: 0x0004, // bus mastering on
			MaxPayloadCode: 1,
			MaxRequestCode: 2,
			SerialNumber:   0x001000ee00000001,
			Identity:       phylink.Identity{Bus: 0x01, Device: 0x00, Function: 0x00},
		},
	}

	var err error
	if d.reqSink, err = phylink.NewStream(width); err != nil {
		return nil, err
	}
	if d.cmpSink, err = phylink.NewStream(width); err != nil {
		return nil, err
	}
	if d.reqSource, err = phylink.NewStream(width); err != nil {
		return nil, err
	}
	if d.cmpSource, err = phylink.NewStream(width); err != nil {
		return nil, err
	}
	if d.msiSink, err = phylink.NewStream(phylink.MSIWidth); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(3)
	go d.consumeRequests(ctx)
	go d.consumeCompletions(ctx)
	go d.consumeMSI(ctx)
	return d, nil
}

// SetEcho controls whether request payloads are echoed back as
// completions
func (d *VirtualDevice) SetEcho(echo bool) {
	d.mu.Lock()
	d.echo = echo
	d.mu.Unlock()
}

func (d *VirtualDevice) consumeRequests(ctx context.Context) {
	defer d.wg.Done()
	for {
		frame, err := d.reqSink.RecvFrame(ctx)
		if err != nil {
			return
		}
		payload := phylink.FramePayload(frame)

		d.mu.Lock()
		d.requests = append(d.requests, payload)
		echo := d.echo
		d.mu.Unlock()

		if echo {
			back, err := phylink.BuildFrame(d.width, payload)
			if err != nil {
				continue
			}
			if err := d.cmpSource.SendFrame(ctx, back); err != nil {
				return
			}
		}
	}
}

func (d *VirtualDevice) consumeCompletions(ctx context.Context) {
	defer d.wg.Done()
	for {
		frame, err := d.cmpSink.RecvFrame(ctx)
		if err != nil {
			return
		}
		d.mu.Lock()
		d.egress = append(d.egress, phylink.FramePayload(frame))
		d.mu.Unlock()
	}
}

func (d *VirtualDevice) consumeMSI(ctx context.Context) {
	defer d.wg.Done()
	for {
		u, err := d.msiSink.Recv(ctx)
		if err != nil {
			return
		}
		d.mu.Lock()
		d.msi = append(d.msi, binary.LittleEndian.Uint32(u.Data))
		d.mu.Unlock()
	}
}

// InjectRequest sends a frame on the ingress request source, as if the
// link partner issued a request
func (d *VirtualDevice) InjectRequest(ctx context.Context, payload []byte) error {
	frame, err := phylink.BuildFrame(d.width, payload)
	if err != nil {
		return err
	}
	return d.reqSource.SendFrame(ctx, frame)
}

// Requests returns the payloads of all egress request frames received
func (d *VirtualDevice) Requests() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.requests))
	copy(out, d.requests)
	return out
}

// Completions returns the payloads of all egress completion frames
// received
func (d *VirtualDevice) Completions() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.egress))
	copy(out, d.egress)
	return out
}

// MSIVectors returns every notification vector received so far
func (d *VirtualDevice) MSIVectors() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint32, len(d.msi))
	copy(out, d.msi)
	return out
}

// SetStatus replaces the published status snapshot
func (d *VirtualDevice) SetStatus(st phylink.DeviceStatus) {
	d.mu.Lock()
	d.status = st
	d.mu.Unlock()
}

// SetLinkUp toggles the link-up bit of the published status
func (d *VirtualDevice) SetLinkUp(up bool) {
	d.mu.Lock()
	d.status.LinkUp = up
	d.mu.Unlock()
}

// SetIdentity updates the identity sub-fields of the published status
func (d *VirtualDevice) SetIdentity(id phylink.Identity) {
	d.mu.Lock()
	d.status.Identity = id
	d.mu.Unlock()
}

// RequestSink implements phylink.Device
func (d *VirtualDevice) RequestSink() *phylink.Stream { return d.reqSink }

// CompletionSink implements phylink.Device
func (d *VirtualDevice) CompletionSink() *phylink.Stream { return d.cmpSink }

// RequestSource implements phylink.Device
func (d *VirtualDevice) RequestSource() *phylink.Stream { return d.reqSource }

// CompletionSource implements phylink.Device
func (d *VirtualDevice) CompletionSource() *phylink.Stream { return d.cmpSource }

// MSISink implements phylink.Device
func (d *VirtualDevice) MSISink() *phylink.Stream { return d.msiSink }

// Width implements phylink.Device
func (d *VirtualDevice) Width() int { return d.width }

// Lanes implements phylink.Device
func (d *VirtualDevice) Lanes() int { return d.lanes }

// Status implements phylink.Device
func (d *VirtualDevice) Status() phylink.DeviceStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Type implements phylink.Device
func (*VirtualDevice) Type() phylink.DeviceType { return phylink.DeviceVirtual }

// HasCapability reports virtual-device capabilities: status reads are
// memory-only, so fast polling is fine
func (*VirtualDevice) HasCapability(capability phylink.DeviceCapability) bool {
	return capability == phylink.CapabilityStatusPush
}

// Close stops the device loops
func (d *VirtualDevice) Close() error {
	d.cancel()
	d.wg.Wait()
	return nil
}

// Compile-time interface check
var _ phylink.Device = (*VirtualDevice)(nil)
