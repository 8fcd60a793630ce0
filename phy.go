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
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// Speed represents the link generation/speed class
type Speed string

const (
	// SpeedGen2 selects a 5.0 GT/s link.
	SpeedGen2 Speed = "gen2"
	// SpeedGen3 selects an 8.0 GT/s link.
	SpeedGen3 Speed = "gen3"
	// SpeedGen4 selects a 16.0 GT/s link.
	SpeedGen4 Speed = "gen4"
)

// Variant selects the hard-IP profile flavor. Behavior is identical
// across variants; only the source profile the device is built from
// differs.
type Variant string

const (
	// VariantStandard is the plain UltraScale+ profile.
	VariantStandard Variant = "standard"
	// VariantHBM is the HBM-device profile.
	VariantHBM Variant = "hbm"
	// Variant19P is the 19-position profile.
	Variant19P Variant = "19p"
)

// Config captures every construction parameter of the PHY. It is
// validated eagerly, before any stream activity.
type Config struct {
	// AppWidth is the application-side unit width in bytes.
	AppWidth int
	// PhyWidth is the device-side unit width in bytes. It must match
	// the width the device reports.
	PhyWidth int
	// Lanes is the lane count: 1, 2, 4, 8 or 16.
	Lanes int
	// Speed is the link speed class.
	Speed Speed
	// Variant selects the hard-IP profile flavor.
	Variant Variant
	// EventQueueDepth is the notification queue capacity (power of two).
	EventQueueDepth int
	// SizeCeiling caps both negotiated size limits in bytes.
	SizeCeiling uint32
	// BAR0Size is the BAR0 aperture in bytes (power of two, >= 4 KiB).
	BAR0Size uint64
	// SharedDomain declares that the application and the device run in
	// the same domain, eliding the event queue crossing.
	SharedDomain bool
	// StatusInterval is the device status sampling period.
	StatusInterval time.Duration
}

// DefaultConfig returns a configuration derived from the device's
// reported width and lane count
func DefaultConfig(dev Device) Config {
	return Config{
		AppWidth:        dev.Width(),
		PhyWidth:        dev.Width(),
		Lanes:           dev.Lanes(),
		Speed:           SpeedGen2,
		Variant:         VariantStandard,
		EventQueueDepth: DefaultQueueDepth,
		SizeCeiling:     DefaultSizeCeiling,
		BAR0Size:        1 << 20,
		StatusInterval:  time.Millisecond,
	}
}

// Validate checks every field and reports the first offending parameter
func (c *Config) Validate() error {
	if !ValidUnitWidth(c.AppWidth) {
		return NewConfigError("AppWidth", c.AppWidth, "unit width must be 8, 16, 32 or 64 bytes")
	}
	if !ValidUnitWidth(c.PhyWidth) {
		return NewConfigError("PhyWidth", c.PhyWidth, "unit width must be 8, 16, 32 or 64 bytes")
	}
	switch c.Lanes {
	case 1, 2, 4, 8, 16:
	default:
		return NewConfigError("Lanes", c.Lanes, "lane count must be 1, 2, 4, 8 or 16")
	}
	switch c.Speed {
	case SpeedGen2, SpeedGen3, SpeedGen4:
	default:
		return NewConfigError("Speed", c.Speed, "speed must be gen2, gen3 or gen4")
	}
	switch c.Variant {
	case VariantStandard, VariantHBM, Variant19P:
	default:
		return NewConfigError("Variant", c.Variant, "unknown hard-IP variant")
	}
	if c.EventQueueDepth <= 0 || c.EventQueueDepth&(c.EventQueueDepth-1) != 0 {
		return NewConfigError("EventQueueDepth", c.EventQueueDepth, "queue depth must be a power of two")
	}
	if c.SizeCeiling == 0 {
		return NewConfigError("SizeCeiling", c.SizeCeiling, "size ceiling must be positive")
	}
	if _, err := BARMask(c.BAR0Size); err != nil {
		return err
	}
	if c.StatusInterval <= 0 {
		return NewConfigError("StatusInterval", c.StatusInterval, "status interval must be positive")
	}
	return nil
}

// ProfileName returns the hard-IP profile identifier for this
// configuration, e.g. "xilinx_usp_gen3_x8" or "xilinx_usp_hbm_gen3_x16"
func (c *Config) ProfileName() string {
	infix := ""
	switch c.Variant {
	case VariantHBM:
		infix = "_hbm"
	case Variant19P:
		infix = "_19p"
	case VariantStandard:
	}
	return fmt.Sprintf("xilinx_usp%s_%s_x%d", infix, c.Speed, c.Lanes)
}

// BARMask returns the address mask for a BAR aperture of the given size
func BARMask(size uint64) (uint32, error) {
	if size < 1<<12 || size > 1<<32 || size&(size-1) != 0 {
		return 0, NewConfigError("BAR0Size", size, "BAR size must be a power of two between 4 KiB and 4 GiB")
	}
	return uint32(^(size - 1)), nil
}

// PHY adapts the application-side frame streams to a link device: it
// width-converts the four datapaths, relays the device's status scalars
// into the application domain, and carries the notification stream into
// the device domain through a bounded queue. It owns no application
// data; it only wires the primitives together.
//
// The four app-side streams and the notification sink run at AppWidth
// (MSIWidth for notifications); the device side runs at the device's
// fixed width.
type PHY struct {
	dev Device
	cfg Config

	reqSink   *Stream // application -> device requests, app width
	cmpSink   *Stream // application -> device completions
	reqSource *Stream // device -> application requests
	cmpSource *Stream // device -> application completions
	msiSink   *Stream // application-side notification producer

	eventQueue *AsyncQueue

	linkUp     Sync[bool]
	msiEnabled Sync[bool]
	busMaster  Sync[bool]
	funcStatus Sync[uint16]
	maxRequest Sync[uint32]
	maxPayload Sync[uint32]
	serial     Sync[uint64]
	id         Sync[uint16]

	onError func(error)

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	started   bool
	closeOnce sync.Once
}

// New creates a PHY over the given device. Configuration violations are
// rejected here, before any stream activity.
func New(dev Device, opts ...Option) (*PHY, error) {
	p := &PHY{
		dev:     dev,
		cfg:     DefaultConfig(dev),
		onError: func(err error) { debugf("datapath error: %v", err) },
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	if p.cfg.PhyWidth != dev.Width() {
		return nil, NewConfigError("PhyWidth", p.cfg.PhyWidth,
			fmt.Sprintf("device reports unit width %d", dev.Width()))
	}
	if p.cfg.Lanes != dev.Lanes() {
		return nil, NewConfigError("Lanes", p.cfg.Lanes,
			fmt.Sprintf("device reports %d lanes", dev.Lanes()))
	}

	var err error
	if p.reqSink, err = NewStream(p.cfg.AppWidth); err != nil {
		return nil, err
	}
	if p.cmpSink, err = NewStream(p.cfg.AppWidth); err != nil {
		return nil, err
	}
	if p.reqSource, err = NewStream(p.cfg.AppWidth); err != nil {
		return nil, err
	}
	if p.cmpSource, err = NewStream(p.cfg.AppWidth); err != nil {
		return nil, err
	}
	if p.msiSink, err = NewStream(MSIWidth); err != nil {
		return nil, err
	}
	if !p.cfg.SharedDomain {
		if p.eventQueue, err = NewAsyncQueue(p.cfg.EventQueueDepth); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Config returns a copy of the effective configuration
func (p *PHY) Config() Config { return p.cfg }

// RequestSink is the application-side stream for egress requests
func (p *PHY) RequestSink() *Stream { return p.reqSink }

// CompletionSink is the application-side stream for egress completions
func (p *PHY) CompletionSink() *Stream { return p.cmpSink }

// RequestSource is the application-side stream for ingress requests
func (p *PHY) RequestSource() *Stream { return p.reqSource }

// CompletionSource is the application-side stream for ingress completions
func (p *PHY) CompletionSource() *Stream { return p.cmpSource }

// MSISink is the application-side notification producer stream
func (p *PHY) MSISink() *Stream { return p.msiSink }

// SendMSI queues one notification event carrying the given vector
func (p *PHY) SendMSI(ctx context.Context, vector uint32) error {
	u := Unit{Data: make([]byte, MSIWidth), Mask: FullMask(4), First: true, Last: true}
	binary.LittleEndian.PutUint32(u.Data, vector)
	return p.msiSink.Send(ctx, u)
}

// Start launches the datapath pumps and the status relay. It may be
// called once.
func (p *PHY) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return NewConfigError("Start", nil, "PHY already started")
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)

	p.pump(ctx, p.reqSink, p.dev.RequestSink())
	p.pump(ctx, p.cmpSink, p.dev.CompletionSink())
	p.pump(ctx, p.dev.RequestSource(), p.reqSource)
	p.pump(ctx, p.dev.CompletionSource(), p.cmpSource)
	p.startMSI(ctx)
	p.startStatus(ctx)
	return nil
}

// pump runs one width-adapter datapath in its own goroutine.
func (p *PHY) pump(ctx context.Context, in, out *Stream) {
	adapter, err := NewAdapter(in, out)
	if err != nil {
		// Widths were validated at construction; this cannot happen on a
		// validated PHY.
		panic(err)
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := adapter.Run(ctx); err != nil && ctx.Err() == nil {
			p.onError(err)
		}
	}()
}

// startMSI wires the notification stream to the device. With a shared
// domain the queue is elided and the stream passes straight through;
// otherwise the producer and consumer ends run as separate domains
// joined only by the queue.
func (p *PHY) startMSI(ctx context.Context) {
	if p.cfg.SharedDomain {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				u, err := p.msiSink.Recv(ctx)
				if err != nil {
					return
				}
				if err := p.dev.MSISink().Send(ctx, u); err != nil {
					return
				}
			}
		}()
		return
	}

	p.wg.Add(2)
	go func() { // application-domain end
		defer p.wg.Done()
		for {
			u, err := p.msiSink.Recv(ctx)
			if err != nil {
				return
			}
			if err := p.eventQueue.Push(ctx, u); err != nil {
				return
			}
		}
	}()
	go func() { // device-domain end
		defer p.wg.Done()
		for {
			u, err := p.eventQueue.Pop(ctx)
			if err != nil {
				return
			}
			if err := p.dev.MSISink().Send(ctx, u); err != nil {
				return
			}
		}
	}()
}

// startStatus samples the device status and publishes it through the
// relays. Backends whose Status() touches the wire are sampled no faster
// than every 5ms.
func (p *PHY) startStatus(ctx context.Context) {
	interval := p.cfg.StatusInterval
	if checker, ok := p.dev.(DeviceCapabilityChecker); !ok || !checker.HasCapability(CapabilityStatusPush) {
		if minInterval := 5 * time.Millisecond; interval < minInterval {
			interval = minInterval
		}
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		p.publishStatus(p.dev.Status())
		for {
			select {
			case <-ticker.C:
				p.publishStatus(p.dev.Status())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// publishStatus relays one status snapshot. Each field crosses through
// its own relay; readers get no simultaneity guarantee across fields.
func (p *PHY) publishStatus(st DeviceStatus) {
	p.linkUp.Store(st.LinkUp)
	p.msiEnabled.Store(st.MSIEnabled)
	p.funcStatus.Store(st.FunctionStatus)
	p.busMaster.Store(st.BusMasterEnabled())
	p.maxRequest.Store(SizeForCode(st.MaxRequestCode, p.cfg.SizeCeiling))
	p.maxPayload.Store(SizeForCode(st.MaxPayloadCode, p.cfg.SizeCeiling))
	p.serial.Store(st.SerialNumber)
	p.id.Store(st.Identity.Tag())
}

// LinkUp reports whether the link is up
func (p *PHY) LinkUp() bool { return p.linkUp.Load() }

// MSIEnabled reports whether MSI delivery is enabled by the link partner
func (p *PHY) MSIEnabled() bool { return p.msiEnabled.Load() }

// BusMasterEnabled reports whether bus mastering is enabled
func (p *PHY) BusMasterEnabled() bool { return p.busMaster.Load() }

// FunctionStatus returns the raw 16-bit function status word
func (p *PHY) FunctionStatus() uint16 { return p.funcStatus.Load() }

// MaxRequestSize returns the negotiated maximum read-request size in bytes
func (p *PHY) MaxRequestSize() uint32 { return p.maxRequest.Load() }

// MaxPayloadSize returns the negotiated maximum payload size in bytes
func (p *PHY) MaxPayloadSize() uint32 { return p.maxPayload.Load() }

// SerialNumber returns the 64-bit device serial number
func (p *PHY) SerialNumber() uint64 { return p.serial.Load() }

// ID returns the composed 16-bit identity tag
func (p *PHY) ID() uint16 { return p.id.Load() }

// Identity returns the identity tag split into its sub-fields
func (p *PHY) Identity() Identity { return IdentityFromTag(p.id.Load()) }

// Close stops the datapath pumps and waits for them to drain. The
// device itself stays open; its creator owns it.
func (p *PHY) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		cancel := p.cancel
		p.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		p.wg.Wait()
	})
	return nil
}
