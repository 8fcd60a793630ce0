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

/*
Package phylink adapts framed, backpressured data streams between two
independently progressing execution domains with different transfer-unit
widths, in the shape of a PCIe hard-IP PHY wrapper.

A narrow, slow application datapath interoperates losslessly with a
wide, fast link device: frames keep their boundaries and exact per-byte
validity across the width conversion, scalar status values cross the
domain boundary without tearing, and a bounded queue carries the
notification stream between domains.

The primitives compose bottom-up:

  - Unit / Frame: fixed-width transfer granules with byte-validity
    masks and First/Last boundary flags.
  - Stream: a unidirectional unit channel with a strict two-signal
    handshake (a transfer happens only when producer and consumer
    rendezvous).
  - Converter / Adapter: width conversion preserving frame boundaries
    and validity exactly, with one unit of slack.
  - AsyncQueue: single-producer single-consumer ring safe under
    uncorrelated progress of its two ends.
  - Sync: single-writer scalar relay, never observed torn.
  - PHY: wires four width-converted datapaths, the status relays, the
    identity tag and the notification queue over a Device.

Basic Usage:

	import (
	    "github.com/phylink/go-phylink"
	    "github.com/phylink/go-phylink/transport/uart"
	)

	dev, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}
	defer dev.Close()

	phy, err := phylink.New(dev,
	    phylink.WithAppWidth(8),
	    phylink.WithSpeed(phylink.SpeedGen3),
	)
	if err != nil {
	    log.Fatal(err)
	}

	ctx := context.Background()
	if err := phy.Start(ctx); err != nil {
	    log.Fatal(err)
	}
	defer phy.Close()

	// Send an egress request frame at the application width.
	frame, _ := phylink.BuildFrame(8, payload)
	if err := phy.RequestSink().SendFrame(ctx, frame); err != nil {
	    log.Fatal(err)
	}

	// Read negotiated limits relayed from the device domain.
	fmt.Println(phy.LinkUp(), phy.MaxPayloadSize(), phy.MaxRequestSize())

Device Backends:

The link device is consumed through the Device interface. Bundled
backends:

  - transport/uart: bridges a remote device over a serial link
  - transport/spi: bridges a remote device over an SPI bus
  - internal/phytest: in-process virtual device for testing

Error Handling:

Configuration violations are rejected at construction. Protocol
violations (malformed frame boundaries or validity masks) stop the
affected datapath and are reported through the error handler installed
with WithErrorHandler; they are never silently absorbed:

	if errors.Is(err, phylink.ErrFrameCorrupted) {
	    // malformed frame on the wire
	}

Concurrency:

Each Stream has exactly one producer and one consumer. The PHY runs its
datapaths on internal goroutines; application code interacts only
through the app-side streams and the read-only status accessors, which
are safe to call from any goroutine.
*/
package phylink
