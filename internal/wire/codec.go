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

package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	phylink "github.com/phylink/go-phylink"
)

// Message is one decoded wire message. For MsgUnit messages Data holds
// the unit's valid payload bytes; for MsgStatus it holds the raw status
// body.
type Message struct {
	Data   []byte
	Type   byte
	Stream byte
	Flags  byte
}

// Checksum returns the modular sum of data, truncated to a byte
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// UnitMessage wraps a stream unit for the wire. Only the valid payload
// bytes travel; the mask is reconstructed from the length on the far
// side.
func UnitMessage(stream byte, u phylink.Unit) Message {
	var flags byte
	if u.First {
		flags |= FlagFirst
	}
	if u.Last {
		flags |= FlagLast
	}
	n := u.ValidLen()
	data := make([]byte, n)
	copy(data, u.Data[:n])
	return Message{Type: MsgUnit, Stream: stream, Flags: flags, Data: data}
}

// Unit reconstructs a stream unit at the given width from a MsgUnit
// message
func (m Message) Unit(width int) (phylink.Unit, error) {
	if m.Type != MsgUnit {
		return phylink.Unit{}, fmt.Errorf("message type %#x is not a unit: %w",
			m.Type, phylink.ErrFrameCorrupted)
	}
	if len(m.Data) == 0 || len(m.Data) > width {
		return phylink.Unit{}, fmt.Errorf("unit payload of %d bytes for width %d: %w",
			len(m.Data), width, phylink.ErrFrameCorrupted)
	}
	u := phylink.Unit{
		Data:  make([]byte, width),
		Mask:  phylink.FullMask(len(m.Data)),
		First: m.Flags&FlagFirst != 0,
		Last:  m.Flags&FlagLast != 0,
	}
	copy(u.Data, m.Data)
	return u, nil
}

// PollMessage builds the empty poll an SPI host sends at the head of an
// exchange so the remote clocks out any pending data.
func PollMessage() Message {
	return Message{Type: MsgPoll}
}

// StatusMessage wraps a device status snapshot for the wire
func StatusMessage(st phylink.DeviceStatus) Message {
	body := make([]byte, statusBodyLength-1)
	binary.LittleEndian.PutUint64(body[0:8], st.SerialNumber)
	binary.LittleEndian.PutUint16(body[8:10], st.FunctionStatus)
	body[10] = st.Identity.Bus
	body[11] = st.Identity.Device
	body[12] = st.Identity.Function
	body[13] = byte(st.MaxPayloadCode)
	body[14] = byte(st.MaxRequestCode)
	if st.LinkUp {
		body[15] |= 0x01
	}
	if st.MSIEnabled {
		body[15] |= 0x02
	}
	return Message{Type: MsgStatus, Data: body}
}

// Status unpacks a device status snapshot from a MsgStatus message
func (m Message) Status() (phylink.DeviceStatus, error) {
	if m.Type != MsgStatus {
		return phylink.DeviceStatus{}, fmt.Errorf("message type %#x is not a status: %w",
			m.Type, phylink.ErrFrameCorrupted)
	}
	if len(m.Data) != statusBodyLength-1 {
		return phylink.DeviceStatus{}, fmt.Errorf("status body of %d bytes: %w",
			len(m.Data), phylink.ErrFrameCorrupted)
	}
	return phylink.DeviceStatus{
		SerialNumber:   binary.LittleEndian.Uint64(m.Data[0:8]),
		FunctionStatus: binary.LittleEndian.Uint16(m.Data[8:10]),
		Identity: phylink.Identity{
			Bus:      m.Data[10],
			Device:   m.Data[11] & 0x1f,
			Function: m.Data[12] & 0x07,
		},
		MaxPayloadCode: phylink.SizeCode(m.Data[13]),
		MaxRequestCode: phylink.SizeCode(m.Data[14]),
		LinkUp:         m.Data[15]&0x01 != 0,
		MSIEnabled:     m.Data[15]&0x02 != 0,
	}, nil
}

// Encode serializes a message into a complete wire frame:
// preamble, start code, length, length checksum, body, body checksum,
// postamble. Both checksums are two's-complement sums.
func Encode(m Message) []byte {
	body := make([]byte, 0, 3+len(m.Data))
	body = append(body, m.Type)
	if m.Type == MsgUnit {
		body = append(body, m.Stream, m.Flags)
	}
	body = append(body, m.Data...)

	out := make([]byte, 0, len(body)+MinWireLength)
	out = append(out, Preamble, StartCode1, StartCode2)
	length := byte(len(body))
	out = append(out, length, -length)
	out = append(out, body...)
	out = append(out, -Checksum(body), Postamble)
	return out
}

// Decoder reads wire frames from a byte stream, resynchronizing on the
// start code after garbage or corruption
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a decoder over r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next blocks until a complete wire frame arrives and returns its
// message. A checksum failure returns an error wrapping
// phylink.ErrChecksumMismatch; calling Next again resynchronizes.
func (d *Decoder) Next() (Message, error) {
	if err := d.sync(); err != nil {
		return Message{}, err
	}

	header := make([]byte, 2)
	if _, err := io.ReadFull(d.r, header); err != nil {
		return Message{}, fmt.Errorf("read length: %w", err)
	}
	length := int(header[0])
	if byte(length)+header[1] != 0 {
		return Message{}, fmt.Errorf("length checksum: %w", phylink.ErrChecksumMismatch)
	}
	if length == 0 || length > MaxDataLength {
		return Message{}, fmt.Errorf("body length %d: %w", length, phylink.ErrFrameCorrupted)
	}

	body := make([]byte, length+1)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return Message{}, fmt.Errorf("read body: %w", err)
	}
	if Checksum(body) != 0 { // body plus its own checksum sums to zero
		return Message{}, fmt.Errorf("body checksum: %w", phylink.ErrChecksumMismatch)
	}
	body = body[:length]

	m := Message{Type: body[0]}
	switch m.Type {
	case MsgUnit:
		if length < 3 {
			return Message{}, fmt.Errorf("unit body length %d: %w", length, phylink.ErrFrameCorrupted)
		}
		m.Stream = body[1]
		m.Flags = body[2]
		m.Data = body[3:]
	default:
		m.Data = body[1:]
	}
	return m, nil
}

// sync consumes bytes until the start code 0x00 0xFF is seen.
func (d *Decoder) sync() error {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		if b != StartCode1 {
			continue
		}
		next, err := d.r.ReadByte()
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		if next == StartCode2 {
			return nil
		}
		if next == StartCode1 {
			// Run of zeros; keep hunting from the second one.
			if err := d.r.UnreadByte(); err != nil {
				return err
			}
		}
	}
}
