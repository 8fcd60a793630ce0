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
	"errors"
	"fmt"
)

// Stream and queue errors
var (
	// ErrStreamClosed is returned when sending to or receiving from a
	// stream whose producer has closed it.
	ErrStreamClosed = errors.New("stream closed")

	// ErrQueueFull is returned by a bounded queue push that cannot make
	// progress without violating the handshake contract.
	ErrQueueFull = errors.New("queue full")

	// ErrQueueEmpty is returned by a queue pop with nothing to deliver.
	ErrQueueEmpty = errors.New("queue empty")
)

// Frame and protocol errors
var (
	// ErrFrameCorrupted indicates a frame whose boundary flags or
	// validity mask do not form a well-formed frame.
	ErrFrameCorrupted = errors.New("frame corrupted")

	// ErrZeroLengthFrame indicates a frame carrying no valid bytes.
	ErrZeroLengthFrame = errors.New("zero-length frame")

	// ErrChecksumMismatch indicates wire data failed its checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Transport errors
var (
	ErrTransportTimeout    = errors.New("transport timeout")
	ErrTransportRead       = errors.New("transport read failed")
	ErrTransportWrite      = errors.New("transport write failed")
	ErrCommunicationFailed = errors.New("communication failed")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrInvalidParameter    = errors.New("invalid parameter")
)

// ErrorType classifies errors for retry and reporting decisions
type ErrorType string

const (
	// ErrorTypeTransient indicates a temporary condition worth retrying.
	ErrorTypeTransient ErrorType = "transient"
	// ErrorTypePermanent indicates a condition retries cannot fix.
	ErrorTypePermanent ErrorType = "permanent"
	// ErrorTypeProtocol indicates a handshake or framing contract was
	// broken. Protocol errors are always fatal to the affected stream.
	ErrorTypeProtocol ErrorType = "protocol"
	// ErrorTypeConfig indicates an invalid construction parameter.
	ErrorTypeConfig ErrorType = "config"
)

// ProtocolError reports a broken framing or handshake contract. These are
// never absorbed: the offending unit is dropped from the datapath and the
// error is surfaced to the configured error handler.
type ProtocolError struct {
	Err    error
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol violation in %s: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("protocol violation in %s: %s", e.Op, e.Detail)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NewProtocolError creates a ProtocolError for the given operation
func NewProtocolError(op, detail string, err error) *ProtocolError {
	return &ProtocolError{Op: op, Detail: detail, Err: err}
}

// ConfigError reports an invalid construction parameter. Configuration is
// the only class validated eagerly, before any stream activity.
type ConfigError struct {
	Value  any
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s = %v: %s", e.Field, e.Value, e.Reason)
}

// NewConfigError creates a ConfigError for the given field
func NewConfigError(field string, value any, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// TransportError wraps a failure from a transport backend with enough
// context to decide whether the operation is worth retrying
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s on %s: %v", e.Op, e.Port, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError creates a TransportError with retryability derived
// from the error type
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient,
	}
}

// IsRetryable reports whether an operation that failed with err may
// succeed if attempted again
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed),
		errors.Is(err, ErrChecksumMismatch):
		return true
	default:
		return false
	}
}

// GetErrorType classifies err into an ErrorType
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Type
	}

	var protocolErr *ProtocolError
	if errors.As(err, &protocolErr) {
		return ErrorTypeProtocol
	}

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ErrorTypeConfig
	}

	if IsRetryable(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}
