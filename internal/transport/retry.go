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

// Package transport provides shared helpers for the bridge backends.
package transport

import (
	"context"
	"errors"
	"time"

	phylink "github.com/phylink/go-phylink"
)

// Operation is one attempt of a retryable action. The second result
// asks for another attempt; a non-nil error stops retrying immediately.
type Operation[T any] func() (T, bool, error)

// RetryConfig bounds WithRetry.
type RetryConfig struct {
	Description string // names the target in the exhaustion error
	MaxRetries  int    // re-attempts after the first try
	RetryDelay  time.Duration
}

// WithRetry runs op until it succeeds, returns an error, or the attempt
// budget runs out. The delay between attempts ends early when ctx does.
func WithRetry[T any](ctx context.Context, config RetryConfig, op Operation[T]) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, again, err := op()
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}
		if attempt >= config.MaxRetries {
			return zero, phylink.NewTransportError("retry", config.Description,
				phylink.ErrCommunicationFailed, phylink.ErrorTypeTransient)
		}
		if err := wait(ctx, config.RetryDelay); err != nil {
			return zero, err
		}
	}
}

// PollUntil runs op every interval until it stops asking for another
// attempt or ctx ends. Hitting a context deadline surfaces as a
// transport timeout so callers can tell "gave up waiting" apart from an
// outside cancellation.
func PollUntil[T any](ctx context.Context, description string, interval time.Duration, op Operation[T]) (T, error) {
	var zero T
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		result, again, err := op()
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return zero, phylink.NewTransportError("poll", description,
					phylink.ErrTransportTimeout, phylink.ErrorTypeTransient)
			}
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
