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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAsyncQueue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{name: "one", capacity: 1, wantErr: false},
		{name: "four", capacity: 4, wantErr: false},
		{name: "sixty_four", capacity: 64, wantErr: false},
		{name: "zero", capacity: 0, wantErr: true},
		{name: "negative", capacity: -4, wantErr: true},
		{name: "not_power_of_two", capacity: 6, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := NewAsyncQueue(tt.capacity)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrorTypeConfig, GetErrorType(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.capacity, q.Cap())
			assert.True(t, q.Empty())
			assert.False(t, q.Full())
		})
	}
}

func TestAsyncQueueTryPushTryPop(t *testing.T) {
	t.Parallel()

	q, err := NewAsyncQueue(4)
	require.NoError(t, err)

	// Empty pop refuses.
	_, ok := q.TryPop()
	assert.False(t, ok)

	// Fill to capacity.
	for i := 0; i < 4; i++ {
		assert.True(t, q.TryPush(testUnit(8, i)), "push %d", i)
	}
	assert.True(t, q.Full())
	assert.Equal(t, 4, q.Len())

	// Full push refuses without overwriting.
	assert.False(t, q.TryPush(testUnit(8, 99)))

	// Drain in FIFO order.
	for i := 0; i < 4; i++ {
		u, ok := q.TryPop()
		require.True(t, ok, "pop %d", i)
		assert.Equal(t, byte(i), u.Data[0])
	}
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
}

func TestAsyncQueueWrapAround(t *testing.T) {
	t.Parallel()

	q, err := NewAsyncQueue(2)
	require.NoError(t, err)

	// Cycle the indexes well past the capacity to cross the wrap several
	// times; order and count must survive every crossing.
	for i := 0; i < 100; i++ {
		require.True(t, q.TryPush(testUnit(8, i)))
		u, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, byte(i), u.Data[0])
	}
	assert.True(t, q.Empty())
}

func TestAsyncQueueCrossDomainOrder(t *testing.T) {
	t.Parallel()

	q, err := NewAsyncQueue(4)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const total = 1000

	pushErr := make(chan error, 1)
	go func() {
		for i := 0; i < total; i++ {
			u := Unit{Data: []byte{byte(i), byte(i >> 8)}, Mask: 0x03, First: true, Last: true}
			if err := q.Push(ctx, u); err != nil {
				pushErr <- err
				return
			}
		}
		pushErr <- nil
	}()

	for i := 0; i < total; i++ {
		u, err := q.Pop(ctx)
		require.NoError(t, err)
		got := int(u.Data[0]) | int(u.Data[1])<<8
		require.Equal(t, i, got, "unit %d arrived out of order", i)
	}

	require.NoError(t, <-pushErr)
	assert.True(t, q.Empty())
}

func TestAsyncQueueBlockingPushUnblocksOnPop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	q, err := NewAsyncQueue(1)
	require.NoError(t, err)
	require.True(t, q.TryPush(testUnit(8, 1)))

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(ctx, testUnit(8, 2))
	}()

	select {
	case <-pushed:
		t.Fatal("Push returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	u, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, byte(1), u.Data[0])

	select {
	case err := <-pushed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Push did not unblock after a pop made space")
	}

	u, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(2), u.Data[0])
}

func TestAsyncQueueContextCancellation(t *testing.T) {
	t.Parallel()

	q, err := NewAsyncQueue(1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = q.Pop(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.True(t, q.TryPush(testUnit(8, 1)))
	err = q.Push(ctx, testUnit(8, 2))
	require.ErrorIs(t, err, context.Canceled)
}
