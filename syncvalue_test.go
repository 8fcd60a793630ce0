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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncZeroBeforeFirstStore(t *testing.T) {
	t.Parallel()

	var s Sync[uint64]
	assert.Equal(t, uint64(0), s.Load())

	_, ok := s.LoadOK()
	assert.False(t, ok)
}

func TestSyncStoreLoad(t *testing.T) {
	t.Parallel()

	var s Sync[uint16]
	s.Store(0xBEEF)

	v, ok := s.LoadOK()
	require.True(t, ok)
	assert.Equal(t, uint16(0xBEEF), v)

	s.Store(0x1234)
	assert.Equal(t, uint16(0x1234), s.Load())
}

func TestSyncStructValues(t *testing.T) {
	t.Parallel()

	type pair struct{ a, b uint32 }

	var s Sync[pair]
	s.Store(pair{a: 1, b: 2})
	assert.Equal(t, pair{a: 1, b: 2}, s.Load())
}

// TestSyncNoTearing hammers a relay with paired values from one writer
// while a reader checks every observation is internally consistent. A
// torn read would surface as a pair whose halves disagree.
func TestSyncNoTearing(t *testing.T) {
	t.Parallel()

	type pair struct{ a, b uint64 }

	var s Sync[pair]
	s.Store(pair{})

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		for i := uint64(1); ; i++ {
			select {
			case <-done:
				return
			default:
			}
			s.Store(pair{a: i, b: ^i})
		}
	}()

	for i := 0; i < 100000; i++ {
		p := s.Load()
		if p.a != 0 && p.b != ^p.a {
			t.Errorf("torn read: a=%d b=%d", p.a, p.b)
			break
		}
	}

	close(done)
	wg.Wait()
}
