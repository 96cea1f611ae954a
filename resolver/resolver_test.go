// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bufbuild/searchconn/internal/clocktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  Address
	}{
		{token: "localhost:8983", want: Address{HostPort: "localhost:8983"}},
		{token: " localhost:8983 ", want: Address{HostPort: "localhost:8983"}},
		{token: "localhost:8983/", want: Address{HostPort: "localhost:8983"}},
		{token: "localhost:8983/solr", want: Address{HostPort: "localhost:8983", Path: "/solr"}},
		{token: "localhost:8983/solr/core1/", want: Address{HostPort: "localhost:8983", Path: "/solr/core1"}},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, ParseAddress(test.token), test.token)
	}
	assert.Equal(t, "localhost:8983/solr", ParseAddress("localhost:8983/solr").String())
}

func TestStaticResolver(t *testing.T) {
	t.Parallel()

	addresses := []Address{{HostPort: "h1:8983", Path: "/solr"}, {HostPort: "h2:8983", Path: "/solr"}}
	var got []Address
	task := NewStaticResolver(addresses).New(context.Background(), testReceiver{
		onResolve: func(a []Address) {
			got = a
		},
		onResolveError: func(err error) {
			t.Errorf("unexpected resolution error: %v", err)
		},
	}, nil)
	require.Equal(t, addresses, got)
	got[0].HostPort = "mutated"
	assert.Equal(t, "h1:8983", addresses[0].HostPort)
	require.NoError(t, task.Close())
}

func TestPollingResolverTTL(t *testing.T) {
	t.Parallel()

	const testTTL = 20 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	testClock := clocktest.NewFakeClock()
	var resolveCount atomic.Int32
	resolver := NewPollingResolver(
		resolveProberFunc(func(context.Context) ([]Address, time.Duration, error) {
			resolveCount.Add(1)
			return []Address{{HostPort: "10.0.0.1:8983", Path: "/solr"}}, 0, nil
		}),
		testTTL,
	)
	resolver.(*pollingResolver).clock = testClock //nolint:errcheck

	refreshCh := make(chan struct{})
	signal := make(chan struct{}, 1)
	task := resolver.New(ctx, testReceiver{
		onResolve: func(a []Address) {
			assert.Len(t, a, 1)
			assert.Equal(t, "10.0.0.1:8983", a[0].HostPort)
			signal <- struct{}{}
		},
		onResolveError: func(err error) {
			t.Errorf("unexpected resolution error: %v", err)
		},
	}, refreshCh)
	waitForResolve := func() {
		t.Helper()
		select {
		case <-signal:
		case <-ctx.Done():
			t.Fatal("expected call to resolver")
		}
	}
	t.Cleanup(func() {
		require.NoError(t, task.Close())
	})

	waitForResolve()
	require.NoError(t, testClock.BlockUntilContext(ctx, 1))

	// Advancing the clock past the TTL triggers a new probe.
	testClock.Advance(testTTL)
	waitForResolve()
	require.NoError(t, testClock.BlockUntilContext(ctx, 1))

	// So does an explicit refresh, without moving the clock.
	select {
	case refreshCh <- struct{}{}:
	case <-ctx.Done():
		t.Fatalf("cancelled before refresh channel unblocked: %v", ctx.Err())
	}
	waitForResolve()
	assert.Equal(t, int32(3), resolveCount.Load())
}

func TestPollingResolverError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	probeErr := errors.New("no coordination session")
	resolver := NewPollingResolver(
		resolveProberFunc(func(context.Context) ([]Address, time.Duration, error) {
			return nil, 0, probeErr
		}),
		time.Hour,
	)
	errCh := make(chan error, 1)
	task := resolver.New(ctx, testReceiver{
		onResolve: func([]Address) {
			t.Error("unexpected resolution")
		},
		onResolveError: func(err error) {
			errCh <- err
		},
	}, nil)
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, probeErr)
	case <-ctx.Done():
		t.Fatal("expected resolution error")
	}
	require.NoError(t, task.Close())
}

type testReceiver struct {
	onResolve      func([]Address)
	onResolveError func(error)
}

func (r testReceiver) OnResolve(addresses []Address) {
	r.onResolve(addresses)
}

func (r testReceiver) OnResolveError(err error) {
	r.onResolveError(err)
}

type resolveProberFunc func(ctx context.Context) (results []Address, ttl time.Duration, err error)

func (fn resolveProberFunc) ResolveOnce(ctx context.Context) (results []Address, ttl time.Duration, err error) {
	return fn(ctx)
}
