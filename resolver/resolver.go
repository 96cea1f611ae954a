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
	"io"
	"strings"
	"time"

	"github.com/bufbuild/searchconn/internal"
)

// Resolver is an interface for continuous resolution of serving nodes.
type Resolver interface {
	// New creates a continuous resolver task. When nodes are resolved,
	// they are provided to the given receiver.
	//
	// As new result sets arrive, the receiver may be called repeatedly.
	// Each time, the entire set of addresses is supplied.
	//
	// The refresh channel receives signals from the client hinting that
	// it may need new results, for example when it has no node to send a
	// request to. This may be a no-op.
	//
	// The Close method on the return value should stop all goroutines and
	// free any resources before returning. After Close returns, there
	// should be no subsequent calls to the receiver.
	New(ctx context.Context, receiver Receiver, refresh <-chan struct{}) io.Closer
}

// Receiver is a client of a resolver and receives the resolved addresses.
type Receiver interface {
	// OnResolve is called when the set of addresses is resolved. Each call
	// supplies the full set of resolved addresses (no deltas).
	OnResolve([]Address)
	// OnResolveError is called when resolution encounters an error.
	OnResolveError(error)
}

// ResolveProber is an interface for types that provide single-shot
// resolution.
type ResolveProber interface {
	// ResolveOnce resolves the serving nodes once. The second return value
	// specifies the TTL of the result, or 0 if there is no known TTL.
	ResolveOnce(ctx context.Context) (results []Address, ttl time.Duration, err error)
}

// Address is a resolved serving node.
type Address struct {
	// HostPort stores the host:port pair of the node.
	HostPort string
	// Path is the context path under which the node serves requests,
	// such as "/solr". It is empty when requests go to the root.
	Path string
}

// ParseAddress splits a "host:port/path" token into an Address.
func ParseAddress(token string) Address {
	hostPort, path, found := strings.Cut(strings.TrimSpace(token), "/")
	if !found {
		return Address{HostPort: hostPort}
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return Address{HostPort: hostPort}
	}
	return Address{HostPort: hostPort, Path: "/" + path}
}

// String returns the address in "host:port/path" form.
func (a Address) String() string {
	return a.HostPort + a.Path
}

// NewStaticResolver creates a resolver that always reports the given
// addresses. The addresses are delivered to the receiver before New
// returns.
func NewStaticResolver(addresses []Address) Resolver {
	return staticResolver(addresses)
}

type staticResolver []Address

func (s staticResolver) New(_ context.Context, receiver Receiver, _ <-chan struct{}) io.Closer {
	addresses := make([]Address, len(s))
	copy(addresses, s)
	receiver.OnResolve(addresses)
	return nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}

// NewPollingResolver creates a new resolver that polls an underlying
// single-shot prober whenever the result-set TTL expires, or when the
// client signals a refresh. If the prober does not return a TTL with the
// result-set, defaultTTL is used.
func NewPollingResolver(prober ResolveProber, defaultTTL time.Duration) Resolver {
	return &pollingResolver{
		prober:     prober,
		defaultTTL: defaultTTL,
		clock:      internal.NewRealClock(),
	}
}

type pollingResolver struct {
	prober     ResolveProber
	defaultTTL time.Duration
	clock      internal.Clock
}

func (pr *pollingResolver) New(ctx context.Context, receiver Receiver, refresh <-chan struct{}) io.Closer {
	ctx, cancel := context.WithCancel(ctx)
	task := &pollingResolverTask{
		cancel:     cancel,
		doneSignal: make(chan struct{}),
		refreshCh:  refresh,
		resolver:   pr,
	}
	go task.run(ctx, receiver)
	return task
}

type pollingResolverTask struct {
	cancel     context.CancelFunc
	doneSignal chan struct{}
	refreshCh  <-chan struct{}
	resolver   *pollingResolver
}

func (task *pollingResolverTask) Close() error {
	task.cancel()
	<-task.doneSignal
	return nil
}

func (task *pollingResolverTask) run(ctx context.Context, receiver Receiver) {
	defer close(task.doneSignal)
	defer task.cancel()

	for {
		addresses, ttl, err := task.resolver.prober.ResolveOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			receiver.OnResolveError(err)
		} else {
			receiver.OnResolve(addresses)
		}

		if ttl == 0 {
			ttl = task.resolver.defaultTTL
		}
		timer := task.resolver.clock.NewTimer(ttl)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-task.refreshCh:
			timer.Stop()
		case <-timer.Chan():
		}
	}
}
