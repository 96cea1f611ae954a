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

package searchconn

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bufbuild/searchconn/picker"
	"github.com/bufbuild/searchconn/resolver"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// balancedClient spreads requests round-robin over the nodes reported by
// a resolver. Requests are sent to <scheme>://<node>[/<collection>].
type balancedClient struct {
	scheme     string
	collection string
	httpClient *http.Client
	logger     *zap.Logger

	// ready is closed once the resolver has reported its first result.
	ready     chan struct{}
	readyOnce sync.Once
	refresh   chan struct{}
	task      io.Closer
	// onClose, if set, is called after the resolver task is stopped.
	onClose func()
	closed  atomic.Bool

	mu         sync.Mutex
	picker     picker.Picker
	resolveErr error
}

var _ resolver.Receiver = (*balancedClient)(nil)

func newBalancedClient(
	ctx context.Context,
	scheme, collection string,
	connectTimeout time.Duration,
	res resolver.Resolver,
	logger *zap.Logger,
	onClose func(),
) *balancedClient {
	client := &balancedClient{
		scheme:     scheme,
		collection: collection,
		httpClient: &http.Client{Transport: newBalancedTransport(connectTimeout)},
		logger:     logger,
		ready:      make(chan struct{}),
		refresh:    make(chan struct{}, 1),
		onClose:    onClose,
		picker:     picker.ErrorPicker(picker.ErrNoAddresses),
	}
	client.task = res.New(ctx, client, client.refresh)
	return client
}

// newStaticBalancedClient balances over a fixed list of host tokens.
func newStaticBalancedClient(target BalancedTarget, logger *zap.Logger) *balancedClient {
	addresses := make([]resolver.Address, len(target.Hosts))
	for i, host := range target.Hosts {
		addresses[i] = resolver.ParseAddress(host)
	}
	return newBalancedClient(
		context.Background(),
		target.Scheme,
		target.Collection,
		DefaultConnectTimeout,
		resolver.NewStaticResolver(addresses),
		logger,
		nil,
	)
}

// newBalancedTransport returns a transport without per-request timeouts.
// Dials and TLS handshakes are bounded by connectTimeout. HTTP/2 is
// negotiated over TLS and HTTP/1.1 is used otherwise.
func newBalancedTransport(connectTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           newDialer(connectTimeout).DialContext,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       DefaultIdleTimeout,
		TLSHandshakeTimeout:   connectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func (c *balancedClient) OnResolve(addresses []resolver.Address) {
	c.mu.Lock()
	c.picker = picker.NewRoundRobin(addresses)
	c.resolveErr = nil
	c.mu.Unlock()
	c.logger.Debug("resolved search nodes", zap.Int("count", len(addresses)))
	c.readyOnce.Do(func() { close(c.ready) })
}

func (c *balancedClient) OnResolveError(err error) {
	c.mu.Lock()
	c.resolveErr = err
	c.mu.Unlock()
	c.logger.Warn("could not resolve search nodes", zap.Error(err))
	c.readyOnce.Do(func() { close(c.ready) })
}

func (c *balancedClient) Query(ctx context.Context, params url.Values) (*QueryResponse, error) {
	if c.closed.Load() {
		return nil, illegalState(errClientClosed.Error())
	}
	address, err := c.pick(ctx)
	if err != nil {
		return nil, err
	}
	base := c.scheme + "://" + address.String()
	if c.collection != "" {
		base += "/" + c.collection
	}
	return executeQuery(ctx, c.httpClient, base, params)
}

func (c *balancedClient) pick(ctx context.Context) (resolver.Address, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return resolver.Address{}, ctx.Err()
	}
	c.mu.Lock()
	current, resolveErr := c.picker, c.resolveErr
	c.mu.Unlock()

	address, err := current.Pick()
	if err == nil {
		return address, nil
	}
	// Nothing to send to: hint the resolver to try again.
	select {
	case c.refresh <- struct{}{}:
	default:
	}
	if resolveErr != nil && errors.Is(err, picker.ErrNoAddresses) {
		return resolver.Address{}, multierr.Append(err, resolveErr)
	}
	return resolver.Address{}, err
}

func (c *balancedClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.task.Close()
	c.httpClient.CloseIdleConnections()
	if c.onClose != nil {
		c.onClose()
	}
	return err
}
