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
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
)

// singleNodeClient sends every request to one node.
type singleNodeClient struct {
	base       string
	httpClient *http.Client
	closed     atomic.Bool
}

func newSingleNodeClient(target SingleNodeTarget) (*singleNodeClient, error) {
	transport, err := newSingleNodeTransport(target)
	if err != nil {
		return nil, err
	}
	return &singleNodeClient{
		base: target.Scheme + "://" + strings.TrimRight(target.Host, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   target.RequestTimeout,
		},
	}, nil
}

func newSingleNodeTransport(target SingleNodeTarget) (http.RoundTripper, error) {
	dialer := newDialer(target.ConnectTimeout)
	if target.Protocol == ProtocolHTTP2 && target.Scheme == "http" {
		return newH2CTransport(dialer, DefaultIdleTimeout), nil
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		IdleConnTimeout:       DefaultIdleTimeout,
		TLSHandshakeTimeout:   target.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if target.Protocol == ProtocolHTTP1 {
		// A non-nil empty map disables HTTP/2 negotiation.
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
		return transport, nil
	}
	if _, err := http2.ConfigureTransports(transport); err != nil {
		return nil, err
	}
	return transport, nil
}

func (c *singleNodeClient) Query(ctx context.Context, params url.Values) (*QueryResponse, error) {
	if c.closed.Load() {
		return nil, illegalState(errClientClosed.Error())
	}
	return executeQuery(ctx, c.httpClient, c.base, params)
}

func (c *singleNodeClient) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}
