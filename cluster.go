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
	"fmt"

	"github.com/bufbuild/searchconn/coordinator"
	"github.com/bufbuild/searchconn/resolver"
	"go.uber.org/zap"
)

// newClusterClient connects to the coordination service, binds the
// default collection and balances over the cluster's live nodes. The
// target's connect timeout bounds the handshake (together with ctx) and
// every connection to a node.
func newClusterClient(ctx context.Context, target ClusterTarget, opts *managerOptions) (*balancedClient, error) {
	sessionOpts := []coordinator.Option{
		coordinator.WithConnectTimeout(target.ConnectTimeout),
		coordinator.WithSessionTimeout(opts.sessionTimeout),
		coordinator.WithLogger(opts.logger),
	}
	if opts.dialer != nil {
		sessionOpts = append(sessionOpts, coordinator.WithDialer(opts.dialer))
	}
	session, err := coordinator.Connect(ctx, target.Hosts, target.Root, sessionOpts...)
	if err != nil {
		return nil, err
	}
	if target.Collection != "" {
		if err := session.VerifyCollection(target.Collection); err != nil {
			session.Close()
			return nil, fmt.Errorf("could not bind default collection: %w", err)
		}
	}
	// The client outlives the initialization context.
	return newBalancedClient(
		context.WithoutCancel(ctx),
		"http",
		target.Collection,
		target.ConnectTimeout,
		resolver.NewPollingResolver(session, opts.liveNodesRefreshInterval),
		opts.logger.With(zap.String("root", target.Root)),
		session.Close,
	), nil
}
