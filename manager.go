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
	"io/fs"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bufbuild/searchconn/coordinator"
	"github.com/bufbuild/searchconn/embedded"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultLiveNodesRefreshInterval is how often a coordinated cluster
// client re-reads the live nodes when no WithLiveNodesRefreshInterval
// option is given.
const DefaultLiveNodesRefreshInterval = 10 * time.Second

// Option is an option used to customize a Manager.
type Option interface {
	apply(*managerOptions)
}

// WithLogger configures the logger used by the manager and the clients
// it constructs. If not specified, nothing is logged.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *managerOptions) {
		opts.logger = logger
	})
}

// WithMetricsRegisterer registers lifecycle counters with the given
// registerer. If not specified, no metrics are recorded.
func WithMetricsRegisterer(registerer prometheus.Registerer) Option {
	return optionFunc(func(opts *managerOptions) {
		opts.registerer = registerer
	})
}

// WithResources configures the file system from which embedded cores
// read their configuration when the configuration path is not an
// existing directory. If not specified, embedded.BundledResources is
// used.
func WithResources(resources fs.FS) Option {
	return optionFunc(func(opts *managerOptions) {
		opts.resources = resources
	})
}

// WithCoordinatorDialer configures how connections to the coordination
// service are opened. If not specified, coordinator.DialZooKeeper is used.
func WithCoordinatorDialer(dialer coordinator.Dialer) Option {
	return optionFunc(func(opts *managerOptions) {
		opts.dialer = dialer
	})
}

// WithSessionTimeout configures the coordination session timeout. If not
// specified, coordinator.DefaultSessionTimeout is used.
func WithSessionTimeout(timeout time.Duration) Option {
	return optionFunc(func(opts *managerOptions) {
		opts.sessionTimeout = timeout
	})
}

// WithLiveNodesRefreshInterval configures how often a coordinated cluster
// client re-reads the live nodes. If not specified,
// DefaultLiveNodesRefreshInterval is used.
func WithLiveNodesRefreshInterval(interval time.Duration) Option {
	return optionFunc(func(opts *managerOptions) {
		opts.liveNodesRefreshInterval = interval
	})
}

type optionFunc func(*managerOptions)

func (f optionFunc) apply(opts *managerOptions) {
	f(opts)
}

type managerOptions struct {
	logger                   *zap.Logger
	registerer               prometheus.Registerer
	resources                fs.FS
	dialer                   coordinator.Dialer
	sessionTimeout           time.Duration
	liveNodesRefreshInterval time.Duration
}

func (opts *managerOptions) applyDefaults() {
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
	if opts.resources == nil {
		opts.resources = embedded.BundledResources()
	}
	if opts.liveNodesRefreshInterval <= 0 {
		opts.liveNodesRefreshInterval = DefaultLiveNodesRefreshInterval
	}
}

type managerState int

const (
	stateUninitialized managerState = iota
	stateReady
	stateDestroyed
)

// Manager owns the lifecycle of exactly one search client. A manager
// starts uninitialized, becomes ready after a successful Initialize and
// is destroyed by Destroy. A destroyed manager cannot be initialized
// again.
type Manager struct {
	opts    managerOptions
	metrics *metrics

	mu     sync.Mutex
	state  managerState
	handle *Handle
}

// NewManager returns a new, uninitialized manager.
func NewManager(options ...Option) *Manager {
	var opts managerOptions
	for _, opt := range options {
		opt.apply(&opts)
	}
	opts.applyDefaults()
	manager := &Manager{opts: opts}
	if opts.registerer != nil {
		metrics, err := newMetrics(opts.registerer)
		if err != nil {
			opts.logger.Warn("could not register search client metrics", zap.Error(err))
		}
		manager.metrics = metrics
	}
	return manager
}

// Initialize constructs the client described by rawURL. For "file://"
// URLs, embeddedConfigPath names the embedded core's configuration
// directory; it is ignored otherwise.
//
// Initialize fails with ErrIllegalState if the manager is already ready
// or has been destroyed. It fails with ErrInvalidConfiguration if rawURL
// is blank or malformed, or if the client could not be constructed; in
// the latter case the error also matches ErrConstructionFailure. After a
// failure the manager stays uninitialized and Initialize may be retried.
func (m *Manager) Initialize(ctx context.Context, rawURL, embeddedConfigPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case stateDestroyed:
		return illegalState("the search client manager has been destroyed")
	case stateReady:
		return illegalState("the search client manager is already initialized")
	case stateUninitialized:
	}

	handle, err := m.construct(ctx, strings.TrimSpace(rawURL), embeddedConfigPath)
	if err != nil {
		m.opts.logger.Error("could not initialize search client", zap.String("url", rawURL), zap.Error(err))
		return err
	}
	m.handle = handle
	m.state = stateReady
	m.opts.logger.Info("initialized search client", zap.String("url", rawURL), zap.Stringer("kind", handle.kind))
	return nil
}

func (m *Manager) construct(ctx context.Context, rawURL, embeddedConfigPath string) (*Handle, error) {
	if rawURL == "" {
		err := invalidConfiguration(rawURL, "the connection string is not set or empty")
		m.metrics.observeInitialization(KindUnspecified, err)
		return nil, err
	}

	var target Target
	var settings *Settings
	switch {
	case isEmbeddedURL(rawURL):
		fileTarget, err := embeddedTarget(rawURL, embeddedConfigPath)
		if err != nil {
			m.metrics.observeInitialization(KindEmbedded, err)
			return nil, err
		}
		target = fileTarget
	case hasForeignScheme(rawURL):
		scheme, _, _ := strings.Cut(rawURL, schemeSeparator)
		err := invalidConfiguration(rawURL, fmt.Sprintf("unsupported scheme %q", scheme))
		m.metrics.observeInitialization(KindUnspecified, err)
		return nil, err
	default:
		var err error
		if settings, err = Resolve(rawURL); err != nil {
			m.metrics.observeInitialization(KindUnspecified, err)
			return nil, err
		}
		target = settings.Target()
	}

	client, container, err := m.build(ctx, target)
	m.metrics.observeInitialization(target.Kind(), err)
	if err != nil {
		return nil, initializationFailure(rawURL, fmt.Sprintf("could not construct %s client", target.Kind()), err)
	}
	return &Handle{kind: target.Kind(), settings: settings, client: client, container: container}, nil
}

func (m *Manager) build(ctx context.Context, target Target) (Client, *embedded.Container, error) {
	switch target := target.(type) {
	case SingleNodeTarget:
		client, err := newSingleNodeClient(target)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	case BalancedTarget:
		return newStaticBalancedClient(target, m.opts.logger), nil, nil
	case ClusterTarget:
		client, err := newClusterClient(ctx, target, &m.opts)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	case EmbeddedTarget:
		container, core, err := embedded.Open(
			target.DataDir,
			target.ConfigPath,
			embedded.WithResources(m.opts.resources),
			embedded.WithLogger(m.opts.logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return &embeddedClient{core: core}, container, nil
	default:
		return nil, nil, fmt.Errorf("unsupported target %T", target)
	}
}

// Handle returns the current handle, or nil if the manager is not ready.
func (m *Manager) Handle() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Destroy tears down the client: the client is closed first and, for an
// embedded client, its container is shut down afterwards. Teardown errors
// are logged and otherwise ignored. Destroy does nothing if the manager
// holds no client, so it is safe to call more than once.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return
	}
	handle := m.handle
	m.handle = nil
	m.state = stateDestroyed

	err := handle.client.Close()
	if handle.container != nil {
		err = multierr.Append(err, handle.container.Shutdown())
	}
	m.metrics.observeTeardown(handle.kind, err)
	if err != nil {
		m.opts.logger.Warn("error while destroying search client", zap.Stringer("kind", handle.kind), zap.Error(err))
		return
	}
	m.opts.logger.Info("destroyed search client", zap.Stringer("kind", handle.kind))
}

// Handle is a constructed client together with what it was built from.
type Handle struct {
	kind      Kind
	settings  *Settings
	client    Client
	container *embedded.Container
}

// Kind returns the kind of the client. Unlike Settings.Kind, this is
// KindMultiNodeLoadBalanced for a canonical URL with several hosts.
func (h *Handle) Kind() Kind {
	return h.kind
}

// Settings returns the resolved settings, or nil for an embedded client.
func (h *Handle) Settings() *Settings {
	return h.settings
}

// Client returns the constructed client.
func (h *Handle) Client() Client {
	return h.client
}

// Query issues a query through the client. After the manager has been
// destroyed, Query fails with ErrIllegalState.
func (h *Handle) Query(ctx context.Context, params url.Values) (*QueryResponse, error) {
	return h.client.Query(ctx, params)
}
