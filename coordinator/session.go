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

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bufbuild/searchconn/internal"
	"github.com/bufbuild/searchconn/resolver"
	"github.com/go-zookeeper/zk"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultSessionTimeout is the ZooKeeper session timeout used when no
	// WithSessionTimeout option is given.
	DefaultSessionTimeout = 15 * time.Second

	liveNodesPath   = "/live_nodes"
	collectionsPath = "/collections"
)

// ErrHandshakeTimeout is returned by Connect when no session was granted
// within the connect timeout.
var ErrHandshakeTimeout = errors.New("coordination handshake timed out")

// Conn is the subset of a ZooKeeper connection used by a Session.
// *zk.Conn implements it.
type Conn interface {
	Children(path string) ([]string, *zk.Stat, error)
	Exists(path string) (bool, *zk.Stat, error)
	Close()
}

// Dialer opens a connection to the given ZooKeeper servers. The returned
// channel delivers session events and is closed when the connection is
// closed.
type Dialer func(servers []string, sessionTimeout time.Duration, logger *zap.Logger) (Conn, <-chan zk.Event, error)

// DialZooKeeper is the default Dialer. It uses the go-zookeeper client
// and routes its logging to the given logger at debug level.
func DialZooKeeper(servers []string, sessionTimeout time.Duration, logger *zap.Logger) (Conn, <-chan zk.Event, error) {
	conn, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(zkLogger{logger: logger}))
	if err != nil {
		return nil, nil, err
	}
	return conn, events, nil
}

type zkLogger struct {
	logger *zap.Logger
}

func (l zkLogger) Printf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Option is an option used to customize a Session.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

// WithConnectTimeout bounds the handshake. If zero or no
// WithConnectTimeout option is given, the handshake is bounded only by
// the context passed to Connect.
func WithConnectTimeout(timeout time.Duration) Option {
	return optionFunc(func(opts *options) {
		opts.connectTimeout = timeout
	})
}

// WithSessionTimeout configures the ZooKeeper session timeout. If zero or
// no WithSessionTimeout option is given, DefaultSessionTimeout is used.
func WithSessionTimeout(timeout time.Duration) Option {
	return optionFunc(func(opts *options) {
		opts.sessionTimeout = timeout
	})
}

// WithDialer replaces DialZooKeeper as the way connections are opened.
func WithDialer(dialer Dialer) Option {
	return optionFunc(func(opts *options) {
		opts.dialer = dialer
	})
}

// WithLogger configures the logger used by the session.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

type options struct {
	connectTimeout time.Duration
	sessionTimeout time.Duration
	dialer         Dialer
	logger         *zap.Logger
	clock          internal.Clock
}

func (opts *options) applyDefaults() {
	if opts.sessionTimeout == 0 {
		opts.sessionTimeout = DefaultSessionTimeout
	}
	if opts.dialer == nil {
		opts.dialer = DialZooKeeper
	}
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
	if opts.clock == nil {
		opts.clock = internal.NewRealClock()
	}
}

// Session is an established connection to the coordination service,
// scoped to one coordination root.
type Session struct {
	conn      Conn
	root      string
	logger    *zap.Logger
	closeOnce sync.Once
	done      chan struct{}
}

var _ resolver.ResolveProber = (*Session)(nil)

// Connect dials the given servers and performs the handshake. The root
// must be empty or start with "/". Connect returns only once a session
// has been granted and the cluster state under root has been found; on
// any failure the connection is closed before returning.
func Connect(ctx context.Context, servers []string, root string, opts ...Option) (*Session, error) {
	var sessionOpts options
	for _, opt := range opts {
		opt.apply(&sessionOpts)
	}
	sessionOpts.applyDefaults()

	if len(servers) == 0 {
		return nil, errors.New("no coordination servers given")
	}
	if root != "" && !strings.HasPrefix(root, "/") {
		return nil, fmt.Errorf("coordination root %q must start with '/'", root)
	}

	conn, events, err := sessionOpts.dialer(servers, sessionOpts.sessionTimeout, sessionOpts.logger)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", strings.Join(servers, ","), err)
	}
	session := &Session{
		conn:   conn,
		root:   root,
		logger: sessionOpts.logger.With(zap.Strings("servers", servers), zap.String("root", root)),
		done:   make(chan struct{}),
	}
	// One deadline bounds both the session grant and the verification.
	var deadline <-chan time.Time
	if sessionOpts.connectTimeout > 0 {
		deadline = sessionOpts.clock.After(sessionOpts.connectTimeout)
	}
	if err := session.awaitSession(ctx, events, deadline, sessionOpts.connectTimeout); err != nil {
		conn.Close()
		return nil, err
	}
	go session.watchEvents(events)
	if err := session.verify(ctx, deadline, sessionOpts.connectTimeout); err != nil {
		session.Close()
		return nil, err
	}
	session.logger.Info("coordination session established")
	return session, nil
}

func (s *Session) awaitSession(ctx context.Context, events <-chan zk.Event, deadline <-chan time.Time, timeout time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w after %v", ErrHandshakeTimeout, timeout)
		case event, ok := <-events:
			if !ok {
				return errors.New("coordination connection closed during handshake")
			}
			switch event.State { //nolint:exhaustive // other states are transient during the handshake
			case zk.StateHasSession:
				return nil
			case zk.StateAuthFailed:
				return errors.New("coordination service rejected authentication")
			case zk.StateExpired:
				return errors.New("coordination session expired during handshake")
			}
			if event.Err != nil {
				s.logger.Debug("coordination handshake event", zap.Error(event.Err))
			}
		}
	}
}

func (s *Session) watchEvents(events <-chan zk.Event) {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type == zk.EventSession {
				s.logger.Debug("coordination session state changed", zap.Stringer("state", event.State))
			}
		}
	}
}

// verify checks concurrently that the coordination root and the cluster's
// live node registry exist. Reads that outlast ctx or the deadline are
// abandoned; closing the session unblocks them.
func (s *Session) verify(ctx context.Context, deadline <-chan time.Time, timeout time.Duration) error {
	var group errgroup.Group
	if s.root != "" {
		group.Go(func() error {
			return s.mustExist(s.root, "coordination root")
		})
	}
	group.Go(func() error {
		return s.mustExist(s.path(liveNodesPath), "live node registry")
	})
	result := make(chan error, 1)
	go func() {
		result <- group.Wait()
	}()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-deadline:
		return fmt.Errorf("%w after %v", ErrHandshakeTimeout, timeout)
	}
}

func (s *Session) mustExist(nodePath, what string) error {
	exists, _, err := s.conn.Exists(nodePath)
	if err != nil {
		return fmt.Errorf("could not read %s %q: %w", what, nodePath, err)
	}
	if !exists {
		return fmt.Errorf("%s %q does not exist", what, nodePath)
	}
	return nil
}

func (s *Session) path(nodePath string) string {
	if s.root == "" {
		return nodePath
	}
	return path.Join(s.root, nodePath)
}

// VerifyCollection checks that the named collection is registered under
// the session's root.
func (s *Session) VerifyCollection(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return s.mustExist(s.path(path.Join(collectionsPath, name)), "collection")
}

// Root returns the coordination root of the session.
func (s *Session) Root() string {
	return s.root
}

// LiveNodes returns the serving nodes currently registered with the
// coordination service, sorted by address.
func (s *Session) LiveNodes() ([]resolver.Address, error) {
	names, _, err := s.conn.Children(s.path(liveNodesPath))
	if err != nil {
		return nil, fmt.Errorf("could not list live nodes: %w", err)
	}
	addresses := make([]resolver.Address, 0, len(names))
	for _, name := range names {
		address, err := ParseNodeName(name)
		if err != nil {
			s.logger.Warn("skipping malformed live node", zap.String("node", name), zap.Error(err))
			continue
		}
		addresses = append(addresses, address)
	}
	sort.Slice(addresses, func(i, j int) bool {
		return addresses[i].String() < addresses[j].String()
	})
	return addresses, nil
}

// ResolveOnce implements resolver.ResolveProber.
func (s *Session) ResolveOnce(context.Context) ([]resolver.Address, time.Duration, error) {
	addresses, err := s.LiveNodes()
	return addresses, 0, err
}

// Close closes the session. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// ParseNodeName converts a live node name, such as "10.0.0.1:8983_solr",
// into an address. The part after the first underscore is the node's
// URL-escaped context path.
func ParseNodeName(name string) (resolver.Address, error) {
	hostPort, contextPath, _ := strings.Cut(name, "_")
	if hostPort == "" || !strings.Contains(hostPort, ":") {
		return resolver.Address{}, fmt.Errorf("node name %q has no host:port", name)
	}
	contextPath, err := url.PathUnescape(contextPath)
	if err != nil {
		return resolver.Address{}, fmt.Errorf("node name %q: %w", name, err)
	}
	contextPath = strings.Trim(contextPath, "/")
	if contextPath == "" {
		return resolver.Address{HostPort: hostPort}, nil
	}
	return resolver.Address{HostPort: hostPort, Path: "/" + contextPath}, nil
}
