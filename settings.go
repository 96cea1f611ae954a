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
	"time"
)

// Default timeouts. The idle timeout is not configurable.
const (
	DefaultConnectTimeout = 5_000 * time.Millisecond
	DefaultRequestTimeout = 60_000 * time.Millisecond
	DefaultIdleTimeout    = 3_600_000 * time.Millisecond
)

// Kind identifies the transport variant a client is built with.
type Kind int

const (
	// KindUnspecified is reported by Resolve for a connection string
	// without a recognized scheme.
	KindUnspecified Kind = iota
	// KindSingleNodeV1 is a direct HTTP/1.1 client to one node, selected
	// by the legacy "http_1://" scheme.
	KindSingleNodeV1
	// KindSingleNodeV2 is a direct HTTP/2 client to one node, selected by
	// "http://" or "https://" with a single host.
	KindSingleNodeV2
	// KindMultiNodeLoadBalanced is a client balancing over a static list
	// of nodes, selected by "http://" or "https://" with several hosts.
	KindMultiNodeLoadBalanced
	// KindCoordinatedCluster is a client that discovers its nodes through
	// a coordination service, selected by "cloud://".
	KindCoordinatedCluster
	// KindEmbedded is an in-process core, selected by "file://".
	KindEmbedded
)

func (k Kind) String() string {
	switch k {
	case KindUnspecified:
		return "unspecified"
	case KindSingleNodeV1:
		return "single-node-v1"
	case KindSingleNodeV2:
		return "single-node-v2"
	case KindMultiNodeLoadBalanced:
		return "multi-node-load-balanced"
	case KindCoordinatedCluster:
		return "coordinated-cluster"
	case KindEmbedded:
		return "embedded"
	default:
		return "unknown"
	}
}

// Settings is a resolved connection string. It is immutable; use Resolve
// to create one.
type Settings struct {
	kind           Kind
	scheme         string
	url            string
	hosts          []string
	collection     string
	root           string
	connectTimeout time.Duration
	requestTimeout time.Duration
}

// Kind returns the kind determined from the connection string's scheme.
// It is never KindMultiNodeLoadBalanced; see Target.
func (s *Settings) Kind() Kind {
	return s.kind
}

// URL returns the connection string before any parameters, with a legacy
// scheme rewritten to its canonical form.
func (s *Settings) URL() string {
	return s.url
}

// Scheme returns the URL scheme used to reach HTTP nodes, "http" or
// "https".
func (s *Settings) Scheme() string {
	return s.scheme
}

// Hosts returns the host tokens in the order they were given.
func (s *Settings) Hosts() []string {
	hosts := make([]string, len(s.hosts))
	copy(hosts, s.hosts)
	return hosts
}

// FirstHost returns the first host token.
func (s *Settings) FirstHost() string {
	return s.hosts[0]
}

// Collection returns the target collection, if one was given.
func (s *Settings) Collection() (string, bool) {
	return s.collection, s.collection != ""
}

// CoordinationRoot returns the coordination root path. It is only ever
// present for KindCoordinatedCluster.
func (s *Settings) CoordinationRoot() (string, bool) {
	return s.root, s.root != ""
}

// ConnectTimeout returns the connect timeout.
func (s *Settings) ConnectTimeout() time.Duration {
	return s.connectTimeout
}

// RequestTimeout returns the request timeout.
func (s *Settings) RequestTimeout() time.Duration {
	return s.requestTimeout
}

// Target returns the construction target for these settings. A legacy
// single-node URL always targets its first host; a canonical URL targets
// a single node when it has exactly one host and balances over all hosts
// otherwise.
func (s *Settings) Target() Target {
	switch s.kind { //nolint:exhaustive // canonical and unspecified share the default branch
	case KindCoordinatedCluster:
		return ClusterTarget{
			Hosts:          s.Hosts(),
			Root:           s.root,
			Collection:     s.collection,
			ConnectTimeout: s.connectTimeout,
		}
	case KindSingleNodeV1:
		return SingleNodeTarget{
			Scheme:         s.scheme,
			Host:           s.FirstHost(),
			Protocol:       ProtocolHTTP1,
			ConnectTimeout: s.connectTimeout,
			RequestTimeout: s.requestTimeout,
		}
	default:
		if len(s.hosts) == 1 {
			return SingleNodeTarget{
				Scheme:         s.scheme,
				Host:           s.FirstHost(),
				Protocol:       ProtocolHTTP2,
				ConnectTimeout: s.connectTimeout,
				RequestTimeout: s.requestTimeout,
			}
		}
		return BalancedTarget{
			Scheme:     s.scheme,
			Hosts:      s.Hosts(),
			Collection: s.collection,
		}
	}
}

// Protocol is the HTTP version spoken by a single-node client.
type Protocol int

const (
	// ProtocolHTTP1 forces HTTP/1.1.
	ProtocolHTTP1 Protocol = iota + 1
	// ProtocolHTTP2 speaks HTTP/2: h2c over "http", ALPN over "https".
	ProtocolHTTP2
)

// Target describes one construction branch, carrying only the fields
// that branch uses. It is one of SingleNodeTarget, BalancedTarget,
// ClusterTarget or EmbeddedTarget.
type Target interface {
	// Kind returns the kind of client built for the target.
	Kind() Kind
	isTarget()
}

// SingleNodeTarget is a direct client to one node.
type SingleNodeTarget struct {
	Scheme         string
	Host           string
	Protocol       Protocol
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// Kind implements Target.
func (t SingleNodeTarget) Kind() Kind {
	if t.Protocol == ProtocolHTTP1 {
		return KindSingleNodeV1
	}
	return KindSingleNodeV2
}

func (SingleNodeTarget) isTarget() {}

// BalancedTarget is a round-robin client over a static node list.
type BalancedTarget struct {
	Scheme     string
	Hosts      []string
	Collection string
}

// Kind implements Target.
func (BalancedTarget) Kind() Kind {
	return KindMultiNodeLoadBalanced
}

func (BalancedTarget) isTarget() {}

// ClusterTarget is a client whose nodes are discovered through a
// coordination service.
type ClusterTarget struct {
	Hosts          []string
	Root           string
	Collection     string
	ConnectTimeout time.Duration
}

// Kind implements Target.
func (ClusterTarget) Kind() Kind {
	return KindCoordinatedCluster
}

func (ClusterTarget) isTarget() {}

// EmbeddedTarget is an in-process core.
type EmbeddedTarget struct {
	DataDir    string
	ConfigPath string
}

// Kind implements Target.
func (EmbeddedTarget) Kind() Kind {
	return KindEmbedded
}

func (EmbeddedTarget) isTarget() {}
