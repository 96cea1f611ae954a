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
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		url            string
		kind           Kind
		normalized     string
		scheme         string
		hosts          []string
		collection     string
		root           string
		connectTimeout time.Duration
		requestTimeout time.Duration
	}{
		{
			name:           "canonical single host",
			url:            "http://localhost:8983/solr",
			kind:           KindSingleNodeV2,
			normalized:     "http://localhost:8983/solr",
			scheme:         "http",
			hosts:          []string{"localhost:8983/solr"},
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "legacy scheme is rewritten",
			url:            "http_1://host:1/solr/x?collection=c",
			kind:           KindSingleNodeV1,
			normalized:     "http://host:1/solr/x",
			scheme:         "http",
			hosts:          []string{"host:1/solr/x"},
			collection:     "c",
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "https with several hosts and timeouts",
			url:            "https://a:8983, b:8983 ,,c:8983?connect-timeout=250&request-timeout=1500",
			kind:           KindSingleNodeV2,
			normalized:     "https://a:8983, b:8983 ,,c:8983",
			scheme:         "https",
			hosts:          []string{"a:8983", "b:8983", "c:8983"},
			connectTimeout: 250 * time.Millisecond,
			requestTimeout: 1500 * time.Millisecond,
		},
		{
			name:           "coordination with root",
			url:            "cloud://z1:2181,z2:2181/search/prod/?collection=products",
			kind:           KindCoordinatedCluster,
			normalized:     "cloud://z1:2181,z2:2181/search/prod/",
			scheme:         "http",
			hosts:          []string{"z1:2181", "z2:2181"},
			collection:     "products",
			root:           "/search/prod",
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "coordination with bare slash has no root",
			url:            "cloud://z1:2181/",
			kind:           KindCoordinatedCluster,
			normalized:     "cloud://z1:2181/",
			scheme:         "http",
			hosts:          []string{"z1:2181"},
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "deprecated root parameter",
			url:            "cloud://z1:2181?zkRoot=search",
			kind:           KindCoordinatedCluster,
			normalized:     "cloud://z1:2181",
			scheme:         "http",
			hosts:          []string{"z1:2181"},
			root:           "/search",
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "path takes precedence over deprecated root parameter",
			url:            "cloud://z1:2181/primary?zkRoot=/secondary",
			kind:           KindCoordinatedCluster,
			normalized:     "cloud://z1:2181/primary",
			scheme:         "http",
			hosts:          []string{"z1:2181"},
			root:           "/primary",
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "deprecated root parameter ignored without coordination",
			url:            "http://a:8983?zkRoot=/search",
			kind:           KindSingleNodeV2,
			normalized:     "http://a:8983",
			scheme:         "http",
			hosts:          []string{"a:8983"},
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "deprecated timeout parameter",
			url:            "http://a:8983?timeout=30&request-timeout=40&timeout=50",
			kind:           KindSingleNodeV2,
			normalized:     "http://a:8983",
			scheme:         "http",
			hosts:          []string{"a:8983"},
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: 50 * time.Millisecond,
		},
		{
			name:           "empty timeout restores default",
			url:            "http://a:8983?connect-timeout=10&connect-timeout=",
			kind:           KindSingleNodeV2,
			normalized:     "http://a:8983",
			scheme:         "http",
			hosts:          []string{"a:8983"},
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "largest timeout",
			url:            "http://a:8983?connect-timeout=2147483647",
			kind:           KindSingleNodeV2,
			normalized:     "http://a:8983",
			scheme:         "http",
			hosts:          []string{"a:8983"},
			connectTimeout: 2147483647 * time.Millisecond,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "zero timeout",
			url:            "http://a:8983?request-timeout=0",
			kind:           KindSingleNodeV2,
			normalized:     "http://a:8983",
			scheme:         "http",
			hosts:          []string{"a:8983"},
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: 0,
		},
		{
			name:           "tokens without equals and unknown keys are ignored",
			url:            "http://a:8983?debug&wt=xml&collection=c",
			kind:           KindSingleNodeV2,
			normalized:     "http://a:8983",
			scheme:         "http",
			hosts:          []string{"a:8983"},
			collection:     "c",
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "no scheme",
			url:            "  localhost:8983/solr  ",
			kind:           KindUnspecified,
			normalized:     "localhost:8983/solr",
			scheme:         "http",
			hosts:          []string{"localhost:8983/solr"},
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
		{
			name:           "scheme is case insensitive",
			url:            "HTTP://a:8983",
			kind:           KindSingleNodeV2,
			normalized:     "http://a:8983",
			scheme:         "http",
			hosts:          []string{"a:8983"},
			connectTimeout: DefaultConnectTimeout,
			requestTimeout: DefaultRequestTimeout,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			settings, err := Resolve(testCase.url)
			require.NoError(t, err)
			assert.Equal(t, testCase.kind, settings.Kind())
			assert.Equal(t, testCase.normalized, settings.URL())
			assert.Equal(t, testCase.scheme, settings.Scheme())
			assert.Equal(t, testCase.hosts, settings.Hosts())
			assert.Equal(t, testCase.hosts[0], settings.FirstHost())
			collection, ok := settings.Collection()
			assert.Equal(t, testCase.collection, collection)
			assert.Equal(t, testCase.collection != "", ok)
			root, ok := settings.CoordinationRoot()
			assert.Equal(t, testCase.root, root)
			assert.Equal(t, testCase.root != "", ok)
			assert.Equal(t, testCase.connectTimeout, settings.ConnectTimeout())
			assert.Equal(t, testCase.requestTimeout, settings.RequestTimeout())
		})
	}
}

func TestResolveCoordinationHostOrder(t *testing.T) {
	t.Parallel()

	hosts := []string{"z5:2181", "z1:2181", "z3:2181", "z2:2181", "z4:2181"}
	for count := 1; count <= len(hosts); count++ {
		t.Run(strconv.Itoa(count), func(t *testing.T) {
			t.Parallel()
			var url string
			for i, host := range hosts[:count] {
				if i > 0 {
					url += " , "
				}
				url += host
			}
			settings, err := Resolve("cloud://" + url)
			require.NoError(t, err)
			assert.Equal(t, hosts[:count], settings.Hosts())
			_, ok := settings.CoordinationRoot()
			assert.False(t, ok)

			settings, err = Resolve("cloud://" + url + "/solr")
			require.NoError(t, err)
			assert.Equal(t, hosts[:count], settings.Hosts())
			root, ok := settings.CoordinationRoot()
			assert.True(t, ok)
			assert.Equal(t, "/solr", root)
		})
	}
}

func TestResolveCollectionLastWins(t *testing.T) {
	t.Parallel()

	settings, err := Resolve("http://a:1,b:2?collection=first&collection=second")
	require.NoError(t, err)
	collection, ok := settings.Collection()
	assert.True(t, ok)
	assert.Equal(t, "second", collection)

	settings, err = Resolve("http://a:1,b:2?collection=first&collection=")
	require.NoError(t, err)
	collection, ok = settings.Collection()
	assert.False(t, ok)
	assert.Empty(t, collection)
}

func TestResolveLegacyMatchesCanonical(t *testing.T) {
	t.Parallel()

	legacy, err := Resolve("http_1://host:1/solr/x?collection=c&connect-timeout=7")
	require.NoError(t, err)
	canonical, err := Resolve("http://host:1/solr/x?collection=c&connect-timeout=7")
	require.NoError(t, err)

	assert.Equal(t, KindSingleNodeV1, legacy.Kind())
	assert.Equal(t, KindSingleNodeV2, canonical.Kind())
	assert.Equal(t, canonical.URL(), legacy.URL())
	assert.Equal(t, canonical.Scheme(), legacy.Scheme())
	assert.Equal(t, canonical.Hosts(), legacy.Hosts())
	assert.Equal(t, canonical.ConnectTimeout(), legacy.ConnectTimeout())
	assert.Equal(t, canonical.RequestTimeout(), legacy.RequestTimeout())
	legacyCollection, _ := legacy.Collection()
	canonicalCollection, _ := canonical.Collection()
	assert.Equal(t, canonicalCollection, legacyCollection)
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		url   string
		param string
		value string
	}{
		{name: "empty", url: ""},
		{name: "blank", url: " "},
		{name: "no hosts", url: "http://"},
		{name: "only separators", url: "cloud:// , ,/solr"},
		{name: "malformed connect timeout", url: "scheme://h1,h2?connect-timeout=notanumber", param: "connect-timeout", value: "notanumber"},
		{name: "malformed request timeout", url: "http://h1?request-timeout=1.5", param: "request-timeout", value: "1.5"},
		{name: "malformed deprecated timeout", url: "http://h1?timeout=soon", param: "timeout", value: "soon"},
		{name: "negative timeout", url: "http://h1?connect-timeout=-1", param: "connect-timeout", value: "-1"},
		{name: "connect timeout out of range", url: "http://h1?connect-timeout=9223372036855", param: "connect-timeout", value: "9223372036855"},
		{name: "request timeout out of range", url: "http://h1?request-timeout=99999999999999999", param: "request-timeout", value: "99999999999999999"},
		{name: "timeout just above 32 bits", url: "http://h1?timeout=2147483648", param: "timeout", value: "2147483648"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			settings, err := Resolve(testCase.url)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Nil(t, settings)
			if testCase.param == "" {
				return
			}
			assert.ErrorContains(t, err, testCase.param)
			var resolveErr *Error
			require.ErrorAs(t, err, &resolveErr)
			assert.Equal(t, testCase.param, resolveErr.Param)
			assert.Equal(t, testCase.value, resolveErr.Value)
		})
	}
}

func TestSettingsTarget(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		url    string
		target Target
	}{
		{
			url: "http_1://a:1/solr,b:2?request-timeout=10",
			target: SingleNodeTarget{
				Scheme:         "http",
				Host:           "a:1/solr",
				Protocol:       ProtocolHTTP1,
				ConnectTimeout: DefaultConnectTimeout,
				RequestTimeout: 10 * time.Millisecond,
			},
		},
		{
			url: "https://a:1?connect-timeout=20",
			target: SingleNodeTarget{
				Scheme:         "https",
				Host:           "a:1",
				Protocol:       ProtocolHTTP2,
				ConnectTimeout: 20 * time.Millisecond,
				RequestTimeout: DefaultRequestTimeout,
			},
		},
		{
			url:    "http://a:1,b:2?collection=c&request-timeout=10",
			target: BalancedTarget{Scheme: "http", Hosts: []string{"a:1", "b:2"}, Collection: "c"},
		},
		{
			url:    "a:1,b:2",
			target: BalancedTarget{Scheme: "http", Hosts: []string{"a:1", "b:2"}},
		},
		{
			url: "cloud://z1:2181,z2:2181/search?collection=c&connect-timeout=30",
			target: ClusterTarget{
				Hosts:          []string{"z1:2181", "z2:2181"},
				Root:           "/search",
				Collection:     "c",
				ConnectTimeout: 30 * time.Millisecond,
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.url, func(t *testing.T) {
			t.Parallel()
			settings, err := Resolve(testCase.url)
			require.NoError(t, err)
			assert.Equal(t, testCase.target, settings.Target())
		})
	}
	assert.Equal(t, KindSingleNodeV1, SingleNodeTarget{Protocol: ProtocolHTTP1}.Kind())
	assert.Equal(t, KindSingleNodeV2, SingleNodeTarget{Protocol: ProtocolHTTP2}.Kind())
	assert.Equal(t, KindMultiNodeLoadBalanced, BalancedTarget{}.Kind())
	assert.Equal(t, KindCoordinatedCluster, ClusterTarget{}.Kind())
	assert.Equal(t, KindEmbedded, EmbeddedTarget{}.Kind())
}

func TestSettingsHostsIsCopy(t *testing.T) {
	t.Parallel()

	settings, err := Resolve("http://a:1,b:2")
	require.NoError(t, err)
	hosts := settings.Hosts()
	hosts[0] = "mutated"
	assert.Equal(t, []string{"a:1", "b:2"}, settings.Hosts())
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unspecified", KindUnspecified.String())
	assert.Equal(t, "single-node-v1", KindSingleNodeV1.String())
	assert.Equal(t, "single-node-v2", KindSingleNodeV2.String())
	assert.Equal(t, "multi-node-load-balanced", KindMultiNodeLoadBalanced.String())
	assert.Equal(t, "coordinated-cluster", KindCoordinatedCluster.String())
	assert.Equal(t, "embedded", KindEmbedded.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
