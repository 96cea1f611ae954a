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
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	paramCollection     = "collection"
	paramConnectTimeout = "connect-timeout"
	paramRequestTimeout = "request-timeout"
	// Deprecated spellings.
	paramTimeout = "timeout"
	paramZKRoot  = "zkRoot"

	schemeSeparator = "://"
	// EmbeddedScheme selects an in-process core. URLs with this scheme are
	// not handled by Resolve.
	EmbeddedScheme = "file://"
)

type schemeRule struct {
	prefix    string
	canonical string
	scheme    string
	kind      Kind
}

// Order matters: the first matching prefix wins.
//
//nolint:gochecknoglobals
var schemeRules = []schemeRule{
	{prefix: "http_1://", canonical: "http://", scheme: "http", kind: KindSingleNodeV1},
	{prefix: "http://", canonical: "http://", scheme: "http", kind: KindSingleNodeV2},
	{prefix: "https://", canonical: "https://", scheme: "https", kind: KindSingleNodeV2},
	{prefix: "cloud://", canonical: "cloud://", scheme: "http", kind: KindCoordinatedCluster},
}

// Resolve parses a connection string of the form
//
//	<scheme>://<host>(,<host>)*[/<path>][?<key>=<value>(&<key>=<value>)*]
//
// Recognized parameters are "collection", "connect-timeout" and
// "request-timeout" (timeouts in milliseconds), plus the deprecated
// "timeout" (for "request-timeout") and "zkRoot". When a parameter is
// repeated, the last occurrence wins; an empty value means not set.
// Parameters without '=' are ignored.
//
// For the "cloud://" scheme, a path after the host list is the
// coordination root. For other schemes the path is part of each host
// token.
//
// A connection string without a recognized scheme resolves with
// KindUnspecified. Resolve fails with ErrInvalidConfiguration if url is
// blank, names no hosts, or carries a timeout that is not a non-negative
// 32-bit integer.
func Resolve(url string) (*Settings, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, invalidConfiguration(url, "the connection string is not set or empty")
	}

	settings := &Settings{
		scheme:         "http",
		connectTimeout: DefaultConnectTimeout,
		requestTimeout: DefaultRequestTimeout,
	}
	normalized, rest := url, url
	if rule, ok := matchScheme(url); ok {
		settings.kind = rule.kind
		settings.scheme = rule.scheme
		rest = url[len(rule.prefix):]
		normalized = rule.canonical + rest
	} else if _, after, found := strings.Cut(url, schemeSeparator); found {
		rest = after
	}

	hostPart, paramPart, _ := strings.Cut(rest, "?")
	settings.url, _, _ = strings.Cut(normalized, "?")

	paramRoot, err := settings.parseParameters(url, paramPart)
	if err != nil {
		return nil, err
	}
	if settings.kind == KindCoordinatedCluster {
		hostPart, settings.root = splitRoot(hostPart)
		if settings.root == "" {
			settings.root = normalizeRoot(paramRoot)
		}
	}
	settings.hosts = splitHosts(hostPart)
	if len(settings.hosts) == 0 {
		return nil, invalidConfiguration(url, "the connection string names no hosts")
	}
	return settings, nil
}

func matchScheme(url string) (schemeRule, bool) {
	for _, rule := range schemeRules {
		if len(url) >= len(rule.prefix) && strings.EqualFold(url[:len(rule.prefix)], rule.prefix) {
			return rule, true
		}
	}
	return schemeRule{}, false
}

// hasForeignScheme reports whether url carries a scheme that neither
// Resolve nor the embedded branch recognizes.
func hasForeignScheme(url string) bool {
	if _, ok := matchScheme(url); ok {
		return false
	}
	return strings.Contains(url, schemeSeparator)
}

func splitRoot(hostPart string) (hosts, root string) {
	hosts, root, _ = strings.Cut(hostPart, "/")
	return hosts, normalizeRoot(root)
}

func normalizeRoot(root string) string {
	root = strings.Trim(strings.TrimSpace(root), "/")
	if root == "" {
		return ""
	}
	return "/" + root
}

func splitHosts(hostPart string) []string {
	var hosts []string
	for _, host := range strings.Split(hostPart, ",") {
		if host = strings.TrimSpace(host); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

func (s *Settings) parseParameters(url, paramPart string) (zkRoot string, err error) {
	if paramPart == "" {
		return "", nil
	}
	for _, token := range strings.Split(paramPart, "&") {
		key, value, found := strings.Cut(token, "=")
		if !found {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch key {
		case paramCollection:
			s.collection = value
		case paramConnectTimeout:
			if s.connectTimeout, err = parseTimeout(url, key, value, DefaultConnectTimeout); err != nil {
				return "", err
			}
		case paramRequestTimeout, paramTimeout:
			if s.requestTimeout, err = parseTimeout(url, key, value, DefaultRequestTimeout); err != nil {
				return "", err
			}
		case paramZKRoot:
			zkRoot = value
		}
	}
	return zkRoot, nil
}

func parseTimeout(url, name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	// Timeouts are 32-bit millisecond counts.
	millis, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, invalidParameter(url, name, value,
			fmt.Sprintf("could not parse %q for parameter %q as integer", value, name), err)
	}
	if millis < 0 {
		return 0, invalidParameter(url, name, value,
			fmt.Sprintf("parameter %q must not be negative, got %q", name, value), nil)
	}
	return time.Duration(millis) * time.Millisecond, nil
}
