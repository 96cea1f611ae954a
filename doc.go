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

// Package searchconn builds search clients from a single connection
// string. Resolve parses the string into Settings, and a Manager
// constructs exactly one client from it and later tears it down.
//
// # Connection strings
//
// A connection string has the form
//
//	<scheme>://<host>(,<host>)*[/<path>][?<key>=<value>(&<key>=<value>)*]
//
// The scheme selects how the client is built:
//
//   - "http://" and "https://" with one host build a direct HTTP/2
//     client to that node. Over plain "http", HTTP/2 is spoken without
//     TLS (h2c).
//   - "http://" and "https://" with several hosts build a client that
//     sends requests round-robin to all of them.
//   - "http_1://" is the legacy scheme. It builds a direct HTTP/1.1
//     client to the first host and is reported as "http://".
//   - "cloud://" builds a client for a cluster whose nodes register with
//     a ZooKeeper ensemble. The hosts are the ensemble and the path, if
//     any, is the cluster's root in it.
//   - "file://" builds an in-process core storing its data in the
//     directory named by the path.
//
// A string without any scheme is treated like "http://".
//
// The parameters "connect-timeout" and "request-timeout" are timeouts in
// milliseconds, defaulting to DefaultConnectTimeout and
// DefaultRequestTimeout. The "collection" parameter names the collection
// requests go to. "timeout" and "zkRoot" are accepted as deprecated
// spellings of "request-timeout" and of the cluster root.
//
// # Lifecycle
//
//	manager := searchconn.NewManager(searchconn.WithLogger(logger))
//	if err := manager.Initialize(ctx, "cloud://zk1:2181,zk2:2181/search?collection=products", ""); err != nil {
//	    return err
//	}
//	defer manager.Destroy()
//	resp, err := manager.Handle().Query(ctx, url.Values{"q": {"*:*"}})
//
// A manager holds at most one client. Once destroyed, it cannot be
// initialized again.
package searchconn
