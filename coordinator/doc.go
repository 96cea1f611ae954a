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

// Package coordinator connects to the coordination service (ZooKeeper)
// that a search cluster registers its state with, and discovers the
// serving nodes from it.
//
// A [Session] is established with [Connect], which performs the
// handshake: it waits for the ZooKeeper session to be granted, bounded
// by the connect timeout, and then verifies that the cluster state
// exists under the configured coordination root. A session implements
// [resolver.ResolveProber], so it can be polled for the cluster's live
// nodes with [resolver.NewPollingResolver].
//
// The coordination root is a chroot-style path prefix, for example
// "/search/prod", that scopes the state of one deployment inside a
// shared ZooKeeper ensemble. It is applied to every path read by the
// session.
package coordinator
