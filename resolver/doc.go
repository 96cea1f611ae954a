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

// Package resolver provides the address resolution used by the
// load-balanced search clients. A resolver turns a deployment
// description into the set of serving nodes a client may send
// requests to.
//
// It contains the core interface ([Resolver]) that can be implemented
// to create a custom resolution strategy. Two implementations are
// included: a static resolver for a fixed host list taken from a
// connection string, and a polling resolver that repeatedly calls a
// [ResolveProber]. The coordinator package provides a prober that reads
// the live nodes registered with a coordination service.
package resolver
