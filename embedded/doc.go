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

// Package embedded provides an in-process hosting container for a search
// core, used for local and test scenarios where no network transport is
// wanted.
//
// A [Container] hosts cores created from an instance directory holding
// two configuration artifacts, conf/schema.xml and conf/solrconfig.xml.
// Each [Core] stores its documents in a badger database under its data
// directory.
//
// [Open] is the usual entry point. When the configuration path exists on
// disk it is used directly as the instance directory. Otherwise the path
// is looked up in a bundled resource file system, the artifacts are
// copied into a temporary instance directory owned by the container, and
// that directory is removed when the container shuts down.
package embedded
