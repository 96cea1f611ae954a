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

package picker

import (
	"sync/atomic"

	"github.com/bufbuild/searchconn/internal"
	"github.com/bufbuild/searchconn/resolver"
)

type roundRobin struct {
	addresses []resolver.Address
	// +checkatomic
	counter atomic.Int64
}

// NewRoundRobin creates a picker that picks nodes in sequential order. In
// order to mitigate the risk of a "thundering herd" scenario, the order of
// nodes is randomized each time a picker is created, which is each time
// the node set changes. With no addresses, the picker fails with
// ErrNoAddresses.
func NewRoundRobin(addresses []resolver.Address) Picker {
	if len(addresses) == 0 {
		return ErrorPicker(ErrNoAddresses)
	}
	picker := &roundRobin{addresses: internal.Shuffled(addresses)}
	picker.counter.Store(-1)
	return picker
}

func (r *roundRobin) Pick() (resolver.Address, error) {
	return r.addresses[uint64(r.counter.Add(1))%uint64(len(r.addresses))], nil
}
