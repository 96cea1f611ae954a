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
	"errors"

	"github.com/bufbuild/searchconn/resolver"
)

// ErrNoAddresses is returned by pickers that have no node to choose from.
var ErrNoAddresses = errors.New("no nodes available")

// Picker implements node selection. Pickers are immutable snapshots of a
// resolved node set and are safe for concurrent use.
type Picker interface {
	Pick() (resolver.Address, error)
}

// ErrorPicker returns a picker that always fails with the given error.
func ErrorPicker(err error) Picker {
	return pickerFunc(func() (resolver.Address, error) {
		return resolver.Address{}, err
	})
}

type pickerFunc func() (resolver.Address, error)

func (f pickerFunc) Pick() (resolver.Address, error) {
	return f()
}
