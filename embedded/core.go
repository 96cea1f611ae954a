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

package embedded

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrCoreClosed is returned by operations on a core that has been closed.
var ErrCoreClosed = errors.New("core is closed")

var docPrefix = []byte("doc/") //nolint:gochecknoglobals

// Core is a single search core hosted by a Container.
type Core struct {
	name         string
	instancePath string
	dataDir      string
	schema       *Schema
	settings     *Settings
	db           *badger.DB

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Name returns the name the core was created with.
func (c *Core) Name() string {
	return c.name
}

// InstancePath returns the directory the core's configuration was read from.
func (c *Core) InstancePath() string {
	return c.instancePath
}

// DataDir returns the directory holding the core's documents.
func (c *Core) DataDir() string {
	return c.dataDir
}

// Schema returns the core's schema.
func (c *Core) Schema() *Schema {
	return c.schema
}

// Settings returns the core's settings.
func (c *Core) Settings() *Settings {
	return c.settings
}

// Add stores the given documents, keyed by the schema's unique key.
// A document with the key of a stored document replaces it.
func (c *Core) Add(docs ...map[string]any) error {
	if c.closed.Load() {
		return ErrCoreClosed
	}
	return c.db.Update(func(txn *badger.Txn) error {
		for _, doc := range docs {
			id, ok := doc[c.schema.UniqueKey]
			if !ok {
				return fmt.Errorf("document has no value for unique key %q", c.schema.UniqueKey)
			}
			data, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			if err := txn.Set(docKey(id), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Query matches all stored documents. It returns the total number of
// documents and up to rows documents, skipping the first start.
func (c *Core) Query(ctx context.Context, start, rows int) (numFound int64, docs []json.RawMessage, err error) {
	if c.closed.Load() {
		return 0, nil, ErrCoreClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	err = c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = docPrefix
		iter := txn.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if numFound >= int64(start) && len(docs) < rows {
				value, err := iter.Item().ValueCopy(nil)
				if err != nil {
					return err
				}
				docs = append(docs, value)
			}
			numFound++
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return numFound, docs, nil
}

// Close closes the core's storage. It is safe to call more than once.
func (c *Core) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

func docKey(id any) []byte {
	return append(append([]byte(nil), docPrefix...), fmt.Sprint(id)...)
}
