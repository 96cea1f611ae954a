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
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/bufbuild/searchconn/embedded"
)

const defaultRows = 10

func isEmbeddedURL(rawURL string) bool {
	return len(rawURL) >= len(EmbeddedScheme) && strings.EqualFold(rawURL[:len(EmbeddedScheme)], EmbeddedScheme)
}

// embeddedTarget builds the target for a "file://" URL. The path after
// the scheme is the data directory.
func embeddedTarget(rawURL, configPath string) (EmbeddedTarget, error) {
	dataDir := strings.TrimSpace(rawURL[len(EmbeddedScheme):])
	if dataDir == "" {
		return EmbeddedTarget{}, invalidConfiguration(rawURL, "the embedded connection string names no data directory")
	}
	return EmbeddedTarget{DataDir: dataDir, ConfigPath: configPath}, nil
}

// embeddedClient serves match-all queries from an in-process core.
type embeddedClient struct {
	core   *embedded.Core
	closed atomic.Bool
}

func (c *embeddedClient) Query(ctx context.Context, params url.Values) (*QueryResponse, error) {
	if c.closed.Load() {
		return nil, illegalState(errClientClosed.Error())
	}
	if q := params.Get("q"); q != "" && q != "*:*" {
		return nil, fmt.Errorf("embedded core supports only match-all queries, got %q", q)
	}
	start, err := intParam(params, "start", 0)
	if err != nil {
		return nil, err
	}
	rows, err := intParam(params, "rows", defaultRows)
	if err != nil {
		return nil, err
	}
	numFound, docs, err := c.core.Query(ctx, start, rows)
	if errors.Is(err, embedded.ErrCoreClosed) {
		return nil, illegalState(errClientClosed.Error())
	} else if err != nil {
		return nil, err
	}
	return &QueryResponse{
		Results: Results{NumFound: numFound, Start: int64(start), Docs: docs},
	}, nil
}

func (c *embeddedClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.core.Close()
}

func intParam(params url.Values, name string, fallback int) (int, error) {
	value := params.Get(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("parameter %q must be a non-negative integer, got %q", name, value)
	}
	return parsed, nil
}
