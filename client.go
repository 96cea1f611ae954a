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
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// The search handler every node serves under its base URL.
const selectPath = "/select"

// Client is a constructed search client. Implementations are safe for
// concurrent use.
type Client interface {
	// Query issues a search request. The given parameters are sent as-is,
	// except that "wt" is always "json" and "q" defaults to "*:*". After
	// Close, Query fails with ErrIllegalState.
	Query(ctx context.Context, params url.Values) (*QueryResponse, error)
	// Close releases the resources held by the client. It is safe to call
	// more than once.
	Close() error
}

// QueryResponse is the decoded body of a search response.
type QueryResponse struct {
	Header  ResponseHeader `json:"responseHeader"`
	Results Results        `json:"response"`
}

// ResponseHeader describes how a request was served.
type ResponseHeader struct {
	Status int `json:"status"`
	QTime  int `json:"QTime"`
}

// Results holds the documents matched by a query.
type Results struct {
	NumFound int64             `json:"numFound"`
	Start    int64             `json:"start"`
	Docs     []json.RawMessage `json:"docs"`
}

// StatusError is returned by Query when a node answers with a status
// other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request to %s failed: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request to %s failed: %d %s: %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

var errClientClosed = errors.New("search client is closed")

// maxErrorBodyBytes bounds how much of an error response body is kept.
const maxErrorBodyBytes = 512

func newDialer(connectTimeout time.Duration) *net.Dialer {
	return &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
}

func queryValues(params url.Values) url.Values {
	values := make(url.Values, len(params)+2)
	for key, vals := range params {
		values[key] = append([]string(nil), vals...)
	}
	if values.Get("q") == "" {
		values.Set("q", "*:*")
	}
	values.Set("wt", "json")
	return values
}

func executeQuery(ctx context.Context, httpClient *http.Client, base string, params url.Values) (*QueryResponse, error) {
	target := strings.TrimRight(base, "/") + selectPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+queryValues(params).Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var response QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("could not decode response from %s: %w", target, err)
	}
	return &response, nil
}
