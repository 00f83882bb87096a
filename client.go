// Copyright © 2024 the kafka-manager-sdk authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sdk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 30 * time.Second

	// maxResponseBodySize bounds how much of a response is read into
	// memory. Connector configs and schemas are small, anything larger is
	// truncated.
	maxResponseBodySize = 1 << 20 // 1 MiB
)

// Option adjusts a manager at construction time.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     zerolog.Logger
	retry      RetryPolicy
}

func applyOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
		retry:      DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithHTTPClient replaces the HTTP client used for all exchanges. Useful
// for custom timeouts or transports.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger attaches a logger to the manager. By default managers are
// silent.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRetryPolicy replaces the policy applied to the connector config fetch
// when Connect answers with a stale-configuration conflict. It has no
// effect on SchemaRegistryManager.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

// restClient issues the synchronous HTTP exchanges shared by both managers.
// It maps transport-level failures to ErrServerUnavailable and leaves
// status-code mapping to each operation.
type restClient struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func newRESTClient(cfg Config, o options) restClient {
	return restClient{
		baseURL: fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		http:    o.httpClient,
		logger:  o.logger,
	}
}

type restResponse struct {
	StatusCode int
	Body       []byte
}

func (r restResponse) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r restResponse) httpError(method, path string) *HTTPError {
	return &HTTPError{
		Method:     method,
		Path:       path,
		StatusCode: r.StatusCode,
		Body:       r.Body,
	}
}

func (c *restClient) do(ctx context.Context, method, path, contentType string, body []byte) (restResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return restResponse{}, fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return restResponse{}, fmt.Errorf("%s %s: %w", method, path, err)
		}
		return restResponse{}, fmt.Errorf("%s %s: %w", method, path, ErrServerUnavailable)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return restResponse{}, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("http exchange")

	return restResponse{StatusCode: resp.StatusCode, Body: b}, nil
}
