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
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"
)

// ConnectorManager drives the REST interface of a Kafka Connect
// deployment. All operations are synchronous and independent, the manager
// holds no state besides the endpoint coordinates fixed at construction.
type ConnectorManager struct {
	client restClient
	retry  RetryPolicy
}

// NewConnectorManager verifies the Connect endpoint is reachable and
// returns a manager bound to it. The probe only proves reachability: a
// non-2xx response is tolerated, a connection-level failure is not.
func NewConnectorManager(ctx context.Context, cfg Config, opts ...Option) (*ConnectorManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	m := &ConnectorManager{
		client: newRESTClient(cfg, o),
		retry:  o.retry,
	}
	if _, err := m.client.do(ctx, http.MethodGet, "/", "", nil); err != nil {
		return nil, fmt.Errorf("probing connect server: %w", err)
	}
	return m, nil
}

// List fetches all connectors, inspects each one and keeps those matching
// category (CategorySource, CategorySink or CategoryAll). The result
// preserves the order reported by Connect. A failing inspection aborts the
// whole listing, no partial results are returned.
func (m *ConnectorManager) List(ctx context.Context, category string) ([]ConnectorInfo, error) {
	switch category {
	case CategorySource, CategorySink, CategoryAll:
	default:
		return nil, fmt.Errorf("connector category %q: %w", category, ErrInvalidArgument)
	}

	resp, err := m.client.do(ctx, http.MethodGet, "/connectors", "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.httpError(http.MethodGet, "/connectors")
	}
	var names []string
	if err := json.Unmarshal(resp.Body, &names); err != nil {
		return nil, fmt.Errorf("decoding connector list: %w", err)
	}

	infos := make([]ConnectorInfo, 0, len(names))
	for _, name := range names {
		info, err := m.Inspect(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("inspecting connector %q: %w", name, err)
		}
		if category == CategoryAll || info.Category == category {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// Inspect fetches the raw configuration of the named connector, enriches
// it with derived metadata and attaches the connector state. A Connect
// stale-configuration conflict on the config fetch is retried according to
// the manager's RetryPolicy.
func (m *ConnectorManager) Inspect(ctx context.Context, name string) (ConnectorInfo, error) {
	if name == "" {
		return ConnectorInfo{}, fmt.Errorf("connector name: %w", ErrInvalidArgument)
	}

	path := "/connectors/" + url.PathEscape(name)
	var raw struct {
		Name   string            `json:"name"`
		Config map[string]string `json:"config"`
	}
	err := m.retry.run(ctx, m.client.logger, func() error {
		resp, err := m.client.do(ctx, http.MethodGet, path, "", nil)
		if err != nil {
			return err
		}
		switch {
		case resp.ok():
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("connector %q: %w", name, ErrConnectorNotFound)
		case resp.StatusCode == http.StatusConflict:
			return fmt.Errorf("%w: %w", errStaleConfiguration, resp.httpError(http.MethodGet, path))
		default:
			return resp.httpError(http.MethodGet, path)
		}
		if err := json.Unmarshal(resp.Body, &raw); err != nil {
			return fmt.Errorf("decoding connector %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return ConnectorInfo{}, err
	}

	info := ConnectorInfo{
		Name: raw.Name,
		// the snapshot must not alias the decoded response
		Config: cloneStringMap(raw.Config),
	}
	if info.Name == "" {
		info.Name = name
	}
	if err := info.enrich(); err != nil {
		return ConnectorInfo{}, err
	}

	state, err := m.Status(ctx, name)
	if err != nil {
		return ConnectorInfo{}, err
	}
	info.State = state
	return info, nil
}

// Status returns the state of the named connector: UNASSIGNED, RUNNING,
// PAUSED or FAILED.
func (m *ConnectorManager) Status(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("connector name: %w", ErrInvalidArgument)
	}

	path := "/connectors/" + url.PathEscape(name) + "/status"
	resp, err := m.client.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return "", err
	}
	switch {
	case resp.ok():
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("connector %q: %w", name, ErrConnectorNotFound)
	default:
		return "", resp.httpError(http.MethodGet, path)
	}

	var status struct {
		Connector struct {
			State string `json:"state"`
		} `json:"connector"`
	}
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return "", fmt.Errorf("decoding connector %q status: %w", name, err)
	}
	return status.Connector.State, nil
}

// Create registers a new connector. The configuration is accepted either
// as a JSON-encoded string or as an already structured mapping.
func (m *ConnectorManager) Create(ctx context.Context, name string, config any) (bool, error) {
	var errs error
	if name == "" {
		errs = multierr.Append(errs, fmt.Errorf("connector name: %w", ErrInvalidArgument))
	}
	cfg, err := normalizeConnectorConfig(config)
	errs = multierr.Append(errs, err)
	if errs != nil {
		return false, errs
	}

	payload, err := json.Marshal(map[string]any{
		"name":   name,
		"config": cfg,
	})
	if err != nil {
		return false, fmt.Errorf("encoding connector %q: %w", name, err)
	}

	resp, err := m.client.do(ctx, http.MethodPost, "/connectors", "application/json", payload)
	if err != nil {
		return false, err
	}
	if !resp.ok() {
		return false, resp.httpError(http.MethodPost, "/connectors")
	}
	return true, nil
}

// Pause pauses the named connector and its tasks.
func (m *ConnectorManager) Pause(ctx context.Context, name string) (bool, error) {
	return m.lifecycle(ctx, http.MethodPut, name, "/pause", false)
}

// Resume resumes a paused connector.
func (m *ConnectorManager) Resume(ctx context.Context, name string) (bool, error) {
	return m.lifecycle(ctx, http.MethodPut, name, "/resume", true)
}

// Restart restarts the named connector.
func (m *ConnectorManager) Restart(ctx context.Context, name string) (bool, error) {
	return m.lifecycle(ctx, http.MethodPost, name, "/restart", true)
}

// Delete removes the named connector, halting all its tasks and deleting
// its configuration.
func (m *ConnectorManager) Delete(ctx context.Context, name string) (bool, error) {
	return m.lifecycle(ctx, http.MethodDelete, name, "/", true)
}

func (m *ConnectorManager) lifecycle(ctx context.Context, method, name, suffix string, mapNotFound bool) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("connector name: %w", ErrInvalidArgument)
	}

	path := "/connectors/" + url.PathEscape(name) + suffix
	resp, err := m.client.do(ctx, method, path, "", nil)
	if err != nil {
		return false, err
	}
	switch {
	case resp.ok():
		return true, nil
	case mapNotFound && resp.StatusCode == http.StatusNotFound:
		return false, fmt.Errorf("connector %q: %w", name, ErrConnectorNotFound)
	default:
		return false, resp.httpError(method, path)
	}
}

// normalizeConnectorConfig accepts the connector configuration as a JSON
// string or as a structured mapping and returns it in structured form.
func normalizeConnectorConfig(config any) (map[string]any, error) {
	switch c := config.(type) {
	case string:
		if c == "" {
			return nil, fmt.Errorf("connector config: %w", ErrInvalidArgument)
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(c), &m); err != nil {
			return nil, fmt.Errorf("connector config is not valid JSON: %w", ErrInvalidArgument)
		}
		return m, nil
	case map[string]any:
		if len(c) == 0 {
			return nil, fmt.Errorf("connector config: %w", ErrInvalidArgument)
		}
		return c, nil
	case map[string]string:
		if len(c) == 0 {
			return nil, fmt.Errorf("connector config: %w", ErrInvalidArgument)
		}
		m := make(map[string]any, len(c))
		for k, v := range c {
			m[k] = v
		}
		return m, nil
	default:
		return nil, fmt.Errorf("connector config must be a JSON string or a mapping: %w", ErrInvalidArgument)
	}
}
