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
	"strconv"

	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
	"go.uber.org/multierr"
)

// LatestVersion selects the most recent version of a subject. It is
// resolved by listing the subject's versions and taking the maximum, which
// costs one extra round trip.
const LatestVersion = 0

const schemaRegistryContentType = "application/vnd.schemaregistry.v1+json"

// SchemaRegistryManager drives the REST interface of a Confluent Schema
// Registry: subject and version queries, schema registration and deletion.
// Schemas are validated locally as Avro before they are sent anywhere.
type SchemaRegistryManager struct {
	client restClient
}

// NewSchemaRegistryManager returns a manager bound to the given registry.
// Construction fetches the registry configuration once and fails if the
// registry cannot be reached.
func NewSchemaRegistryManager(ctx context.Context, cfg Config, opts ...Option) (*SchemaRegistryManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m := &SchemaRegistryManager{client: newRESTClient(cfg, applyOptions(opts))}
	if _, err := m.GetConfig(ctx); err != nil {
		return nil, fmt.Errorf("probing schema registry: %w", err)
	}
	return m, nil
}

// GetConfig returns the registry's global configuration.
func (m *SchemaRegistryManager) GetConfig(ctx context.Context) (map[string]any, error) {
	resp, err := m.client.do(ctx, http.MethodGet, "/config", "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.httpError(http.MethodGet, "/config")
	}
	var cfg map[string]any
	if err := json.Unmarshal(resp.Body, &cfg); err != nil {
		return nil, fmt.Errorf("decoding registry config: %w", err)
	}
	return cfg, nil
}

// ListSubjects returns all registered subject names in the order reported
// by the registry.
func (m *SchemaRegistryManager) ListSubjects(ctx context.Context) ([]string, error) {
	resp, err := m.client.do(ctx, http.MethodGet, "/subjects", "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.httpError(http.MethodGet, "/subjects")
	}
	var subjects []string
	if err := json.Unmarshal(resp.Body, &subjects); err != nil {
		return nil, fmt.Errorf("decoding subject list: %w", err)
	}
	return subjects, nil
}

// ListVersions returns the version numbers registered under subject.
func (m *SchemaRegistryManager) ListVersions(ctx context.Context, subject string) ([]int, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject: %w", ErrInvalidArgument)
	}

	path := "/subjects/" + url.PathEscape(subject) + "/versions"
	resp, err := m.client.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.httpError(http.MethodGet, path)
	}
	var versions []int
	if err := json.Unmarshal(resp.Body, &versions); err != nil {
		return nil, fmt.Errorf("decoding versions of subject %q: %w", subject, err)
	}
	return versions, nil
}

// GetSchema returns the schema document registered under the given subject
// version. Pass LatestVersion to resolve the most recent version first.
func (m *SchemaRegistryManager) GetSchema(ctx context.Context, subject string, version int) (any, error) {
	version, err := m.resolveVersion(ctx, subject, version)
	if err != nil {
		return nil, err
	}

	path := "/subjects/" + url.PathEscape(subject) + "/versions/" + strconv.Itoa(version) + "/schema"
	resp, err := m.client.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.httpError(http.MethodGet, path)
	}
	var schema any
	if err := json.Unmarshal(resp.Body, &schema); err != nil {
		return nil, fmt.Errorf("decoding schema of subject %q version %d: %w", subject, version, err)
	}
	return schema, nil
}

// GetSchemaID returns the globally unique schema id registered under the
// given subject version. The id namespace is distinct from the version
// namespace. Pass LatestVersion to resolve the most recent version first.
func (m *SchemaRegistryManager) GetSchemaID(ctx context.Context, subject string, version int) (int, error) {
	version, err := m.resolveVersion(ctx, subject, version)
	if err != nil {
		return 0, err
	}

	path := "/subjects/" + url.PathEscape(subject) + "/versions/" + strconv.Itoa(version)
	resp, err := m.client.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return 0, err
	}
	if !resp.ok() {
		return 0, resp.httpError(http.MethodGet, path)
	}
	var out struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return 0, fmt.Errorf("decoding subject %q version %d: %w", subject, version, err)
	}
	return out.ID, nil
}

// GetSchemaByID returns the schema document with the given id from the
// global schema-id namespace.
func (m *SchemaRegistryManager) GetSchemaByID(ctx context.Context, schemaID int) (any, error) {
	if schemaID < 0 {
		return nil, fmt.Errorf("schema id %d: %w", schemaID, ErrInvalidArgument)
	}

	path := "/schemas/ids/" + strconv.Itoa(schemaID)
	resp, err := m.client.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.httpError(http.MethodGet, path)
	}

	// the registry wraps the schema document in a JSON string
	var out struct {
		Schema string `json:"schema"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("decoding schema %d: %w", schemaID, err)
	}
	var schema any
	if err := json.Unmarshal([]byte(out.Schema), &schema); err != nil {
		return nil, fmt.Errorf("decoding schema %d body: %w", schemaID, err)
	}
	return schema, nil
}

// RegisterSchema registers an Avro schema under subject and returns the id
// the registry assigned to it. The schema is accepted as a JSON-encoded
// string or as a structured document; either way it is validated locally
// as Avro before any request is issued. Registry-side rejections (409
// incompatible evolution, 422 invalid schema) surface as HTTPError with
// the registry's message preserved.
func (m *SchemaRegistryManager) RegisterSchema(ctx context.Context, subject string, schema any) (int, error) {
	var errs error
	if subject == "" {
		errs = multierr.Append(errs, fmt.Errorf("subject: %w", ErrInvalidArgument))
	}
	text, err := normalizeAvroSchema(schema)
	errs = multierr.Append(errs, err)
	if errs != nil {
		return 0, errs
	}

	payload, err := json.Marshal(map[string]string{"schema": text})
	if err != nil {
		return 0, fmt.Errorf("encoding schema for subject %q: %w", subject, err)
	}

	path := "/subjects/" + url.PathEscape(subject) + "/versions"
	resp, err := m.client.do(ctx, http.MethodPost, path, schemaRegistryContentType, payload)
	if err != nil {
		return 0, err
	}
	if !resp.ok() {
		return 0, resp.httpError(http.MethodPost, path)
	}
	var out struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return 0, fmt.Errorf("decoding registration response for subject %q: %w", subject, err)
	}
	return out.ID, nil
}

// DeleteSubject deletes all versions of subject and returns the deleted
// version numbers as reported by the registry.
func (m *SchemaRegistryManager) DeleteSubject(ctx context.Context, subject string) ([]int, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject: %w", ErrInvalidArgument)
	}

	path := "/subjects/" + url.PathEscape(subject)
	resp, err := m.client.do(ctx, http.MethodDelete, path, "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.httpError(http.MethodDelete, path)
	}
	var versions []int
	if err := json.Unmarshal(resp.Body, &versions); err != nil {
		return nil, fmt.Errorf("decoding deleted versions of subject %q: %w", subject, err)
	}
	return versions, nil
}

// DeleteSubjectVersion deletes one version of subject and returns the
// deleted version number. Pass LatestVersion to resolve the most recent
// version first. A missing subject or version surfaces as
// ErrSubjectNotFound, an invalid version (422) as HTTPError.
func (m *SchemaRegistryManager) DeleteSubjectVersion(ctx context.Context, subject string, version int) (int, error) {
	version, err := m.resolveVersion(ctx, subject, version)
	if err != nil {
		return 0, err
	}

	path := "/subjects/" + url.PathEscape(subject) + "/versions/" + strconv.Itoa(version)
	resp, err := m.client.do(ctx, http.MethodDelete, path, "", nil)
	if err != nil {
		return 0, err
	}
	switch {
	case resp.ok():
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("subject %q version %d: %w", subject, version, ErrSubjectNotFound)
	default:
		return 0, resp.httpError(http.MethodDelete, path)
	}

	var deleted int
	if err := json.Unmarshal(resp.Body, &deleted); err != nil {
		return 0, fmt.Errorf("decoding deleted version of subject %q: %w", subject, err)
	}
	return deleted, nil
}

// resolveVersion validates the subject and version and resolves
// LatestVersion to the maximum registered version.
func (m *SchemaRegistryManager) resolveVersion(ctx context.Context, subject string, version int) (int, error) {
	if subject == "" {
		return 0, fmt.Errorf("subject: %w", ErrInvalidArgument)
	}
	if version < 0 {
		return 0, fmt.Errorf("version %d: %w", version, ErrInvalidArgument)
	}
	if version != LatestVersion {
		return version, nil
	}

	versions, err := m.ListVersions(ctx, subject)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, fmt.Errorf("subject %q has no versions: %w", subject, ErrSubjectNotFound)
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}

// normalizeAvroSchema renders the schema as its JSON text and validates the
// Avro syntax locally, so obviously broken schemas never reach the
// registry.
func normalizeAvroSchema(schema any) (string, error) {
	var text string
	switch s := schema.(type) {
	case nil:
		return "", fmt.Errorf("schema: %w", ErrInvalidArgument)
	case string:
		if s == "" {
			return "", fmt.Errorf("schema: %w", ErrInvalidArgument)
		}
		text = s
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("schema is not encodable as JSON: %w", ErrInvalidArgument)
		}
		text = string(b)
	}

	if _, err := goavro.NewCodec(text); err != nil {
		return "", &SchemaParseError{Err: err}
	}
	return text, nil
}
