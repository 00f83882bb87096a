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
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a required input is empty or
	// malformed. It is always detected before a request is issued.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrServerUnavailable is returned when the remote endpoint cannot be
	// reached at the transport level.
	ErrServerUnavailable = errors.New("server unavailable")

	// ErrConnectorNotFound is returned when Kafka Connect reports 404 for
	// the requested connector.
	ErrConnectorNotFound = errors.New("connector not available")

	// ErrSubjectNotFound is returned when the Schema Registry reports 404
	// for the requested subject or version.
	ErrSubjectNotFound = errors.New("subject or version not found")

	// errStaleConfiguration marks the Connect 409 response to a config
	// fetch ("cannot complete request momentarily due to stale
	// configuration"). The retry policy consumes it, callers only see it
	// as a 409 HTTPError once the attempt budget is spent.
	errStaleConfiguration = errors.New("stale configuration")
)

// SchemaParseError reports a schema that failed local Avro syntax
// validation. No request is issued when it occurs.
type SchemaParseError struct {
	Err error
}

func (e *SchemaParseError) Error() string {
	return fmt.Sprintf("invalid Avro schema: %v", e.Err)
}

func (e *SchemaParseError) Unwrap() error { return e.Err }

// HTTPError is any non-2xx response that doesn't map to a more specific
// error. It preserves the original status code and body for the caller to
// inspect.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}
