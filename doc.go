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

/*
Package sdk implements typed clients for the REST interfaces of a Kafka
Connect deployment and a Confluent Schema Registry.

Two independent managers are provided. [ConnectorManager] covers the
connector lifecycle (list, inspect, create, pause, resume, restart,
delete) and enriches inspected connectors with derived metadata: the
connector category and vendor, the technology behind a known connector
class and, for JDBC sources, the decomposed connection URL plus the Kafka
topics and Schema Registry subjects the connector produces.
[SchemaRegistryManager] covers subjects, versions and schemas, validating
every schema locally as Avro before it is sent to the registry.

	cfg := sdk.ConfigFromEnv("CONNECT", sdk.DefaultConnectConfig())
	mgr, err := sdk.NewConnectorManager(ctx, cfg)
	if err != nil {
	    return err
	}
	info, err := mgr.Inspect(ctx, "orders-source")

Both managers translate failures into a small error taxonomy: invalid
inputs are rejected before any request with [ErrInvalidArgument],
connection-level failures become [ErrServerUnavailable], missing resources
become [ErrConnectorNotFound] or [ErrSubjectNotFound], local Avro
rejections become [SchemaParseError], and every other non-2xx response is
an [HTTPError] carrying the original status and body.

Calls are synchronous and stateless; the managers keep nothing but the
endpoint coordinates fixed at construction. The single exception is the
stale-configuration conflict Connect can answer during an inspection,
which is retried internally according to a configurable [RetryPolicy]
(forever, once per second, by default).
*/
package sdk
