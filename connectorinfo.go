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
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Connector categories, derived from the connector class name.
const (
	CategorySource       = "source"
	CategorySink         = "sink"
	CategoryAll          = "all"
	CategoryUndetermined = "undetermined"
)

// Technology labels for the recognized connector classes.
const (
	TechnologyJDBC          = "JDBC"
	TechnologyActiveMQ      = "ActiveMQ"
	TechnologyS3            = "S3"
	TechnologyElasticsearch = "Elasticsearch"
	TechnologyHDFS          = "HDFS"
	TechnologyIBMMQ         = "IBM MQ"
	TechnologyJMS           = "JMS"
)

const jdbcSourceClass = "io.confluent.connect.jdbc.JdbcSourceConnector"

// connectorTechnologies maps fully qualified connector class names to
// technology labels. The table is closed on purpose: classes outside it
// leave the technology unresolved and the derived topics empty.
var connectorTechnologies = map[string]string{
	jdbcSourceClass: TechnologyJDBC,
	"io.confluent.connect.jdbc.JdbcSinkConnector":                   TechnologyJDBC,
	"io.confluent.connect.activemq.ActiveMQSourceConnectorConfig":   TechnologyActiveMQ,
	"io.confluent.connect.s3.S3SinkConnector":                       TechnologyS3,
	"io.confluent.connect.elasticsearch.ElasticsearchSinkConnector": TechnologyElasticsearch,
	"io.confluent.connect.hdfs.HdfsSinkConnector":                   TechnologyHDFS,
	"io.confluent.connect.ibm.mq.IbmMQSourceConnectorConfig":        TechnologyIBMMQ,
	"io.confluent.connect.jms.JmsSourceConnector":                   TechnologyJMS,
}

// ConnectorInfo is a read-only snapshot of a connector, computed fresh on
// every Inspect call. Config never aliases a shared response buffer.
type ConnectorInfo struct {
	Name       string
	Category   string // source, sink or undetermined
	Technology string // empty when the connector class is not recognized
	Vendor     string // Confluent or Unknown
	State      string // UNASSIGNED, RUNNING, PAUSED or FAILED
	Config     map[string]string

	// The fields below are derived for JDBC source connectors only.
	JDBCDialect       string
	JDBCLocation      string
	JDBCDatabaseOrSID string
	Tables            []string // tracked tables, empty in query mode
	Topics            []string // topics the connector produces to
	Subjects          []string // a -key and a -value subject per topic
}

// enrichmentConfig is the subset of the raw connector configuration the
// enrichment step cares about.
type enrichmentConfig struct {
	ConnectorClass string `mapstructure:"connector.class"`
	ConnectionURL  string `mapstructure:"connection.url"`
	TableWhitelist string `mapstructure:"table.whitelist"`
	TopicPrefix    string `mapstructure:"topic.prefix"`
}

// enrich classifies the connector by category, vendor and technology and,
// for JDBC sources, derives the connection attributes and the topic and
// subject names it produces.
func (i *ConnectorInfo) enrich() error {
	var cfg enrichmentConfig
	if err := mapstructure.Decode(i.Config, &cfg); err != nil {
		return fmt.Errorf("decoding connector config: %w", err)
	}

	switch {
	case strings.Contains(cfg.ConnectorClass, "Source"):
		i.Category = CategorySource
	case strings.Contains(cfg.ConnectorClass, "Sink"):
		i.Category = CategorySink
	default:
		i.Category = CategoryUndetermined
	}

	i.Vendor = "Unknown"
	if strings.Contains(cfg.ConnectorClass, "confluent") {
		i.Vendor = "Confluent"
	}

	i.Technology = connectorTechnologies[cfg.ConnectorClass]
	if cfg.ConnectorClass != jdbcSourceClass {
		return nil
	}

	if attrs, ok := parseJDBCURL(cfg.ConnectionURL); ok {
		i.JDBCDialect = attrs.Dialect
		i.JDBCLocation = attrs.Location
		i.JDBCDatabaseOrSID = attrs.Database
	}

	// Whitelist mode tracks tables and derives one topic per table. Query
	// mode has no tracked tables, the prefix itself is the topic.
	if _, ok := i.Config["table.whitelist"]; ok {
		i.Tables = strings.Split(cfg.TableWhitelist, ",")
		i.Topics = make([]string, 0, len(i.Tables))
		for _, table := range i.Tables {
			i.Topics = append(i.Topics, cfg.TopicPrefix+table)
		}
	} else {
		i.Tables = []string{}
		i.Topics = []string{cfg.TopicPrefix}
	}

	i.Subjects = make([]string, 0, 2*len(i.Topics))
	for _, topic := range i.Topics {
		i.Subjects = append(i.Subjects, topic+"-key", topic+"-value")
	}
	return nil
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	clone := make(map[string]string, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
