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

import "strings"

// jdbcDialects lists the recognized dialects in matching order. Detection
// is a plain substring check on the connection URL.
var jdbcDialects = []string{"mysql", "oracle", "postgresql", "sqlserver", "mariadb"}

type jdbcAttributes struct {
	Dialect  string
	Location string // host/instance fragment
	Database string // database name, or SID for Oracle
}

// parseJDBCURL decomposes a JDBC connection URL into its dialect, location
// and database using positional string splits. The splits assume a well
// formed URL for the detected dialect; a malformed URL produces a best
// effort (possibly wrong) result, never an error. Returns false when no
// dialect substring matches.
func parseJDBCURL(rawURL string) (jdbcAttributes, bool) {
	for _, dialect := range jdbcDialects {
		if !strings.Contains(rawURL, dialect) {
			continue
		}
		location, database := jdbcParsers[dialect](rawURL)
		return jdbcAttributes{
			Dialect:  dialect,
			Location: location,
			Database: database,
		}, true
	}
	return jdbcAttributes{}, false
}

// One parsing function per dialect, so swapping a positional split for a
// structured URL parser stays a local change.
var jdbcParsers = map[string]func(string) (location, database string){
	"mysql":      parseMySQLURL,
	"oracle":     parseOracleURL,
	"postgresql": parsePostgresURL,
	"sqlserver":  parseSQLServerURL,
	"mariadb":    parseMariaDBURL,
}

// jdbc:mysql://host:port/database?params
func parseMySQLURL(u string) (string, string) {
	parts := strings.Split(u, "/")
	database, _, _ := strings.Cut(segment(parts, 3), "?")
	return segment(parts, 2), database
}

// jdbc:oracle:thin:user/password@host:port/SID
func parseOracleURL(u string) (string, string) {
	atParts := strings.Split(u, "@")
	location, _, _ := strings.Cut(segment(atParts, 1), "/")
	slashParts := strings.Split(u, "/")
	return location, segment(slashParts, -1)
}

// jdbc:postgresql://host:port/database
func parsePostgresURL(u string) (string, string) {
	parts := strings.Split(u, "/")
	return segment(parts, 2), segment(parts, -1)
}

// jdbc:sqlserver://host:port;databaseName=database
func parseSQLServerURL(u string) (string, string) {
	semiParts := strings.Split(u, ";")
	hostPart := strings.Split(segment(semiParts, 0), "/")
	dbPart := strings.Split(segment(semiParts, -1), "=")
	return segment(hostPart, -1), segment(dbPart, 1)
}

// jdbc:mariadb://host:port/database
func parseMariaDBURL(u string) (string, string) {
	parts := strings.Split(u, "/")
	return segment(parts, -2), segment(parts, -1)
}

// segment returns parts[i], supporting negative indices counted from the
// end. Out-of-range indices yield "" instead of panicking, which is what
// keeps malformed URLs best effort.
func segment(parts []string, i int) string {
	if i < 0 {
		i += len(parts)
	}
	if i < 0 || i >= len(parts) {
		return ""
	}
	return parts[i]
}
