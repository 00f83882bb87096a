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
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jpillora/backoff"
	"github.com/matryer/is"
)

func newTestConnectorManager(t *testing.T, handler http.HandlerFunc, opts ...Option) (*ConnectorManager, *recordingServer) {
	t.Helper()

	srv, cfg := newRecordingServer(t, handler)
	m, err := NewConnectorManager(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("constructing connector manager: %v", err)
	}
	srv.reset()
	return m, srv
}

// connectorHandler serves a single connector under any name with the given
// config and state.
func connectorHandler(config map[string]string, state string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			writeJSON(w, http.StatusOK, `{"version":"2.3.0"}`)
		case strings.HasSuffix(r.URL.Path, "/status"):
			name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/connectors/"), "/status")
			payload, _ := json.Marshal(map[string]any{
				"name":      name,
				"connector": map[string]string{"state": state},
			})
			writeJSON(w, http.StatusOK, string(payload))
		default:
			name := strings.TrimPrefix(r.URL.Path, "/connectors/")
			payload, _ := json.Marshal(map[string]any{
				"name":   name,
				"config": config,
			})
			writeJSON(w, http.StatusOK, string(payload))
		}
	}
}

func TestNewConnectorManager_ToleratesProbeHTTPError(t *testing.T) {
	is := is.New(t)

	srv, cfg := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := NewConnectorManager(context.Background(), cfg)
	is.NoErr(err) // a non-2xx probe still proves reachability
}

func TestNewConnectorManager_ServerUnavailable(t *testing.T) {
	is := is.New(t)

	srv, cfg := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := NewConnectorManager(context.Background(), cfg)
	is.True(errors.Is(err, ErrServerUnavailable))
}

func TestNewConnectorManager_InvalidConfig(t *testing.T) {
	is := is.New(t)

	_, err := NewConnectorManager(context.Background(), Config{Host: "", Port: 8083})
	is.True(errors.Is(err, ErrInvalidArgument))

	_, err = NewConnectorManager(context.Background(), Config{Host: "localhost", Port: -1})
	is.True(errors.Is(err, ErrInvalidArgument))
}

func TestList_InvalidCategory(t *testing.T) {
	is := is.New(t)

	m, srv := newTestConnectorManager(t, connectorHandler(nil, "RUNNING"))

	_, err := m.List(context.Background(), "bogus")
	is.True(errors.Is(err, ErrInvalidArgument))
	is.Equal(len(srv.recorded()), 0) // no request may be issued
}

func TestList_FiltersByCategory(t *testing.T) {
	is := is.New(t)

	configs := map[string]map[string]string{
		"orders-source": {"connector.class": "org.example.FileSourceConnector"},
		"orders-sink":   {"connector.class": "org.example.FileSinkConnector"},
	}
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			writeJSON(w, http.StatusOK, `{}`)
		case r.URL.Path == "/connectors":
			writeJSON(w, http.StatusOK, `["orders-source","orders-sink"]`)
		case strings.HasSuffix(r.URL.Path, "/status"):
			writeJSON(w, http.StatusOK, `{"connector":{"state":"RUNNING"}}`)
		default:
			name := strings.TrimPrefix(r.URL.Path, "/connectors/")
			payload, _ := json.Marshal(map[string]any{"name": name, "config": configs[name]})
			writeJSON(w, http.StatusOK, string(payload))
		}
	}
	m, _ := newTestConnectorManager(t, handler)

	sources, err := m.List(context.Background(), CategorySource)
	is.NoErr(err)
	is.Equal(len(sources), 1)
	is.Equal(sources[0].Name, "orders-source")
	is.Equal(sources[0].Category, CategorySource)

	all, err := m.List(context.Background(), CategoryAll)
	is.NoErr(err)
	is.Equal(len(all), 2)
	is.Equal(all[0].Name, "orders-source") // listing order is preserved
	is.Equal(all[1].Name, "orders-sink")
}

func TestList_AbortsOnInspectFailure(t *testing.T) {
	is := is.New(t)

	handler := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/", "/connectors":
			writeJSON(w, http.StatusOK, `["ghost"]`)
		default:
			writeJSON(w, http.StatusNotFound, `{"error_code":404}`)
		}
	}
	m, _ := newTestConnectorManager(t, handler)

	_, err := m.List(context.Background(), CategoryAll)
	is.True(errors.Is(err, ErrConnectorNotFound))
}

func TestInspect_JDBCSourceEnrichment(t *testing.T) {
	is := is.New(t)

	config := map[string]string{
		"connector.class": "io.confluent.connect.jdbc.JdbcSourceConnector",
		"connection.url":  "jdbc:mysql://host1:3306/mydb",
		"table.whitelist": "t1,t2",
		"topic.prefix":    "pfx-",
	}
	m, _ := newTestConnectorManager(t, connectorHandler(config, "RUNNING"))

	info, err := m.Inspect(context.Background(), "x")
	is.NoErr(err)
	is.Equal(info.Name, "x")
	is.Equal(info.Category, CategorySource)
	is.Equal(info.Technology, TechnologyJDBC)
	is.Equal(info.Vendor, "Confluent")
	is.Equal(info.State, "RUNNING")
	is.Equal(info.JDBCDialect, "mysql")
	is.Equal(info.JDBCLocation, "host1:3306")
	is.Equal(info.JDBCDatabaseOrSID, "mydb")
	is.Equal(info.Tables, []string{"t1", "t2"})
	is.Equal(info.Topics, []string{"pfx-t1", "pfx-t2"})
	is.Equal(info.Subjects, []string{"pfx-t1-key", "pfx-t1-value", "pfx-t2-key", "pfx-t2-value"})
}

func TestInspect_JDBCSourceQueryMode(t *testing.T) {
	is := is.New(t)

	config := map[string]string{
		"connector.class": "io.confluent.connect.jdbc.JdbcSourceConnector",
		"connection.url":  "jdbc:postgresql://pg:5432/warehouse",
		"topic.prefix":    "orders-query",
	}
	m, _ := newTestConnectorManager(t, connectorHandler(config, "PAUSED"))

	info, err := m.Inspect(context.Background(), "q")
	is.NoErr(err)
	is.Equal(info.JDBCDialect, "postgresql")
	is.Equal(info.Tables, []string{})
	is.Equal(info.Topics, []string{"orders-query"})
	is.Equal(info.Subjects, []string{"orders-query-key", "orders-query-value"})
}

func TestInspect_UnknownClass(t *testing.T) {
	is := is.New(t)

	config := map[string]string{
		"connector.class": "org.example.FancySinkConnector",
	}
	m, _ := newTestConnectorManager(t, connectorHandler(config, "RUNNING"))

	info, err := m.Inspect(context.Background(), "fancy")
	is.NoErr(err)
	is.Equal(info.Category, CategorySink)
	is.Equal(info.Vendor, "Unknown")
	is.Equal(info.Technology, "")
	is.Equal(len(info.Topics), 0)
	is.Equal(len(info.Subjects), 0)
}

func TestInspect_ConfigDoesNotAliasResponse(t *testing.T) {
	is := is.New(t)

	config := map[string]string{"connector.class": "org.example.FileSourceConnector"}
	m, _ := newTestConnectorManager(t, connectorHandler(config, "RUNNING"))

	first, err := m.Inspect(context.Background(), "x")
	is.NoErr(err)
	first.Config["connector.class"] = "mutated"

	second, err := m.Inspect(context.Background(), "x")
	is.NoErr(err)
	is.Equal(second.Config["connector.class"], "org.example.FileSourceConnector")
}

func TestInspect_EmptyName(t *testing.T) {
	is := is.New(t)

	m, srv := newTestConnectorManager(t, connectorHandler(nil, "RUNNING"))

	_, err := m.Inspect(context.Background(), "")
	is.True(errors.Is(err, ErrInvalidArgument))
	is.Equal(len(srv.recorded()), 0)
}

func TestInspect_NotFound(t *testing.T) {
	is := is.New(t)

	m, _ := newTestConnectorManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error_code":404,"message":"not found"}`)
	})

	_, err := m.Inspect(context.Background(), "ghost")
	is.True(errors.Is(err, ErrConnectorNotFound))
}

func TestInspect_RetriesOnStaleConfig(t *testing.T) {
	is := is.New(t)

	conflicts := 1
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/connectors/x" && conflicts > 0 {
			conflicts--
			writeJSON(w, http.StatusConflict, `{"error_code":409,"message":"stale configuration"}`)
			return
		}
		connectorHandler(map[string]string{"connector.class": "org.example.FileSourceConnector"}, "RUNNING")(w, r)
	}
	m, srv := newTestConnectorManager(t, handler)

	start := time.Now()
	info, err := m.Inspect(context.Background(), "x")
	is.NoErr(err)
	is.Equal(info.State, "RUNNING")
	is.True(time.Since(start) >= time.Second) // one full backoff delay before the retry

	var configFetches int
	for _, req := range srv.recorded() {
		if req.Path == "/connectors/x" {
			configFetches++
		}
	}
	is.Equal(configFetches, 2)
}

func TestInspect_RetryBudgetExhausted(t *testing.T) {
	is := is.New(t)

	policy := RetryPolicy{
		MaxAttempts: 2,
		Backoff:     &backoff.Backoff{Factor: 1, Min: time.Millisecond, Max: time.Millisecond},
	}
	m, srv := newTestConnectorManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, `{"error_code":409,"message":"stale configuration"}`)
	}, WithRetryPolicy(policy))

	_, err := m.Inspect(context.Background(), "x")
	var httpErr *HTTPError
	is.True(errors.As(err, &httpErr))
	is.Equal(httpErr.StatusCode, http.StatusConflict)
	is.Equal(len(srv.recorded()), 2)
}

func TestInspect_RetryRespectsContext(t *testing.T) {
	is := is.New(t)

	m, _ := newTestConnectorManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, `{"error_code":409,"message":"stale configuration"}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Inspect(ctx, "x")
	is.True(errors.Is(err, context.DeadlineExceeded))
}

func TestStatus(t *testing.T) {
	is := is.New(t)

	m, _ := newTestConnectorManager(t, connectorHandler(nil, "FAILED"))

	state, err := m.Status(context.Background(), "x")
	is.NoErr(err)
	is.Equal(state, "FAILED")
}

func TestCreate(t *testing.T) {
	is := is.New(t)

	m, srv := newTestConnectorManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"name":"orders"}`)
	})

	ok, err := m.Create(context.Background(), "orders", map[string]string{
		"connector.class": "org.example.FileSourceConnector",
		"tasks.max":       "1",
	})
	is.NoErr(err)
	is.True(ok)

	reqs := srv.recorded()
	is.Equal(len(reqs), 1)
	is.Equal(reqs[0].Method, http.MethodPost)
	is.Equal(reqs[0].Path, "/connectors")

	var body struct {
		Name   string            `json:"name"`
		Config map[string]string `json:"config"`
	}
	is.NoErr(json.Unmarshal(reqs[0].Body, &body))
	is.Equal(body.Name, "orders")
	is.Equal(body.Config["tasks.max"], "1")
}

func TestCreate_JSONStringConfig(t *testing.T) {
	is := is.New(t)

	m, srv := newTestConnectorManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{}`)
	})

	ok, err := m.Create(context.Background(), "orders", `{"connector.class":"org.example.FileSourceConnector"}`)
	is.NoErr(err)
	is.True(ok)
	is.Equal(len(srv.recorded()), 1)
}

func TestCreate_InvalidInputs(t *testing.T) {
	is := is.New(t)

	m, srv := newTestConnectorManager(t, connectorHandler(nil, "RUNNING"))

	_, err := m.Create(context.Background(), "orders", "{not json")
	is.True(errors.Is(err, ErrInvalidArgument))

	_, err = m.Create(context.Background(), "", map[string]string{})
	is.True(errors.Is(err, ErrInvalidArgument))

	_, err = m.Create(context.Background(), "orders", 42)
	is.True(errors.Is(err, ErrInvalidArgument))

	is.Equal(len(srv.recorded()), 0)
}

func TestLifecycleOperations(t *testing.T) {
	testCases := []struct {
		name       string
		op         func(*ConnectorManager, context.Context, string) (bool, error)
		wantMethod string
		wantPath   string
	}{
		{"pause", (*ConnectorManager).Pause, http.MethodPut, "/connectors/x/pause"},
		{"resume", (*ConnectorManager).Resume, http.MethodPut, "/connectors/x/resume"},
		{"restart", (*ConnectorManager).Restart, http.MethodPost, "/connectors/x/restart"},
		{"delete", (*ConnectorManager).Delete, http.MethodDelete, "/connectors/x/"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)

			m, srv := newTestConnectorManager(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{}`)
			})

			ok, err := tc.op(m, context.Background(), "x")
			is.NoErr(err)
			is.True(ok)

			reqs := srv.recorded()
			is.Equal(len(reqs), 1)
			is.Equal(reqs[0].Method, tc.wantMethod)
			is.Equal(reqs[0].Path, tc.wantPath)

			_, err = tc.op(m, context.Background(), "")
			is.True(errors.Is(err, ErrInvalidArgument))
		})
	}
}

func TestResume_NotFound(t *testing.T) {
	is := is.New(t)

	m, _ := newTestConnectorManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error_code":404}`)
	})

	_, err := m.Resume(context.Background(), "ghost")
	is.True(errors.Is(err, ErrConnectorNotFound))
}

func TestPause_NotFoundIsPlainHTTPError(t *testing.T) {
	is := is.New(t)

	m, _ := newTestConnectorManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error_code":404}`)
	})

	// pause has no dedicated not-found mapping, the status surfaces as is
	_, err := m.Pause(context.Background(), "ghost")
	is.True(!errors.Is(err, ErrConnectorNotFound))
	var httpErr *HTTPError
	is.True(errors.As(err, &httpErr))
	is.Equal(httpErr.StatusCode, http.StatusNotFound)
}
