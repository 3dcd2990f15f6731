package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/stretchr/testify/require"

	"api_smoke_testing/internal/model"
	"api_smoke_testing/internal/schema"
	"api_smoke_testing/internal/transport"
)

const idSchema = `{"type":"object","required":["id"],"properties":{"id":{"type":"integer"}}}`

func newTestLogger(t *testing.T) glog.Logger {
	t.Helper()
	logger, err := glog.NewConsoleWithName("runner-test", glog.LevelInfo)
	require.NoError(t, err)
	return logger
}

// newEndpoint serves fixed responses keyed by path.
func newEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/user":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": 1, "name": "x"}`))
		case "/nameonly":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name": "x"}`))
		case "/html":
			_, _ = w.Write([]byte(`<html>ok</html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	client := transport.New()
	t.Cleanup(client.Close)
	return NewEvaluator(client, schema.NewValidator(), newTestLogger(t))
}

func requireConsistent(t *testing.T, rec model.ResultRecord) {
	t.Helper()
	if rec.Passed {
		require.Empty(t, rec.Error)
		require.Equal(t, model.FailureNone, rec.Failure)
		require.NotNil(t, rec.ActualStatus)
		require.Equal(t, rec.ExpectedStatus, *rec.ActualStatus)
		return
	}
	require.NotEmpty(t, rec.Error)
	require.NotEqual(t, model.FailureNone, rec.Failure)
	require.True(t, strings.HasPrefix(rec.Error, string(rec.Failure)), "error %q should start with %q", rec.Error, rec.Failure)
}

func TestEvaluateHealthyEndpointPasses(t *testing.T) {
	srv := newEndpoint(t)
	rec := newEvaluator(t).Evaluate(context.Background(), model.Case{
		Name:       "health",
		Definition: model.CaseDefinition{Method: "GET", URL: srv.URL + "/health", ExpectedStatus: 200},
	})

	requireConsistent(t, rec)
	require.True(t, rec.Passed)
	require.Empty(t, rec.Error)
	require.Equal(t, 200, *rec.ActualStatus)
	require.Positive(t, rec.LatencyMs)
}

func TestEvaluateStatusMismatch(t *testing.T) {
	srv := newEndpoint(t)
	rec := newEvaluator(t).Evaluate(context.Background(), model.Case{
		Name:       "missing",
		Definition: model.CaseDefinition{Method: "GET", URL: srv.URL + "/nope", ExpectedStatus: 200},
	})

	requireConsistent(t, rec)
	require.False(t, rec.Passed)
	require.Equal(t, "status_mismatch: got 404", rec.Error)
	require.Equal(t, 404, *rec.ActualStatus)
}

func TestEvaluateStatusMismatchSkipsSchema(t *testing.T) {
	srv := newEndpoint(t)
	rec := newEvaluator(t).Evaluate(context.Background(), model.Case{
		Name: "missing_with_schema",
		Definition: model.CaseDefinition{
			URL:    srv.URL + "/nope",
			Schema: json.RawMessage(`{"type":"object","required":["never"]}`),
		},
	})

	requireConsistent(t, rec)
	require.Equal(t, model.FailureStatusMismatch, rec.Failure)
	require.Equal(t, "status_mismatch: got 404", rec.Error)
}

func TestEvaluateSchemaViolation(t *testing.T) {
	srv := newEndpoint(t)
	rec := newEvaluator(t).Evaluate(context.Background(), model.Case{
		Name: "user_shape",
		Definition: model.CaseDefinition{
			URL:            srv.URL + "/nameonly",
			ExpectedStatus: 200,
			Schema:         json.RawMessage(idSchema),
		},
	})

	requireConsistent(t, rec)
	require.False(t, rec.Passed)
	require.True(t, strings.HasPrefix(rec.Error, "schema_error:"), rec.Error)
	require.Contains(t, rec.Error, "id")
}

func TestEvaluateSchemaConformance(t *testing.T) {
	srv := newEndpoint(t)
	rec := newEvaluator(t).Evaluate(context.Background(), model.Case{
		Name:       "user",
		Definition: model.CaseDefinition{URL: srv.URL + "/user", Schema: json.RawMessage(idSchema)},
	})

	requireConsistent(t, rec)
	require.True(t, rec.Passed)
}

func TestEvaluateNonJSONWithSchema(t *testing.T) {
	srv := newEndpoint(t)
	for _, path := range []string{"/html", "/health"} {
		rec := newEvaluator(t).Evaluate(context.Background(), model.Case{
			Name:       "page",
			Definition: model.CaseDefinition{URL: srv.URL + path, Schema: json.RawMessage(idSchema)},
		})
		requireConsistent(t, rec)
		require.Equal(t, "non_json_response", rec.Error, path)
	}
}

func TestEvaluateNoSchemaIgnoresBody(t *testing.T) {
	srv := newEndpoint(t)
	for _, raw := range []string{"", "null", "{}"} {
		rec := newEvaluator(t).Evaluate(context.Background(), model.Case{
			Name:       "page",
			Definition: model.CaseDefinition{URL: srv.URL + "/html", Schema: json.RawMessage(raw)},
		})
		requireConsistent(t, rec)
		require.True(t, rec.Passed, "schema %q", raw)
	}
}

func TestEvaluateBrokenSchema(t *testing.T) {
	srv := newEndpoint(t)
	rec := newEvaluator(t).Evaluate(context.Background(), model.Case{
		Name:       "user",
		Definition: model.CaseDefinition{URL: srv.URL + "/user", Schema: json.RawMessage(`{"type":"no-such-type"}`)},
	})
	requireConsistent(t, rec)
	require.Equal(t, model.FailureSchemaError, rec.Failure)
}

func TestEvaluateUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	rec := newEvaluator(t).Evaluate(context.Background(), model.Case{
		Name:       "down",
		Definition: model.CaseDefinition{URL: addr + "/health", TimeoutSeconds: 2},
	})

	requireConsistent(t, rec)
	require.False(t, rec.Passed)
	require.Nil(t, rec.ActualStatus)
	require.True(t, strings.HasPrefix(rec.Error, "exception:"), rec.Error)
	require.GreaterOrEqual(t, rec.LatencyMs, 0.0)
	require.Equal(t, "-", rec.StatusText())
}

func TestEvaluateIsIdempotent(t *testing.T) {
	srv := newEndpoint(t)
	cases := []model.Case{
		{Name: "a", Definition: model.CaseDefinition{URL: srv.URL + "/health"}},
		{Name: "b", Definition: model.CaseDefinition{URL: srv.URL + "/nope"}},
		{Name: "c", Definition: model.CaseDefinition{URL: srv.URL + "/nameonly", Schema: json.RawMessage(idSchema)}},
	}
	ev := newEvaluator(t)
	for _, c := range cases {
		first := ev.Evaluate(context.Background(), c)
		second := ev.Evaluate(context.Background(), c)
		require.Equal(t, first.Passed, second.Passed)
		require.Equal(t, first.Error, second.Error)
	}
}

type recordingSender struct {
	got  transport.Request
	resp *transport.Response
	err  error
}

func (s *recordingSender) Send(_ context.Context, req transport.Request) (*transport.Response, error) {
	s.got = req
	return s.resp, s.err
}

func TestEvaluateResolvesDefaults(t *testing.T) {
	sender := &recordingSender{resp: &transport.Response{StatusCode: 200, Elapsed: 1500 * time.Microsecond}}
	ev := NewEvaluator(sender, nil, newTestLogger(t))

	rec := ev.Evaluate(context.Background(), model.Case{
		Name:       "defaults",
		Definition: model.CaseDefinition{Method: "post", URL: "https://api.example.com/x", Body: json.RawMessage("null")},
	})

	require.True(t, rec.Passed)
	require.Equal(t, "POST", rec.Method)
	require.Equal(t, 200, rec.ExpectedStatus)
	require.InDelta(t, 1.5, rec.LatencyMs, 1e-9)
	require.Equal(t, "POST", sender.got.Method)
	require.Equal(t, 15*time.Second, sender.got.Timeout)
	require.Nil(t, sender.got.Body)
}

func TestEvaluateTransportErrorMessage(t *testing.T) {
	sender := &recordingSender{err: &transport.TransportError{
		Kind:    transport.KindTimeout,
		Elapsed: 20 * time.Millisecond,
		Err:     context.DeadlineExceeded,
	}}
	rec := NewEvaluator(sender, nil, newTestLogger(t)).Evaluate(context.Background(), model.Case{
		Name:       "slow",
		Definition: model.CaseDefinition{URL: "https://api.example.com/slow"},
	})

	require.Equal(t, "exception: Timeout: context deadline exceeded", rec.Error)
	require.Equal(t, model.FailureException, rec.Failure)
	require.InDelta(t, 20.0, rec.LatencyMs, 1e-9)
	require.Nil(t, rec.ActualStatus)
}
