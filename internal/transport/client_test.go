package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendPassesHeadersParamsAndBody(t *testing.T) {
	var (
		gotMethod string
		gotQuery  string
		gotHeader string
		gotCT     string
		gotBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-Trace")
		gotCT = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	client := New()
	defer client.Close()

	resp, err := client.Send(context.Background(), Request{
		Method:  "post",
		URL:     srv.URL + "/items?fixed=1",
		Headers: map[string]string{"X-Trace": "abc"},
		Params:  map[string]string{"page": "2"},
		Body:    json.RawMessage(`{"name":"x"}`),
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, `{"id":1}`, string(resp.Body))
	require.Positive(t, resp.Elapsed)

	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "fixed=1&page=2", gotQuery)
	require.Equal(t, "abc", gotHeader)
	require.Equal(t, "application/json", gotCT)
	require.JSONEq(t, `{"name":"x"}`, string(gotBody))
}

func TestSendWithoutBodyOmitsContentType(t *testing.T) {
	var gotCT, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := New(WithUserAgent("smoke-test/0"))
	resp, err := client.Send(context.Background(), Request{Method: "GET", URL: srv.URL, Body: json.RawMessage("null")})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, gotCT)
	require.Equal(t, "smoke-test/0", gotUA)
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := New()
	_, err := client.Send(context.Background(), Request{Method: "GET", URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.Error(t, err)

	te, ok := AsTransportError(err)
	require.True(t, ok)
	require.Equal(t, KindTimeout, te.Kind)
	require.Positive(t, te.Elapsed)
}

func TestSendConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := New().Send(context.Background(), Request{Method: "GET", URL: addr, Timeout: time.Second})
	te, ok := AsTransportError(err)
	require.True(t, ok)
	require.Equal(t, KindConnection, te.Kind)
	require.Contains(t, te.Error(), "ConnectionError: ")
}

func TestSendInvalidURLIsNeverDispatched(t *testing.T) {
	_, err := New().Send(context.Background(), Request{Method: "GET", URL: "not a url"})
	te, ok := AsTransportError(err)
	require.True(t, ok)
	require.Equal(t, KindInvalidRequest, te.Kind)
	require.Zero(t, te.Elapsed)
}

func TestResponseJSON(t *testing.T) {
	v, err := (&Response{Body: []byte(`{"id": 7}`)}).JSON()
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": json.Number("7")}, v)

	_, err = (&Response{Body: []byte(`<html></html>`)}).JSON()
	require.Error(t, err)

	_, err = (&Response{Body: nil}).JSON()
	require.Error(t, err)

	_, err = (&Response{Body: []byte(`{} {}`)}).JSON()
	require.Error(t, err)

	for _, body := range []string{`{"id":1}}`, `[1]]`, `{"id":1} x`} {
		_, err = (&Response{Body: []byte(body)}).JSON()
		require.Error(t, err, body)
	}

	_, err = (&Response{Body: []byte("{\"id\":1}\n")}).JSON()
	require.NoError(t, err)
}

func TestSendRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/big":
			_, _ = w.Write([]byte(`{"id":1,"pad":"aaaaaaaaaaaaaaaa"}`))
		default:
			_, _ = w.Write([]byte(`{"id":1}`))
		}
	}))
	defer srv.Close()

	client := New(WithMaxBodySize(16))
	defer client.Close()

	_, err := client.Send(context.Background(), Request{Method: "GET", URL: srv.URL + "/big"})
	te, ok := AsTransportError(err)
	require.True(t, ok)
	require.Equal(t, KindRead, te.Kind)
	require.Contains(t, te.Error(), "response body exceeds 16 bytes")
	require.Positive(t, te.Elapsed)

	resp, err := client.Send(context.Background(), Request{Method: "GET", URL: srv.URL + "/small"})
	require.NoError(t, err)
	require.Equal(t, `{"id":1}`, string(resp.Body))
}

func TestRequestCurl(t *testing.T) {
	req := Request{
		Method:  "put",
		URL:     "https://api.example.com/users/1",
		Headers: map[string]string{"X-B": "2", "Authorization": "Bearer t"},
		Params:  map[string]string{"dry": "true"},
		Body:    json.RawMessage(`{"a":1}`),
	}
	require.Equal(t,
		`curl -X PUT -H 'Authorization: Bearer t' -H 'X-B: 2' -H 'Content-Type: application/json' -d '{"a":1}' 'https://api.example.com/users/1?dry=true'`,
		req.Curl())
}

func TestRequestRedacted(t *testing.T) {
	req := Request{
		Method:  "GET",
		URL:     "https://api.example.com/me",
		Headers: map[string]string{"authorization": "Bearer secret", "X-Trace": "1"},
	}
	require.Equal(t, `curl -X GET -H 'X-Trace: 1' -H 'authorization: ***' 'https://api.example.com/me'`, req.Redacted().Curl())
	require.Equal(t, "Bearer secret", req.Headers["authorization"])
}

func TestClassify(t *testing.T) {
	require.Equal(t, KindTimeout, classify(context.DeadlineExceeded))
	require.Equal(t, KindCanceled, classify(context.Canceled))
	require.Equal(t, KindRequest, classify(io.ErrUnexpectedEOF))
}
