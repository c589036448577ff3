package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harunnryd/mcprelay/internal/config"
	relayErrors "github.com/harunnryd/mcprelay/internal/errors"
	"github.com/harunnryd/mcprelay/internal/tool"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatFunc func(ctx context.Context, message string) (string, error)

func (f chatFunc) Chat(ctx context.Context, message string) (string, error) { return f(ctx, message) }

func newTestServer(t *testing.T, chat Chatter, registry *tool.Registry) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(chat, registry, config.RelayConfig{}).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postChat(t *testing.T, srv *httptest.Server, body string) (int, ChatResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var out ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHandleChat_Success(t *testing.T) {
	var got string
	srv := newTestServer(t, chatFunc(func(ctx context.Context, message string) (string, error) {
		got = message
		return "It's 18.2°C and clear in Paris.", nil
	}), nil)

	status, out := postChat(t, srv, `{"message":"What's the weather in Paris?"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "It's 18.2°C and clear in Paris.", out.Response)
	assert.Equal(t, "What's the weather in Paris?", got)
}

func TestHandleChat_EmptyMessageIsForwarded(t *testing.T) {
	called := false
	srv := newTestServer(t, chatFunc(func(ctx context.Context, message string) (string, error) {
		called = true
		return "ok", nil
	}), nil)

	status, _ := postChat(t, srv, `{"message":""}`)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, called)
}

func TestHandleChat_InvalidBody(t *testing.T) {
	srv := newTestServer(t, chatFunc(func(ctx context.Context, message string) (string, error) {
		t.Error("chat must not be called")
		return "", nil
	}), nil)

	for _, body := range []string{`{"message":`, `{}`, `{"message": 42}`} {
		status, out := postChat(t, srv, body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.True(t, strings.HasPrefix(out.Response, "invalid request body"), out.Response)
	}
}

func TestHandleChat_Unavailable(t *testing.T) {
	srv := newTestServer(t, chatFunc(func(ctx context.Context, message string) (string, error) {
		return "", relayErrors.SessionUnavailable("tool provider not connected")
	}), nil)

	status, out := postChat(t, srv, `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, config.DefaultRelayUnavailableMessage, out.Response)
}

func TestHandleChat_CompletionError(t *testing.T) {
	srv := newTestServer(t, chatFunc(func(ctx context.Context, message string) (string, error) {
		return "", relayErrors.Completion(errors.New("401 unauthorized"), "completion")
	}), nil)

	status, out := postChat(t, srv, `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasPrefix(out.Response, config.DefaultRelayErrorPrefix), out.Response)
	assert.Contains(t, out.Response, "401 unauthorized")
}

func TestHandleChat_CustomMessages(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(chatFunc(func(ctx context.Context, message string) (string, error) {
		return "", relayErrors.SessionUnavailable("down")
	}), nil, config.RelayConfig{UnavailableMessage: "offline"}).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"offline"}`, rec.Body.String())
}

func TestHandleTools(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(cityEntry("query_weather", tool.HandlerFunc(func(context.Context, json.RawMessage) (any, error) {
		return nil, nil
	}))))
	srv := newTestServer(t, chatFunc(func(ctx context.Context, message string) (string, error) { return "", nil }), registry)

	resp, err := http.Get(srv.URL + "/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Tools, 1)
	assert.Equal(t, "query_weather", out.Tools[0].Name)
}
