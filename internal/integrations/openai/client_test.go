package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"seafood-agent/internal/domain"
)

type fakeGetter struct {
	values map[string]string
	err    error
	calls  map[string]int
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[name]
	if !ok {
		return "", errors.New("parameter not found")
	}
	return v, nil
}

func newGetter() *fakeGetter {
	return &fakeGetter{values: map[string]string{
		"/seafood/open-ai-token":       `{"token":"sk-test"}`,
		"/seafood/config/openai_model": "gpt-4o-mini",
	}}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty uses default", in: "", want: "https://api.openai.com/v1"},
		{name: "host only", in: "http://localhost:8080", want: "http://localhost:8080/v1"},
		{name: "trailing slash", in: "http://localhost:8080/", want: "http://localhost:8080/v1"},
		{name: "already versioned", in: "https://api.openai.com/v1/", want: "https://api.openai.com/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, normalizeBaseURL(tt.in))
		})
	}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, "/seafood")
	require.Error(t, err)

	_, err = NewClient(newGetter(), "  ")
	require.Error(t, err)

	c, err := NewClient(newGetter(), "/seafood/")
	require.NoError(t, err)
	require.Equal(t, "/seafood/open-ai-token", c.tokenParameterName())
	require.Equal(t, "/seafood/config/openai_model", c.modelParameterName())
}

func TestFetchAPIKeyFromParamStore(t *testing.T) {
	g := newGetter()
	key, err := fetchAPIKeyFromParamStore(context.Background(), g, "/seafood/open-ai-token")
	require.NoError(t, err)
	require.Equal(t, "sk-test", key)

	g.values["/seafood/open-ai-token"] = "not-json"
	_, err = fetchAPIKeyFromParamStore(context.Background(), g, "/seafood/open-ai-token")
	require.ErrorContains(t, err, "unmarshal")

	g.values["/seafood/open-ai-token"] = `{"token":""}`
	_, err = fetchAPIKeyFromParamStore(context.Background(), g, "/seafood/open-ai-token")
	require.ErrorContains(t, err, "empty")

	_, err = fetchAPIKeyFromParamStore(context.Background(), g, " ")
	require.Error(t, err)

	_, err = fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{err: errors.New("boom")}, "/x")
	require.ErrorContains(t, err, "boom")
}

func TestChat_Success(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"intent\":\"help\",\"params\":{},\"confidence\":0.9}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g := newGetter()
	c, err := NewClient(g, "/seafood", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	msgs := []domain.ChatMessage{
		{Role: "system", Content: "clasifica"},
		{Role: "assistant", Content: "hola"},
		{Role: "user", Content: "ayuda"},
	}
	out, err := c.Chat(context.Background(), msgs)
	require.NoError(t, err)
	require.Contains(t, out, `"intent":"help"`)

	require.Equal(t, "gpt-4o-mini", gotBody["model"])
	require.Equal(t, map[string]any{"type": "json_object"}, gotBody["response_format"])
	sent, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, sent, 3)
	require.Equal(t, "system", sent[0].(map[string]any)["role"])
	require.Equal(t, "assistant", sent[1].(map[string]any)["role"])

	_, err = c.Chat(context.Background(), msgs)
	require.NoError(t, err)
	require.Equal(t, 1, g.calls["/seafood/open-ai-token"])
	require.Equal(t, 2, g.calls["/seafood/config/openai_model"])
}

func TestChat_PinnedModelSkipsLookup(t *testing.T) {
	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		model = body.Model
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	g := newGetter()
	c, err := NewClient(g, "/seafood", WithBaseURL(srv.URL), WithModel("gpt-test"))
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), []domain.ChatMessage{{Role: "user", Content: "x"}})
	require.NoError(t, err)
	require.Equal(t, "gpt-test", model)
	require.Zero(t, g.calls["/seafood/config/openai_model"])
}

func TestChat_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "rate limited", status: http.StatusTooManyRequests},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "overloaded", status: 529},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests"}}`))
			}))
			defer srv.Close()

			c, err := NewClient(newGetter(), "/seafood", WithBaseURL(srv.URL))
			require.NoError(t, err)
			_, err = c.Chat(context.Background(), []domain.ChatMessage{{Role: "user", Content: "x"}})
			require.Error(t, err)

			var se *HTTPStatusError
			require.ErrorAs(t, err, &se)
			require.Equal(t, tt.status, se.HTTPStatusCode())
		})
	}
}

func TestChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(newGetter(), "/seafood", WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), []domain.ChatMessage{{Role: "user", Content: "x"}})
	require.ErrorContains(t, err, "no choices")
}

func TestChat_KeyErrorIsRetriedOnNextCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	g := newGetter()
	g.err = errors.New("ThrottlingException")
	c, err := NewClient(g, "/seafood", WithBaseURL(srv.URL), WithModel("m"))
	require.NoError(t, err)

	msgs := []domain.ChatMessage{{Role: "user", Content: "x"}}
	_, err = c.Chat(context.Background(), msgs)
	require.ErrorContains(t, err, "ThrottlingException")

	g.err = nil
	out, err := c.Chat(context.Background(), msgs)
	require.NoError(t, err)
	require.Equal(t, "{}", out)

	_, err = c.Chat(context.Background(), msgs)
	require.NoError(t, err)
	require.Equal(t, 2, g.calls["/seafood/open-ai-token"])
}
