package synthesis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v5"
	openaioption "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"stories\":[]}"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", "", openaioption.WithBaseURL(srv.URL+"/"), openaioption.WithMaxRetries(0))
	assert.Equal(t, "openai/gpt-4o", client.Name())

	reply, err := client.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, `{"stories":[]}`, reply)

	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o","choices":[]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", "gpt-4o-mini", openaioption.WithBaseURL(srv.URL+"/"), openaioption.WithMaxRetries(0))
	_, err := client.Complete(context.Background(), "sys", "usr")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"m1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"hello"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":3,"output_tokens":1}}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient("sk-ant", "", anthropicoption.WithBaseURL(srv.URL+"/"), anthropicoption.WithMaxRetries(0))
	assert.Equal(t, "anthropic/claude-sonnet-4-5", client.Name())

	reply, err := client.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.EqualValues(t, anthropicMaxTokens, got["max_tokens"])
}

func TestAnthropicClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient("sk-ant", "", anthropicoption.WithBaseURL(srv.URL+"/"), anthropicoption.WithMaxRetries(0))
	_, err := client.Complete(context.Background(), "sys", "usr")
	require.Error(t, err)

	var perm *backoff.PermanentError
	assert.ErrorAs(t, err, &perm)
}

func TestOpenAIClient_UnauthorizedNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-bad", "", openaioption.WithBaseURL(srv.URL+"/"))
	s := NewSynthesizer(client, fastPolicy(), nil)

	section := s.Synthesize(context.Background(), "run-1", sampleRequest())

	require.Len(t, section.Stories, 1)
	assert.True(t, section.Stories[0].Fallback)
	assert.Equal(t, 1, calls)
}

func TestAnthropicClient_ServerErrorRetriedByPolicyOnly(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient("sk-ant", "", anthropicoption.WithBaseURL(srv.URL+"/"))
	s := NewSynthesizer(client, fastPolicy(), nil)

	section := s.Synthesize(context.Background(), "run-1", sampleRequest())

	require.Len(t, section.Stories, 1)
	assert.True(t, section.Stories[0].Fallback)
	assert.Equal(t, 3, calls)
}
