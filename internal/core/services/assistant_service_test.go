package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parley/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fakeCompletionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func completionResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func TestNewAssistantService_RequiresCredentials(t *testing.T) {
	logger := zap.NewNop().Sugar()

	_, err := NewAssistantService("", "gpt-4o-mini", "", 0, logger)
	assert.Error(t, err)

	_, err = NewAssistantService("sk-test", "", "", 0, logger)
	assert.Error(t, err)
}

func TestAssistantAsk_SendsHistoryAndQuestion(t *testing.T) {
	var captured struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := fakeCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionResponse("Click the microphone icon."))
	})

	svc, err := NewAssistantService("sk-test", "gpt-4o-mini", srv.URL, 5*time.Second, zap.NewNop().Sugar())
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), "how do I unmute?", []domain.ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Click the microphone icon.", answer)

	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "hi", captured.Messages[1].Content)
	assert.Equal(t, "assistant", captured.Messages[2].Role)
	assert.Equal(t, "how do I unmute?", captured.Messages[3].Content)
}

func TestAssistantAsk_UnknownRole(t *testing.T) {
	srv := fakeCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream should not be called")
	})

	svc, err := NewAssistantService("sk-test", "gpt-4o-mini", srv.URL, 0, zap.NewNop().Sugar())
	require.NoError(t, err)

	_, err = svc.Ask(context.Background(), "hello", []domain.ChatMessage{
		{Role: "narrator", Content: "meanwhile"},
	})
	assert.Error(t, err)
}

func TestAssistantAsk_UpstreamFailureOpensCircuit(t *testing.T) {
	srv := fakeCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		// 400 is not retried by the SDK, so every call counts one failure.
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusBadRequest)
	})

	svc, err := NewAssistantService("sk-test", "gpt-4o-mini", srv.URL, 5*time.Second, zap.NewNop().Sugar())
	require.NoError(t, err)

	// Default breaker opens after five consecutive failures.
	for i := 0; i < 5; i++ {
		_, err = svc.Ask(context.Background(), "hello", nil)
		require.Error(t, err)
	}

	_, err = svc.Ask(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}
