package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadbox/leadbox/internal/models"
)

// chatServer fakes the chat completions endpoint, replying with the given
// message content.
func chatServer(t *testing.T, content string, capture *chatRequest) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a well-formed result", func(t *testing.T) {
		var captured chatRequest
		srv := chatServer(t, `{"category": "Interested", "confidence": 0.95, "reasoning": "asks about pricing"}`, &captured)
		defer srv.Close()

		c := NewClientWithBaseURL("test-key", srv.URL)
		result, err := c.Classify(ctx, "Quick question", "Tell me more about pricing")
		require.NoError(t, err)

		assert.Equal(t, models.CategoryInterested, result.Category)
		assert.InDelta(t, 0.95, result.Confidence, 0.0001)
		assert.Equal(t, "asks about pricing", result.Reasoning)

		assert.Equal(t, "gpt-3.5-turbo", captured.Model)
		require.Len(t, captured.Messages, 2)
		assert.Equal(t, "system", captured.Messages[0].Role)
		assert.Contains(t, captured.Messages[1].Content, "Subject: Quick question")
	})

	t.Run("truncates an oversized body", func(t *testing.T) {
		var captured chatRequest
		srv := chatServer(t, `{"category": "Spam", "confidence": 0.9}`, &captured)
		defer srv.Close()

		long := make([]byte, 5000)
		for i := range long {
			long[i] = 'a'
		}

		c := NewClientWithBaseURL("test-key", srv.URL)
		_, err := c.Classify(ctx, "hi", string(long))
		require.NoError(t, err)

		assert.LessOrEqual(t, len(captured.Messages[1].Content), bodyPreviewLimit+100)
	})

	t.Run("garbled model output degrades to spam", func(t *testing.T) {
		srv := chatServer(t, "I think this email is interesting!", nil)
		defer srv.Close()

		c := NewClientWithBaseURL("test-key", srv.URL)
		result, err := c.Classify(ctx, "hi", "body")
		require.NoError(t, err)
		assert.Equal(t, models.CategorySpam, result.Category)
		assert.InDelta(t, 0.5, result.Confidence, 0.0001)
	})

	t.Run("unknown category degrades to spam", func(t *testing.T) {
		srv := chatServer(t, `{"category": "Very Keen", "confidence": 0.99}`, nil)
		defer srv.Close()

		c := NewClientWithBaseURL("test-key", srv.URL)
		result, err := c.Classify(ctx, "hi", "body")
		require.NoError(t, err)
		assert.Equal(t, models.CategorySpam, result.Category)
		assert.InDelta(t, 0.5, result.Confidence, 0.0001)
	})

	t.Run("zero confidence defaults to 0.8", func(t *testing.T) {
		srv := chatServer(t, `{"category": "Out of Office"}`, nil)
		defer srv.Close()

		c := NewClientWithBaseURL("test-key", srv.URL)
		result, err := c.Classify(ctx, "hi", "body")
		require.NoError(t, err)
		assert.Equal(t, models.CategoryOutOfOffice, result.Category)
		assert.InDelta(t, 0.8, result.Confidence, 0.0001)
	})

	t.Run("API error status is returned as an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewClientWithBaseURL("test-key", srv.URL)
		_, err := c.Classify(ctx, "hi", "body")
		assert.Error(t, err)
	})

	t.Run("unreachable endpoint is an error", func(t *testing.T) {
		c := NewClientWithBaseURL("test-key", "http://127.0.0.1:1")
		_, err := c.Classify(ctx, "hi", "body")
		assert.Error(t, err)
	})
}
