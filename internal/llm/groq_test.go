package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personal-chef/internal/config"
)

func newTestGroqClient(baseURL string, timeout time.Duration) *GroqClient {
	c := NewGroqClient(&config.Config{GroqAPIKey: "test-key", LLMTimeout: timeout})
	c.baseURL = baseURL
	return c
}

func TestGroqClient_GenerateJSON(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": `{"tipo":"receta"}`}},
			},
			"usage": map[string]int{
				"prompt_tokens":     12,
				"completion_tokens": 34,
				"total_tokens":      46,
			},
		})
	}))
	defer srv.Close()

	c := newTestGroqClient(srv.URL, 5*time.Second)
	resp, err := c.GenerateJSON(context.Background(), "genera una receta", nil)
	require.NoError(t, err)

	assert.Equal(t, `{"tipo":"receta"}`, resp.Content)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 46, resp.Usage.TotalTokens)
	assert.Equal(t, groqModel, resp.Usage.Model)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, groqModel, gotBody["model"])
	rf, ok := gotBody["response_format"].(map[string]interface{})
	require.True(t, ok, "request must force json_object mode")
	assert.Equal(t, "json_object", rf["type"])
}

func TestGroqClient_GenerateJSON_Errors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := newTestGroqClient(srv.URL, 5*time.Second)
		_, err := c.GenerateJSON(context.Background(), "hola", nil)
		require.ErrorIs(t, err, ErrBackend)
	})

	t.Run("empty choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		c := newTestGroqClient(srv.URL, 5*time.Second)
		_, err := c.GenerateJSON(context.Background(), "hola", nil)
		require.ErrorIs(t, err, ErrBackend)
	})

	t.Run("deadline maps to ErrTimeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		c := newTestGroqClient(srv.URL, 20*time.Millisecond)
		_, err := c.GenerateJSON(context.Background(), "hola", nil)
		require.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("unreachable backend", func(t *testing.T) {
		c := newTestGroqClient("http://127.0.0.1:1", 2*time.Second)
		_, err := c.GenerateJSON(context.Background(), "hola", nil)
		require.ErrorIs(t, err, ErrBackend)
	})
}
