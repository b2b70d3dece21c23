package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uxlens/uxlens/internal/audit"
)

func TestClientInferSendsChatCompletion(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"score": 80}`}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Model:       "vision-model",
		Temperature: 0.7,
	})

	img := audit.CapturedImage{Data: []byte{1, 2, 3}, MimeType: "image/png"}
	text, err := c.Infer(context.Background(), "analyze this", img)
	require.NoError(t, err)
	require.Equal(t, `{"score": 80}`, text)

	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, "vision-model", gotBody["model"])
	require.Equal(t, 0.7, gotBody["temperature"])

	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]any)
	imageRef := imagePart["image_url"].(map[string]any)
	require.Equal(t, "data:image/png;base64,AQID", imageRef["url"])
}

func TestClientInferWithoutKey(t *testing.T) {
	t.Parallel()

	c := NewClient(ClientConfig{BaseURL: "http://unused.invalid"})
	_, err := c.Infer(context.Background(), "prompt", audit.CapturedImage{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.ErrorIs(t, c.Ready(), ErrMissingAPIKey)
}

func TestClientInferUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k"})
	_, err := c.Infer(context.Background(), "prompt", audit.CapturedImage{MimeType: "image/png"})

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	require.Equal(t, "rate limited", ue.Body)
}

func TestClientInferEmptyChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k"})
	_, err := c.Infer(context.Background(), "prompt", audit.CapturedImage{MimeType: "image/png"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no choices")
}
