package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadlinehq/leadline/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(slog.Default(), config.EngineConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		Model:          "test-model",
		TimeoutSeconds: 5,
		Temperature:    0.7,
	})
}

func candidateResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			}},
		},
	}
}

func TestGenerate(t *testing.T) {
	var captured generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(candidateResponse("  olá, tudo bem?  "))
	})

	history := []Turn{
		{Role: "user", Content: "oi"},
		{Role: "model", Content: "olá!"},
		{Role: "user", Content: "quero saber mais"},
	}
	reply, err := client.Generate(context.Background(), "seja breve", history, nil)
	require.NoError(t, err)
	assert.Equal(t, "olá, tudo bem?", reply)

	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "seja breve", captured.SystemInstruction.Parts[0].Text)
	require.Len(t, captured.Contents, 3)
	assert.Equal(t, "user", captured.Contents[2].Role)
}

func TestGenerateStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), "", []Turn{{Role: "user", Content: "oi"}}, nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestGenerateEmptyCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := client.Generate(context.Background(), "", []Turn{{Role: "user", Content: "oi"}}, nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestClassifyStripsCodeFences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(candidateResponse("```json\n{\"tier\":\"A\"}\n```"))
	})

	raw, err := client.Classify(context.Background(), "classifique", "transcript")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"A"}`, raw)
}

func TestRemoveCodeBlocks(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                  `{"a":1}`,
		"```json\n{\"a\":1}\n```":    `{"a":1}`,
		"```\n{\"a\":1}\n```":        `{"a":1}`,
		"  ```json\n{\"a\":1}\n``` ": `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, removeCodeBlocks(in), "input %q", in)
	}
}
