package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loriensleafs/brain/internal/brainerr"
)

func TestOpenAIRequiresAPIKeyForHostedBackend(t *testing.T) {
	_, err := newOpenAIClient(Config{Backend: "openai"})
	require.Error(t, err)
	require.True(t, brainerr.Is(err, brainerr.Config))
}

func TestOpenAICompatibleRequiresModel(t *testing.T) {
	_, err := newOpenAIClient(Config{Backend: "openai", BaseURL: "http://localhost:8080"})
	require.Error(t, err)
}

func TestOpenAIEmbedBatchOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := openaiEmbedResponse{}
		// Return out of order to exercise index-based reassembly.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(i + 1), 0, 0, 0}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, err := newOpenAIClient(Config{BaseURL: srv.URL, Model: "local-model", Dimensions: 4})
	require.NoError(t, err)

	out, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, float32(1), out[0][0])
	require.Equal(t, float32(2), out[1][0])
	require.Equal(t, float32(3), out[2][0])
}

func TestOpenAISanitizesAPIKeyFromErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key sk-supersecret123"))
	}))
	defer srv.Close()

	client, err := newOpenAIClient(Config{BaseURL: srv.URL, Model: "local-model", APIKey: "sk-supersecret123"})
	require.NoError(t, err)

	_, err = client.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	require.NotContains(t, err.Error(), "sk-supersecret123")
}
