package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentflow/pkg/models"
)

func TestHTTPMLClient(t *testing.T) {
	full := make([]float32, models.EmbeddingDimensions)
	full[0] = 0.5

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embedding", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var body embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body.Text {
		case "bare":
			json.NewEncoder(w).Encode(full)
		case "envelope":
			json.NewEncoder(w).Encode(embeddingEnvelope{Embedding: full})
		case "short":
			json.NewEncoder(w).Encode([]float32{0.5, 0.25})
		case "garbage":
			w.Write([]byte(`"nope"`))
		default:
			http.Error(w, "model not loaded", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewHTTPMLClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	for _, text := range []string{"bare", "envelope"} {
		v, err := c.GetEmbedding(ctx, text)
		require.NoError(t, err, text)
		assert.Len(t, v, models.EmbeddingDimensions)
		assert.Equal(t, float32(0.5), v[0])
	}

	_, err := c.GetEmbedding(ctx, "short")
	var de *EmbeddingDimensionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 2, de.Got)
	assert.Equal(t, models.EmbeddingDimensions, de.Want)

	_, err = c.GetEmbedding(ctx, "garbage")
	assert.ErrorContains(t, err, "decode embedding response")

	_, err = c.GetEmbedding(ctx, "fail")
	assert.ErrorContains(t, err, "502")
	assert.ErrorContains(t, err, "model not loaded")
}
