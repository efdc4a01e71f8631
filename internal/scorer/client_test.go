package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelworks/reco/internal/config"
)

func testScorer(t *testing.T, url string) *HTTPScorer {
	t.Helper()
	s, err := NewHTTPScorer(&config.ScorerConfig{
		URL:             url,
		Timeout:         time.Second,
		BreakerMaxFails: 100,
		BreakerCooldown: time.Minute,
	}, testLogger())
	require.NoError(t, err)
	return s
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testCandidates(n int) []CandidateSummary {
	candidates := make([]CandidateSummary, n)
	for i := range candidates {
		candidates[i] = CandidateSummary{
			ContentID: uuid.New(),
			Title:     fmt.Sprintf("video %d", i),
		}
	}
	return candidates
}

func TestHTTPScorer_Score(t *testing.T) {
	ctx := context.Background()
	profile := ProfileSummary{Interests: map[string]float64{"dance": 0.8}}

	t.Run("valid response is accepted", func(t *testing.T) {
		candidates := testCandidates(3)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req scoreRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Len(t, req.Candidates, 3)

			json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []map[string]interface{}{
					{"content_id": candidates[0].ContentID.String(), "score": 0.9, "reason": "strong topical fit"},
					{"content_id": candidates[1].ContentID.String(), "score": 0.4},
				},
			})
		}))
		defer server.Close()

		scores, err := testScorer(t, server.URL).Score(ctx, profile, candidates, 5)

		require.NoError(t, err)
		require.Len(t, scores, 2)
		assert.Equal(t, candidates[0].ContentID, scores[0].ContentID)
		assert.Equal(t, 0.9, scores[0].Score)
		assert.Equal(t, "strong topical fit", scores[0].Reason)
	})

	t.Run("malformed payload is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"results": "not an array"}`)
		}))
		defer server.Close()

		_, err := testScorer(t, server.URL).Score(ctx, profile, testCandidates(2), 5)
		assert.Error(t, err)
	})

	t.Run("out-of-range score is rejected", func(t *testing.T) {
		candidates := testCandidates(1)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []map[string]interface{}{
					{"content_id": candidates[0].ContentID.String(), "score": 1.7},
				},
			})
		}))
		defer server.Close()

		_, err := testScorer(t, server.URL).Score(ctx, profile, candidates, 5)
		assert.Error(t, err)
	})

	t.Run("unknown content id is a contract violation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []map[string]interface{}{
					{"content_id": uuid.New().String(), "score": 0.5},
				},
			})
		}))
		defer server.Close()

		_, err := testScorer(t, server.URL).Score(ctx, profile, testCandidates(2), 5)
		assert.Error(t, err)
	})

	t.Run("non-uuid content id is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"results": [{"content_id": "not-a-uuid", "score": 0.5}]}`)
		}))
		defer server.Close()

		_, err := testScorer(t, server.URL).Score(ctx, profile, testCandidates(2), 5)
		assert.Error(t, err)
	})

	t.Run("empty result set is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"results": []}`)
		}))
		defer server.Close()

		_, err := testScorer(t, server.URL).Score(ctx, profile, testCandidates(2), 5)
		assert.Error(t, err)
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := testScorer(t, server.URL).Score(ctx, profile, testCandidates(2), 5)
		assert.Error(t, err)
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		s, err := NewHTTPScorer(&config.ScorerConfig{
			URL:             server.URL,
			Timeout:         time.Second,
			BreakerMaxFails: 2,
			BreakerCooldown: time.Minute,
		}, testLogger())
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			_, err = s.Score(ctx, profile, testCandidates(1), 5)
			assert.Error(t, err)
		}

		_, err = s.Score(ctx, profile, testCandidates(1), 5)
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	})
}
