package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

// ProfileSummary is the compact interest snapshot sent to the scorer.
type ProfileSummary struct {
	Interests          map[string]float64 `json:"interests"`
	AvgCompletionRatio float64            `json:"avg_completion_ratio"`
	LikeRatio          float64            `json:"like_ratio"`
}

// CandidateSummary describes one item the scorer may select.
type CandidateSummary struct {
	ContentID uuid.UUID `json:"content_id"`
	Title     string    `json:"title"`
	Topics    []string  `json:"topics,omitempty"`
	ViewCount int64     `json:"view_count"`
}

// RelevanceScorer selects and scores a subset of candidates given a profile
// summary. Implementations may be slow, unavailable, or return malformed
// output; callers must treat any error as a signal to fall back.
type RelevanceScorer interface {
	Score(ctx context.Context, profile ProfileSummary, candidates []CandidateSummary, maxResults int) ([]models.RelevanceScore, error)
}

// The scorer speaks duck-typed JSON. Everything is schema-validated before a
// single field is trusted; a payload that passes the schema is still
// range-checked entry by entry.
const responseSchema = `{
	"type": "object",
	"required": ["results"],
	"properties": {
		"results": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["content_id", "score"],
				"properties": {
					"content_id": {"type": "string", "format": "uuid"},
					"score": {"type": "number", "minimum": 0, "maximum": 1},
					"reason": {"type": "string"},
					"metadata": {"type": "object"}
				}
			}
		}
	}
}`

type scoreRequest struct {
	Profile    ProfileSummary     `json:"profile"`
	Candidates []CandidateSummary `json:"candidates"`
	MaxResults int                `json:"max_results"`
}

type scoreResponse struct {
	Results []struct {
		ContentID string                 `json:"content_id"`
		Score     float64                `json:"score"`
		Reason    string                 `json:"reason"`
		Metadata  map[string]interface{} `json:"metadata"`
	} `json:"results"`
}

// HTTPScorer calls the content-understanding service over HTTP. A circuit
// breaker keeps a flapping scorer from adding its full timeout to every
// explore fetch.
type HTTPScorer struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]models.RelevanceScore]
	schema  *gojsonschema.Schema
	logger  *logrus.Logger
}

func NewHTTPScorer(cfg *config.ScorerConfig, logger *logrus.Logger) (*HTTPScorer, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile scorer response schema: %w", err)
	}

	maxFails := cfg.BreakerMaxFails
	breaker := gobreaker.NewCircuitBreaker[[]models.RelevanceScore](gobreaker.Settings{
		Name:    "relevance-scorer",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
	})

	return &HTTPScorer{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		schema:  schema,
		logger:  logger,
	}, nil
}

func (s *HTTPScorer) Score(
	ctx context.Context,
	profile ProfileSummary,
	candidates []CandidateSummary,
	maxResults int,
) ([]models.RelevanceScore, error) {
	return s.breaker.Execute(func() ([]models.RelevanceScore, error) {
		return s.score(ctx, profile, candidates, maxResults)
	})
}

func (s *HTTPScorer) score(
	ctx context.Context,
	profile ProfileSummary,
	candidates []CandidateSummary,
	maxResults int,
) ([]models.RelevanceScore, error) {
	body, err := json.Marshal(scoreRequest{
		Profile:    profile,
		Candidates: candidates,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scorer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scorer returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read scorer response: %w", err)
	}

	return s.parseResponse(payload, candidates)
}

// parseResponse validates the raw payload against the schema, then
// re-checks every field. Only content IDs from the submitted candidate set
// are accepted; the scorer inventing items is a contract violation.
func (s *HTTPScorer) parseResponse(payload []byte, candidates []CandidateSummary) ([]models.RelevanceScore, error) {
	validation, err := s.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("scorer response is not valid JSON: %w", err)
	}
	if !validation.Valid() {
		return nil, fmt.Errorf("scorer response failed schema validation: %v", validation.Errors())
	}

	var parsed scoreResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scorer response: %w", err)
	}

	known := make(map[uuid.UUID]bool, len(candidates))
	for _, c := range candidates {
		known[c.ContentID] = true
	}

	scores := make([]models.RelevanceScore, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		contentID, err := uuid.Parse(result.ContentID)
		if err != nil {
			return nil, fmt.Errorf("scorer returned invalid content id %q: %w", result.ContentID, err)
		}
		if !known[contentID] {
			return nil, fmt.Errorf("scorer returned unknown content id %s", contentID)
		}
		if result.Score < 0 || result.Score > 1 {
			return nil, fmt.Errorf("scorer returned out-of-range score %f", result.Score)
		}

		scores = append(scores, models.RelevanceScore{
			ContentID: contentID,
			Score:     result.Score,
			Reason:    result.Reason,
			Metadata:  result.Metadata,
		})
	}

	if len(scores) == 0 {
		return nil, fmt.Errorf("scorer returned no usable results")
	}

	return scores, nil
}
