package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

// DiversityReranker adjusts aggregated scores to break up runs of the same
// creator or topic and to nudge exploratory sources upward. It is a single
// deterministic pass in descending-score order, a documented policy rather
// than a global optimum: the same input and factor always produce the same
// ordering.
type DiversityReranker struct {
	scoring *config.ScoringConfig
	logger  *logrus.Logger
}

func NewDiversityReranker(scoring *config.ScoringConfig, logger *logrus.Logger) *DiversityReranker {
	return &DiversityReranker{
		scoring: scoring,
		logger:  logger,
	}
}

// Rerank applies diversity adjustment and truncates to limit. A factor of 0
// (or a single candidate) leaves the score ordering untouched.
func (r *DiversityReranker) Rerank(candidates []models.Candidate, factor float64, limit int) []models.Candidate {
	adjusted := make([]models.Candidate, len(candidates))
	copy(adjusted, candidates)
	sortCandidates(adjusted)

	if factor > 0 && len(adjusted) > 1 {
		r.adjust(adjusted, factor)
		sortCandidates(adjusted)
	}

	if limit > 0 && len(adjusted) > limit {
		adjusted = adjusted[:limit]
	}
	return adjusted
}

// adjust walks the candidates in score order. The strongest few are never
// penalized, but their creators and topics still seed the seen sets so the
// tail pays for repeating them.
func (r *DiversityReranker) adjust(candidates []models.Candidate, factor float64) {
	seenCreators := make(map[uuid.UUID]bool)
	seenTopics := make(map[string]bool)

	for i := range candidates {
		candidate := &candidates[i]

		if i >= r.scoring.DiversityProtectTop {
			if seenCreators[candidate.CreatorID] {
				candidate.Score -= factor * r.scoring.DiversityCreatorPen
			}

			if len(candidate.Topics) > 0 {
				var overlap int
				for _, topic := range candidate.Topics {
					if seenTopics[topic] {
						overlap++
					}
				}
				if overlap > 0 {
					penalty := factor * r.scoring.DiversityTopicPen *
						(float64(overlap) / float64(len(candidate.Topics)))
					candidate.Score -= penalty
				}
			}

			if candidate.Source == models.SourceExplore {
				candidate.Score += factor * r.scoring.DiversityExploreBump
			}
		}

		seenCreators[candidate.CreatorID] = true
		for _, topic := range candidate.Topics {
			seenTopics[topic] = true
		}
	}
}
