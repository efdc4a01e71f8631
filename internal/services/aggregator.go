package services

import (
	"sort"

	"github.com/google/uuid"

	"github.com/reelworks/reco/pkg/models"
)

// AggregateCandidates merges the provider outputs into one candidate per
// distinct content ID. For duplicates the highest score wins; exact ties go
// to the higher-priority source (following > similar > topic > trending >
// explore) so the merge is deterministic regardless of provider completion
// order. Output is sorted by descending score.
func AggregateCandidates(candidates []models.Candidate) []models.Candidate {
	best := make(map[uuid.UUID]models.Candidate, len(candidates))

	for _, candidate := range candidates {
		existing, ok := best[candidate.ContentID]
		if !ok {
			best[candidate.ContentID] = candidate
			continue
		}
		if candidate.Score > existing.Score {
			best[candidate.ContentID] = candidate
			continue
		}
		if candidate.Score == existing.Score &&
			candidate.Source.Priority() < existing.Source.Priority() {
			best[candidate.ContentID] = candidate
		}
	}

	merged := make([]models.Candidate, 0, len(best))
	for _, candidate := range best {
		merged = append(merged, candidate)
	}

	sortCandidates(merged)
	return merged
}

// sortCandidates orders by descending score with source priority and then
// content ID as tie-breaks, so every pass over a candidate set walks it in
// the same order.
func sortCandidates(candidates []models.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Source.Priority() != candidates[j].Source.Priority() {
			return candidates[i].Source.Priority() < candidates[j].Source.Priority()
		}
		return candidates[i].ContentID.String() < candidates[j].ContentID.String()
	})
}
