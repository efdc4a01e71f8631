package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelworks/reco/pkg/models"
)

func TestAggregateCandidates(t *testing.T) {
	t.Run("keeps highest score for duplicate content", func(t *testing.T) {
		contentID := uuid.New()

		merged := AggregateCandidates([]models.Candidate{
			{ContentID: contentID, Score: 62.0, Source: models.SourceTrending, Reason: "Trending now"},
			{ContentID: contentID, Score: 95.1, Source: models.SourceFollowing, Reason: "New from a creator you follow"},
			{ContentID: contentID, Score: 71.0, Source: models.SourceTopic},
		})

		require.Len(t, merged, 1)
		assert.Equal(t, 95.1, merged[0].Score)
		assert.Equal(t, models.SourceFollowing, merged[0].Source)
		assert.Equal(t, "New from a creator you follow", merged[0].Reason)
	})

	t.Run("exact score tie goes to higher priority source", func(t *testing.T) {
		contentID := uuid.New()

		merged := AggregateCandidates([]models.Candidate{
			{ContentID: contentID, Score: 70.0, Source: models.SourceTrending},
			{ContentID: contentID, Score: 70.0, Source: models.SourceSimilar},
			{ContentID: contentID, Score: 70.0, Source: models.SourceExplore},
		})

		require.Len(t, merged, 1)
		assert.Equal(t, models.SourceSimilar, merged[0].Source)
	})

	t.Run("tie resolution is order independent", func(t *testing.T) {
		contentID := uuid.New()
		a := models.Candidate{ContentID: contentID, Score: 70.0, Source: models.SourceSimilar}
		b := models.Candidate{ContentID: contentID, Score: 70.0, Source: models.SourceTrending}

		forward := AggregateCandidates([]models.Candidate{a, b})
		backward := AggregateCandidates([]models.Candidate{b, a})

		require.Len(t, forward, 1)
		require.Len(t, backward, 1)
		assert.Equal(t, forward[0].Source, backward[0].Source)
	})

	t.Run("distinct content passes through sorted by score", func(t *testing.T) {
		merged := AggregateCandidates([]models.Candidate{
			candidate(models.SourceTrending, 55.0),
			candidate(models.SourceFollowing, 92.0),
			candidate(models.SourceTopic, 70.0),
		})

		require.Len(t, merged, 3)
		assert.Equal(t, 92.0, merged[0].Score)
		assert.Equal(t, 70.0, merged[1].Score)
		assert.Equal(t, 55.0, merged[2].Score)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		assert.Empty(t, AggregateCandidates(nil))
	})
}
