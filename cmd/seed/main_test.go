package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trungse123/review-backend/internal/domain"
)

func TestGenerateReviews_Deterministic(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	first := generateReviews(rand.New(rand.NewSource(42)), 3, 4, now)
	second := generateReviews(rand.New(rand.NewSource(42)), 3, 4, now)

	require.Len(t, first, 12)
	assert.Equal(t, first, second)
}

func TestGenerateReviews_Shape(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	reviews := generateReviews(rand.New(rand.NewSource(7)), 5, 10, now)

	ids := map[string]bool{}
	pairs := map[string]bool{}
	for _, r := range reviews {
		assert.False(t, ids[r.ID], "duplicate id %s", r.ID)
		ids[r.ID] = true

		pair := r.Phone + "|" + r.ProductID
		assert.False(t, pairs[pair], "phone reviewed product twice: %s", pair)
		pairs[pair] = true

		assert.Contains(t, []string{domain.StatusPending, domain.StatusApproved}, r.Status)
		assert.False(t, r.CreatedAt.After(now))
		if r.Rating != nil {
			assert.GreaterOrEqual(t, *r.Rating, 1.0)
			assert.LessOrEqual(t, *r.Rating, 5.0)
			if *r.Rating >= domain.AutoApproveRating {
				assert.Equal(t, domain.StatusApproved, r.Status)
			}
		}
		assert.NotNil(t, r.Replies)
	}
}
