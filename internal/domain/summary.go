package domain

import (
	"math"
)

// Star bounds for aggregation.
const (
	MinStars = 1
	MaxStars = 5
)

// RatingSummary is the rating distribution of a product's approved reviews.
type RatingSummary struct {
	ProductID   string      `json:"product_id"`
	Average     float64     `json:"average"`
	Total       int         `json:"total"`
	CountByStar map[int]int `json:"count_by_star"`
}

// Stars converts a stored rating into a star bucket. The second return value
// is false for absent ratings and for ratings outside [1,5], which are left
// out of every aggregate.
func Stars(rating *float64) (int, bool) {
	if rating == nil || math.IsNaN(*rating) {
		return 0, false
	}
	if *rating < MinStars || *rating > MaxStars {
		return 0, false
	}
	return int(math.Round(*rating)), true
}

// Summarize buckets ratings by rounded star and averages the valid ones,
// rounded to one decimal. An empty input yields a zero summary with all
// five buckets present.
func Summarize(productID string, ratings []*float64) RatingSummary {
	summary := RatingSummary{
		ProductID:   productID,
		CountByStar: make(map[int]int, MaxStars),
	}
	for star := MinStars; star <= MaxStars; star++ {
		summary.CountByStar[star] = 0
	}

	sum := 0
	for _, rating := range ratings {
		star, ok := Stars(rating)
		if !ok {
			continue
		}
		summary.CountByStar[star]++
		summary.Total++
		sum += star
	}

	if summary.Total > 0 {
		summary.Average = math.Round(float64(sum)/float64(summary.Total)*10) / 10
	}
	return summary
}
