package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ratings(vals ...float64) []*float64 {
	out := make([]*float64, 0, len(vals))
	for _, v := range vals {
		out = append(out, ptr(v))
	}
	return out
}

func TestSummarize_MixedRatings(t *testing.T) {
	s := Summarize("prod-1", ratings(5, 5, 4, 3, 1))

	assert.Equal(t, "prod-1", s.ProductID)
	assert.Equal(t, 3.6, s.Average)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, map[int]int{1: 1, 2: 0, 3: 1, 4: 1, 5: 2}, s.CountByStar)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize("prod-1", nil)

	assert.Equal(t, 0.0, s.Average)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, s.CountByStar)
}

func TestSummarize_SkipsAbsentAndOutOfRange(t *testing.T) {
	input := append(ratings(4, 0, 6, -1, math.NaN()), nil, nil)
	s := Summarize("prod-1", input)

	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 4.0, s.Average)
	assert.Equal(t, 1, s.CountByStar[4])
}

func TestSummarize_OnlyAbsentRatings(t *testing.T) {
	s := Summarize("prod-1", []*float64{nil, nil})

	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.Average)
}

func TestSummarize_RoundsFractionalRatings(t *testing.T) {
	s := Summarize("prod-1", ratings(4.5, 2.4, 1.5))

	// 4.5 -> 5, 2.4 -> 2, 1.5 -> 2
	assert.Equal(t, 1, s.CountByStar[5])
	assert.Equal(t, 2, s.CountByStar[2])
	assert.Equal(t, 3.0, s.Average)
}

func TestSummarize_AverageRoundsToOneDecimal(t *testing.T) {
	// 5+4+4 = 13 / 3 = 4.333...
	s := Summarize("prod-1", ratings(5, 4, 4))
	assert.Equal(t, 4.3, s.Average)

	s = Summarize("prod-1", ratings(2, 1))
	assert.Equal(t, 1.5, s.Average)
}

func TestStars(t *testing.T) {
	star, ok := Stars(ptr(3.49))
	assert.True(t, ok)
	assert.Equal(t, 3, star)

	star, ok = Stars(ptr(1))
	assert.True(t, ok)
	assert.Equal(t, 1, star)

	_, ok = Stars(ptr(0.9))
	assert.False(t, ok)

	_, ok = Stars(nil)
	assert.False(t, ok)
}
