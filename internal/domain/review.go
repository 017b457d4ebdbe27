package domain

import (
	"time"
)

// Review status constants. A review only ever moves from pending to approved.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// SubmissionCooldown is the minimum gap between two submissions by the same
// phone for the same product.
const SubmissionCooldown = 10 * time.Second

// Media limits per review.
const (
	MaxImageRefs = 5
	MaxVideoRefs = 1
)

// AutoApproveRating is the lowest rating that skips manual moderation.
const AutoApproveRating = 4

// Review represents a customer review of a product.
type Review struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	CustomerName string    `json:"customer_name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Rating       *float64  `json:"rating,omitempty"`
	ImageRefs    []string  `json:"image_refs"`
	VideoRef     string    `json:"video_ref,omitempty"`
	IsPurchased  bool      `json:"is_purchased"`
	Status       string    `json:"status"`
	Replies      []Reply   `json:"replies"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Reply is a public response threaded onto a review. Replies have no
// identity of their own and are only ever appended.
type Reply struct {
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// IsApproved reports whether the review is publicly visible.
func (r *Review) IsApproved() bool {
	return r.Status == StatusApproved
}

// ModerationStatus returns the initial status for a submission with the
// given rating. Ratings in [AutoApproveRating, MaxStars] are auto-approved.
// Absent and out-of-range ratings wait for manual approval.
func ModerationStatus(rating *float64) string {
	if _, ok := Stars(rating); ok && *rating >= AutoApproveRating {
		return StatusApproved
	}
	return StatusPending
}
