package repository

import (
	"context"
	"time"

	"github.com/trungse123/review-backend/internal/domain"
)

// ReviewFilter defines filter criteria for listing approved reviews.
type ReviewFilter struct {
	ProductID string
	// Rating, when set, matches the stored rating exactly.
	Rating *float64
	Sort   string
	Offset int
	Limit  int
}

// ReviewRepository defines the interface for review persistence operations.
// Lookups that find nothing return apperrors.ErrNotFound.
type ReviewRepository interface {
	// Create inserts a new review into the store.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// LatestByPhoneAndProduct returns the most recently created review for
	// the (phone, productID) pair.
	LatestByPhoneAndProduct(ctx context.Context, phone, productID string) (*domain.Review, error)

	// AppendReply atomically appends a reply to the end of the review's
	// thread and returns the updated review.
	AppendReply(ctx context.Context, id string, reply domain.Reply, updatedAt time.Time) (*domain.Review, error)

	// Approve flips a review to approved. changed is false when the review
	// was already approved, in which case nothing is written.
	Approve(ctx context.Context, id string, at time.Time) (changed bool, err error)

	// ListApproved returns one page of approved reviews matching the filter
	// along with the total number of matches.
	ListApproved(ctx context.Context, filter ReviewFilter) ([]domain.Review, int, error)

	// ApprovedRatings returns the stored rating of every approved review of
	// a product. Absent ratings are returned as nil.
	ApprovedRatings(ctx context.Context, productID string) ([]*float64, error)

	// CountApproved counts the phone's approved reviews created in [from, to).
	CountApproved(ctx context.Context, phone string, from, to time.Time) (int, error)
}
