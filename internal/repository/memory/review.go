package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trungse123/review-backend/internal/domain"
	"github.com/trungse123/review-backend/internal/repository"
	apperrors "github.com/trungse123/review-backend/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository with an in-memory
// map. It is used in development and tests.
type ReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]*domain.Review
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository creates an empty in-memory review repository.
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{reviews: make(map[string]*domain.Review)}
}

// Create stores a copy of the review.
func (r *ReviewRepository) Create(_ context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reviews[review.ID]; exists {
		return apperrors.ErrConflict
	}
	r.reviews[review.ID] = clone(review)
	return nil
}

// GetByID returns a copy of the review.
func (r *ReviewRepository) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	review, ok := r.reviews[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return clone(review), nil
}

// LatestByPhoneAndProduct returns the newest review for the pair.
func (r *ReviewRepository) LatestByPhoneAndProduct(_ context.Context, phone, productID string) (*domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Review
	for _, review := range r.reviews {
		if review.Phone != phone || review.ProductID != productID {
			continue
		}
		if latest == nil || review.CreatedAt.After(latest.CreatedAt) {
			latest = review
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	return clone(latest), nil
}

// AppendReply appends under the write lock.
func (r *ReviewRepository) AppendReply(_ context.Context, id string, reply domain.Reply, updatedAt time.Time) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, ok := r.reviews[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	review.Replies = append(review.Replies, reply)
	review.UpdatedAt = updatedAt
	return clone(review), nil
}

// Approve flips a pending review to approved.
func (r *ReviewRepository) Approve(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, ok := r.reviews[id]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if review.IsApproved() {
		return false, nil
	}
	review.Status = domain.StatusApproved
	review.UpdatedAt = at
	return true, nil
}

// ListApproved returns a sorted page of approved reviews for a product.
func (r *ReviewRepository) ListApproved(_ context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	r.mu.RLock()
	var matched []domain.Review
	for _, review := range r.reviews {
		if review.ProductID != filter.ProductID || !review.IsApproved() {
			continue
		}
		if filter.Rating != nil && (review.Rating == nil || *review.Rating != *filter.Rating) {
			continue
		}
		matched = append(matched, *clone(review))
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, less(matched, filter.Sort))

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	page := make([]domain.Review, 0, end-start)
	page = append(page, matched[start:end]...)
	return page, total, nil
}

// ApprovedRatings returns the ratings of a product's approved reviews.
func (r *ReviewRepository) ApprovedRatings(_ context.Context, productID string) ([]*float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ratings := []*float64{}
	for _, review := range r.reviews {
		if review.ProductID == productID && review.IsApproved() {
			ratings = append(ratings, review.Rating)
		}
	}
	return ratings, nil
}

// CountApproved counts approved reviews by phone created in [from, to).
func (r *ReviewRepository) CountApproved(_ context.Context, phone string, from, to time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	window := domain.Window{From: from, To: to}
	count := 0
	for _, review := range r.reviews {
		if review.Phone == phone && review.IsApproved() && window.Contains(review.CreatedAt) {
			count++
		}
	}
	return count, nil
}

// less orders reviews for a sort key. Missing ratings sort last.
func less(reviews []domain.Review, sortKey string) func(i, j int) bool {
	newest := func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) }
	byRating := func(desc bool) func(i, j int) bool {
		return func(i, j int) bool {
			a, b := reviews[i].Rating, reviews[j].Rating
			switch {
			case a == nil && b == nil:
				return newest(i, j)
			case a == nil:
				return false
			case b == nil:
				return true
			case *a == *b:
				return newest(i, j)
			case desc:
				return *a > *b
			default:
				return *a < *b
			}
		}
	}

	switch sortKey {
	case domain.SortOldest:
		return func(i, j int) bool { return reviews[i].CreatedAt.Before(reviews[j].CreatedAt) }
	case domain.SortRatingDesc:
		return byRating(true)
	case domain.SortRatingAsc:
		return byRating(false)
	default:
		return newest
	}
}

func clone(r *domain.Review) *domain.Review {
	cp := *r
	cp.ImageRefs = append([]string{}, r.ImageRefs...)
	cp.Replies = append([]domain.Reply{}, r.Replies...)
	if r.Rating != nil {
		v := *r.Rating
		cp.Rating = &v
	}
	return &cp
}
