package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/trungse123/review-backend/internal/domain"
	"github.com/trungse123/review-backend/internal/repository"
	"github.com/trungse123/review-backend/pkg/database"
	apperrors "github.com/trungse123/review-backend/pkg/errors"
)

const reviewColumns = `id, product_id, customer_name, phone, email, title, content, rating,
		image_refs, video_ref, is_purchased, status, replies, created_at, updated_at`

// orderClauses whitelists the ORDER BY expressions for each sort key.
var orderClauses = map[string]string{
	domain.SortNewest:     "created_at DESC",
	domain.SortOldest:     "created_at ASC",
	domain.SortRatingDesc: "rating DESC NULLS LAST, created_at DESC",
	domain.SortRatingAsc:  "rating ASC NULLS LAST, created_at DESC",
}

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review into the database.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	repliesJSON, err := marshalReplies(review.Replies)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		review.ID,
		review.ProductID,
		review.CustomerName,
		review.Phone,
		review.Email,
		review.Title,
		review.Content,
		review.Rating,
		nonNil(review.ImageRefs),
		review.VideoRef,
		review.IsPurchased,
		review.Status,
		repliesJSON,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (_ *domain.Review, err error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetReview", query)
	defer func() { end(err) }()

	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// LatestByPhoneAndProduct returns the newest review for the pair.
func (r *ReviewRepository) LatestByPhoneAndProduct(ctx context.Context, phone, productID string) (_ *domain.Review, err error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE phone = $1 AND product_id = $2
		ORDER BY created_at DESC
		LIMIT 1`

	ctx, end := database.TraceQuery(ctx, "LatestReviewByPhoneAndProduct", query)
	defer func() { end(err) }()

	review, err := scanReview(r.pool.QueryRow(ctx, query, phone, productID))
	if err != nil {
		return nil, fmt.Errorf("get latest review: %w", err)
	}
	return review, nil
}

// AppendReply concatenates the reply onto the JSONB thread in a single
// statement, so concurrent appends never overwrite each other.
func (r *ReviewRepository) AppendReply(ctx context.Context, id string, reply domain.Reply, updatedAt time.Time) (_ *domain.Review, err error) {
	replyJSON, err := marshalReplies([]domain.Reply{reply})
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE reviews
		SET replies = replies || $2::jsonb, updated_at = $3
		WHERE id = $1
		RETURNING ` + reviewColumns

	ctx, end := database.TraceQuery(ctx, "AppendReviewReply", query)
	defer func() { end(err) }()

	review, err := scanReview(r.pool.QueryRow(ctx, query, id, replyJSON, updatedAt))
	if err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}
	return review, nil
}

// Approve flips a pending review to approved. An already approved review is
// left untouched, including its updated_at.
func (r *ReviewRepository) Approve(ctx context.Context, id string, at time.Time) (_ bool, err error) {
	query := `
		UPDATE reviews
		SET status = 'approved', updated_at = $2
		WHERE id = $1 AND status <> 'approved'`

	ctx, end := database.TraceQuery(ctx, "ApproveReview", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("approve review: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err = r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check review exists: %w", err)
	}
	if !exists {
		return false, apperrors.ErrNotFound
	}
	return false, nil
}

// ListApproved returns a page of approved reviews for a product.
func (r *ReviewRepository) ListApproved(ctx context.Context, filter repository.ReviewFilter) (_ []domain.Review, _ int, err error) {
	order, ok := orderClauses[filter.Sort]
	if !ok {
		order = orderClauses[domain.SortNewest]
	}

	query := `
		SELECT ` + reviewColumns + `,
		       count(*) OVER() AS total_count
		FROM reviews
		WHERE product_id = $1
		  AND status = 'approved'
		  AND ($2::double precision IS NULL OR rating = $2)
		ORDER BY ` + order + `
		LIMIT $3 OFFSET $4`

	ctx, end := database.TraceQuery(ctx, "ListApprovedReviews", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, filter.ProductID, filter.Rating, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		review, scanErr := scanReview(rows, &totalCount)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", scanErr)
		}
		reviews = append(reviews, *review)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	rows.Close()

	if reviews == nil {
		reviews = []domain.Review{}
		// The window count has no row to ride on past the last page.
		if filter.Offset > 0 {
			if totalCount, err = r.countApproved(ctx, filter); err != nil {
				return nil, 0, err
			}
		}
	}

	return reviews, totalCount, nil
}

func (r *ReviewRepository) countApproved(ctx context.Context, filter repository.ReviewFilter) (_ int, err error) {
	query := `
		SELECT count(*)
		FROM reviews
		WHERE product_id = $1
		  AND status = 'approved'
		  AND ($2::double precision IS NULL OR rating = $2)`

	ctx, end := database.TraceQuery(ctx, "CountApprovedReviews", query)
	defer func() { end(err) }()

	var total int
	if err = r.pool.QueryRow(ctx, query, filter.ProductID, filter.Rating).Scan(&total); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return total, nil
}

// ApprovedRatings returns the ratings of all approved reviews of a product.
func (r *ReviewRepository) ApprovedRatings(ctx context.Context, productID string) (_ []*float64, err error) {
	query := `SELECT rating FROM reviews WHERE product_id = $1 AND status = 'approved'`

	ctx, end := database.TraceQuery(ctx, "ApprovedReviewRatings", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings := []*float64{}
	for rows.Next() {
		var rating *float64
		if err = rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}

	return ratings, nil
}

// CountApproved counts approved reviews by phone created in [from, to).
func (r *ReviewRepository) CountApproved(ctx context.Context, phone string, from, to time.Time) (_ int, err error) {
	query := `
		SELECT COUNT(*)
		FROM reviews
		WHERE phone = $1 AND status = 'approved'
		  AND created_at >= $2 AND created_at < $3`

	ctx, end := database.TraceQuery(ctx, "CountApprovedReviews", query)
	defer func() { end(err) }()

	var count int
	if err = r.pool.QueryRow(ctx, query, phone, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("count approved reviews: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanReview reads one review row. Extra destinations are scanned after the
// review columns, e.g. a window count.
func scanReview(row rowScanner, extra ...any) (*domain.Review, error) {
	var (
		review      domain.Review
		repliesJSON []byte
	)

	dest := []any{
		&review.ID,
		&review.ProductID,
		&review.CustomerName,
		&review.Phone,
		&review.Email,
		&review.Title,
		&review.Content,
		&review.Rating,
		&review.ImageRefs,
		&review.VideoRef,
		&review.IsPurchased,
		&review.Status,
		&repliesJSON,
		&review.CreatedAt,
		&review.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	review.Replies = []domain.Reply{}
	if len(repliesJSON) > 0 {
		if err := json.Unmarshal(repliesJSON, &review.Replies); err != nil {
			return nil, fmt.Errorf("unmarshal replies: %w", err)
		}
	}
	review.ImageRefs = nonNil(review.ImageRefs)

	return &review, nil
}

func marshalReplies(replies []domain.Reply) ([]byte, error) {
	if replies == nil {
		replies = []domain.Reply{}
	}
	b, err := json.Marshal(replies)
	if err != nil {
		return nil, fmt.Errorf("marshal replies: %w", err)
	}
	return b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
