package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/trungse123/review-backend/internal/cooldown"
	"github.com/trungse123/review-backend/internal/domain"
	"github.com/trungse123/review-backend/internal/purchase"
	"github.com/trungse123/review-backend/internal/repository"
	"github.com/trungse123/review-backend/internal/rewards"
	apperrors "github.com/trungse123/review-backend/pkg/errors"
	"github.com/trungse123/review-backend/pkg/logger"
	"github.com/trungse123/review-backend/pkg/pagination"
	"github.com/trungse123/review-backend/pkg/tracing"
	"github.com/trungse123/review-backend/pkg/validator"
)

// DefaultVerifyTimeout bounds a purchase verification lookup.
const DefaultVerifyTimeout = 3 * time.Second

const tracerName = "github.com/trungse123/review-backend/internal/service"

// EventPublisher publishes review domain events.
type EventPublisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
	PublishReviewApproved(ctx context.Context, review *domain.Review) error
	PublishReviewReplied(ctx context.Context, review *domain.Review) error
}

// RewardsDispatcher hands a mission notification to background delivery.
type RewardsDispatcher interface {
	Dispatch(ctx context.Context, n rewards.Notification) bool
}

// Options tunes the review service.
type Options struct {
	// VerifyTimeout bounds the purchase verification call.
	VerifyTimeout time.Duration
	// QuotaLocation is the calendar used for daily and monthly quotas.
	QuotaLocation *time.Location
}

// Deps groups the collaborators of the review service.
type Deps struct {
	Repo     repository.ReviewRepository
	Guard    cooldown.Guard
	Verifier purchase.Verifier
	Rewards  RewardsDispatcher
	Events   EventPublisher
}

// ReviewService implements the review lifecycle: submission, replies,
// moderation and aggregation.
type ReviewService struct {
	repo     repository.ReviewRepository
	guard    cooldown.Guard
	verifier purchase.Verifier
	rewards  RewardsDispatcher
	events   EventPublisher
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewReviewService creates a new review service. Verifier, Rewards and
// Events may be nil; they default to no-ops.
func NewReviewService(deps Deps, opts Options, log *slog.Logger) *ReviewService {
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = DefaultVerifyTimeout
	}
	if opts.QuotaLocation == nil {
		opts.QuotaLocation = time.Local
	}
	if deps.Guard == nil {
		deps.Guard = cooldown.NewMemoryGuard()
	}
	if deps.Verifier == nil {
		deps.Verifier = purchase.NopVerifier{}
	}
	if deps.Rewards == nil {
		deps.Rewards = nopDispatcher{}
	}
	if deps.Events == nil {
		deps.Events = nopEvents{}
	}
	return &ReviewService{
		repo:     deps.Repo,
		guard:    deps.Guard,
		verifier: deps.Verifier,
		rewards:  deps.Rewards,
		events:   deps.Events,
		opts:     opts,
		logger:   log,
		now:      time.Now,
	}
}

// SubmissionInput holds a new review as sent by a customer. Media references
// are already resolved.
type SubmissionInput struct {
	ProductID    string   `json:"productId" validate:"required"`
	CustomerName string   `json:"name" validate:"required"`
	Phone        string   `json:"phone" validate:"required"`
	Email        string   `json:"email" validate:"omitempty,email"`
	Title        string   `json:"title"`
	Content      string   `json:"content" validate:"required"`
	Rating       *float64 `json:"rating"`
	ImageRefs    []string `json:"images" validate:"max=5"`
	VideoRef     string   `json:"video"`
}

func (in *SubmissionInput) normalize() {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.VideoRef = strings.TrimSpace(in.VideoRef)
}

// ValidateSubmission trims the input and reports every invalid field. It has
// no side effects, so callers may run it before storing uploaded media.
func ValidateSubmission(input *SubmissionInput) error {
	input.normalize()
	return validator.Validate(input)
}

// ReplyInput holds a reply to append to a review.
type ReplyInput struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// ListFilter selects a page of approved reviews for a product.
type ListFilter struct {
	ProductID string
	// Rating matches the stored rating exactly when set.
	Rating  *float64
	Sort    string
	Page    int
	PerPage int
}

// ListResult is a page of approved reviews.
type ListResult struct {
	Reviews    []domain.Review
	TotalCount int
	Page       int
	PerPage    int
}

// Submit validates a submission, enforces the per-product cooldown, resolves
// the purchase flag and stores the review. Rewards and events are dispatched
// after the write and never affect the result.
func (s *ReviewService) Submit(ctx context.Context, input *SubmissionInput) (*domain.Review, error) {
	if err := ValidateSubmission(input); err != nil {
		submissionsTotal.WithLabelValues(outcomeInvalid).Inc()
		return nil, err
	}

	now := s.now().UTC()
	log := logger.WithContext(ctx, s.logger)

	latest, err := s.repo.LatestByPhoneAndProduct(ctx, input.Phone, input.ProductID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
	case err != nil:
		submissionsTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, apperrors.Persistence(err)
	default:
		if wait := domain.SubmissionCooldown - now.Sub(latest.CreatedAt); wait > 0 {
			submissionsTotal.WithLabelValues(outcomeRateLimited).Inc()
			return nil, cooldownError(wait)
		}
	}

	token, ok, err := s.guard.Reserve(ctx, input.Phone, input.ProductID, domain.SubmissionCooldown)
	switch {
	case err != nil:
		log.WarnContext(ctx, "cooldown reservation unavailable",
			logger.Phone(input.Phone),
			slog.String("product_id", input.ProductID),
			slog.String("error", apperrors.Degraded("cooldown", err).Error()),
		)
	case !ok:
		submissionsTotal.WithLabelValues(outcomeRateLimited).Inc()
		return nil, cooldownError(domain.SubmissionCooldown)
	}

	isPurchased := s.verifyPurchase(ctx, log, input.Phone, input.ProductID)

	imageRefs := input.ImageRefs
	if imageRefs == nil {
		imageRefs = []string{}
	}

	review := &domain.Review{
		ID:           uuid.New().String(),
		ProductID:    input.ProductID,
		CustomerName: input.CustomerName,
		Phone:        input.Phone,
		Email:        input.Email,
		Title:        input.Title,
		Content:      input.Content,
		Rating:       input.Rating,
		ImageRefs:    imageRefs,
		VideoRef:     input.VideoRef,
		IsPurchased:  isPurchased,
		Status:       domain.ModerationStatus(input.Rating),
		Replies:      []domain.Reply{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		submissionsTotal.WithLabelValues(outcomeFailed).Inc()
		if token != "" {
			if relErr := s.guard.Release(ctx, input.Phone, input.ProductID, token); relErr != nil {
				log.WarnContext(ctx, "failed to release cooldown reservation",
					logger.Phone(input.Phone),
					slog.String("product_id", input.ProductID),
					slog.String("error", relErr.Error()),
				)
			}
		}
		return nil, apperrors.Persistence(err)
	}

	if review.IsApproved() {
		submissionsTotal.WithLabelValues(outcomeApproved).Inc()
	} else {
		submissionsTotal.WithLabelValues(outcomePending).Inc()
	}

	s.rewards.Dispatch(ctx, rewards.Notification{
		Phone:     review.Phone,
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		Mission:   rewards.MissionReview,
	})

	if err := s.events.PublishReviewCreated(ctx, review); err != nil {
		log.WarnContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	log.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		logger.Phone(review.Phone),
		slog.String("status", review.Status),
		slog.Bool("is_purchased", review.IsPurchased),
	)

	return review, nil
}

// verifyPurchase resolves the trust flag. Any failure counts as not purchased.
func (s *ReviewService) verifyPurchase(ctx context.Context, log *slog.Logger, phone, productID string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opts.VerifyTimeout)
	defer cancel()

	ctx, span := tracing.Tracer(tracerName).Start(ctx, "review.verify_purchase",
		trace.WithAttributes(attribute.String("product_id", productID)))
	defer span.End()

	purchased, err := s.verifier.HasPurchased(ctx, phone, productID)
	span.SetAttributes(attribute.Bool("purchased", purchased))
	if err != nil {
		span.RecordError(err)
		purchaseVerificationsTotal.WithLabelValues(verifyError).Inc()
		log.WarnContext(ctx, "purchase verification failed",
			logger.Phone(phone),
			slog.String("product_id", productID),
			slog.String("error", apperrors.Degraded("purchase-verification", err).Error()),
		)
		return false
	}

	if purchased {
		purchaseVerificationsTotal.WithLabelValues(verifyPurchased).Inc()
	} else {
		purchaseVerificationsTotal.WithLabelValues(verifyNotPurchased).Inc()
	}
	return purchased
}

func cooldownError(wait time.Duration) error {
	return apperrors.RateLimited("please wait before reviewing this product again", wait)
}

// Reply appends a reply to a review in any status.
func (s *ReviewService) Reply(ctx context.Context, reviewID string, input *ReplyInput) (*domain.Review, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Content = strings.TrimSpace(input.Content)
	if err := validator.Validate(input); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(reviewID); err != nil {
		return nil, apperrors.InvalidInput("invalid review id")
	}

	now := s.now().UTC()
	review, err := s.repo.AppendReply(ctx, reviewID, domain.Reply{
		Name:      input.Name,
		Content:   input.Content,
		CreatedAt: now,
	}, now)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", reviewID)
		}
		return nil, apperrors.Persistence(err)
	}

	log := logger.WithContext(ctx, s.logger)
	if err := s.events.PublishReviewReplied(ctx, review); err != nil {
		log.WarnContext(ctx, "failed to publish review.replied event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	log.InfoContext(ctx, "reply added",
		slog.String("review_id", review.ID),
		slog.Int("reply_count", len(review.Replies)),
	)

	return review, nil
}

// Approve moves a review to approved. Approving twice is a no-op.
func (s *ReviewService) Approve(ctx context.Context, reviewID string) error {
	if _, err := uuid.Parse(reviewID); err != nil {
		return apperrors.InvalidInput("invalid review id")
	}

	flipped, err := s.repo.Approve(ctx, reviewID, s.now().UTC())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("review", reviewID)
		}
		return apperrors.Persistence(err)
	}
	if !flipped {
		return nil
	}

	log := logger.WithContext(ctx, s.logger)
	log.InfoContext(ctx, "review approved", slog.String("review_id", reviewID))

	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		log.WarnContext(ctx, "failed to load approved review for event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if err := s.events.PublishReviewApproved(ctx, review); err != nil {
		log.WarnContext(ctx, "failed to publish review.approved event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Summary computes the star distribution of a product's approved reviews.
func (s *ReviewService) Summary(ctx context.Context, productID string) (*domain.RatingSummary, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	ratings, err := s.repo.ApprovedRatings(ctx, productID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	summary := domain.Summarize(productID, ratings)
	return &summary, nil
}

// Quota counts a customer's approved reviews for the current local day and
// month.
func (s *ReviewService) Quota(ctx context.Context, phone string) (*domain.CustomerQuota, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperrors.InvalidInput("phone is required")
	}

	now := s.now()
	day := domain.DayWindow(now, s.opts.QuotaLocation)
	month := domain.MonthWindow(now, s.opts.QuotaLocation)

	today, err := s.repo.CountApproved(ctx, phone, day.From, day.To)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	monthly, err := s.repo.CountApproved(ctx, phone, month.From, month.To)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	return &domain.CustomerQuota{Today: today, Monthly: monthly}, nil
}

// List returns a page of approved reviews for a product. Page bounds are
// normalized rather than rejected.
func (s *ReviewService) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	productID := strings.TrimSpace(filter.ProductID)
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	page := pagination.Normalize(filter.Page, filter.PerPage)

	reviews, total, err := s.repo.ListApproved(ctx, repository.ReviewFilter{
		ProductID: productID,
		Rating:    filter.Rating,
		Sort:      domain.NormalizeSort(filter.Sort),
		Offset:    page.Offset,
		Limit:     page.PerPage,
	})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	return &ListResult{
		Reviews:    reviews,
		TotalCount: total,
		Page:       page.Page,
		PerPage:    page.PerPage,
	}, nil
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, rewards.Notification) bool { return false }

type nopEvents struct{}

func (nopEvents) PublishReviewCreated(context.Context, *domain.Review) error  { return nil }
func (nopEvents) PublishReviewApproved(context.Context, *domain.Review) error { return nil }
func (nopEvents) PublishReviewReplied(context.Context, *domain.Review) error  { return nil }
