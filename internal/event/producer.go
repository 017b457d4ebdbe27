package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trungse123/review-backend/internal/domain"
	pkgkafka "github.com/trungse123/review-backend/pkg/kafka"
	"github.com/trungse123/review-backend/pkg/logger"
)

// Kafka topics for review domain events.
var (
	TopicReviewCreated  = pkgkafka.Topic("review", "created")
	TopicReviewApproved = pkgkafka.Topic("review", "approved")
	TopicReviewReplied  = pkgkafka.Topic("review", "replied")
)

// AggregateTypeReview is the aggregate type stamped on review events.
const AggregateTypeReview = "review"

// SourceReviewService identifies events originating from this service.
const SourceReviewService = "review-service"

// ReviewCreatedData is the payload for a review.created event. It carries no
// customer contact details.
type ReviewCreatedData struct {
	ID          string   `json:"id"`
	ProductID   string   `json:"product_id"`
	Rating      *float64 `json:"rating,omitempty"`
	Status      string   `json:"status"`
	IsPurchased bool     `json:"is_purchased"`
	ImageCount  int      `json:"image_count"`
	HasVideo    bool     `json:"has_video"`
}

// ReviewApprovedData is the payload for a review.approved event.
type ReviewApprovedData struct {
	ID        string   `json:"id"`
	ProductID string   `json:"product_id"`
	Rating    *float64 `json:"rating,omitempty"`
}

// ReviewRepliedData is the payload for a review.replied event.
type ReviewRepliedData struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	ReplyCount int    `json:"reply_count"`
	ReplyName  string `json:"reply_name"`
}

// Publisher is the subset of the Kafka producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka Publisher, log *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: log,
	}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{
		ID:          review.ID,
		ProductID:   review.ProductID,
		Rating:      review.Rating,
		Status:      review.Status,
		IsPurchased: review.IsPurchased,
		ImageCount:  len(review.ImageRefs),
		HasVideo:    review.VideoRef != "",
	}
	return p.publish(ctx, TopicReviewCreated, "review.created", review.ID, data)
}

// PublishReviewApproved publishes a review.approved event.
func (p *Producer) PublishReviewApproved(ctx context.Context, review *domain.Review) error {
	data := ReviewApprovedData{
		ID:        review.ID,
		ProductID: review.ProductID,
		Rating:    review.Rating,
	}
	return p.publish(ctx, TopicReviewApproved, "review.approved", review.ID, data)
}

// PublishReviewReplied publishes a review.replied event.
func (p *Producer) PublishReviewReplied(ctx context.Context, review *domain.Review) error {
	data := ReviewRepliedData{
		ID:         review.ID,
		ProductID:  review.ProductID,
		ReplyCount: len(review.Replies),
	}
	if n := len(review.Replies); n > 0 {
		data.ReplyName = review.Replies[n-1].Name
	}
	return p.publish(ctx, TopicReviewReplied, "review.replied", review.ID, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, reviewID string, data any) error {
	event, err := pkgkafka.NewEvent(eventType, reviewID, AggregateTypeReview, SourceReviewService, data,
		pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)))
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published "+eventType+" event",
		slog.String("review_id", reviewID),
	)
	return nil
}

// NopProducer drops every event. It stands in when Kafka is disabled.
type NopProducer struct{}

// PublishReviewCreated does nothing.
func (NopProducer) PublishReviewCreated(context.Context, *domain.Review) error { return nil }

// PublishReviewApproved does nothing.
func (NopProducer) PublishReviewApproved(context.Context, *domain.Review) error { return nil }

// PublishReviewReplied does nothing.
func (NopProducer) PublishReviewReplied(context.Context, *domain.Review) error { return nil }
