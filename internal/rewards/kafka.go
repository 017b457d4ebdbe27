package rewards

import (
	"context"
	"fmt"

	pkgkafka "github.com/trungse123/review-backend/pkg/kafka"
	"github.com/trungse123/review-backend/pkg/logger"
)

// TopicMissionCompleted carries mission completions for the loyalty service.
var TopicMissionCompleted = pkgkafka.Topic("rewards", "mission-completed")

// EventPublisher is the subset of the Kafka producer the notifier uses.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// KafkaNotifier publishes mission completions as events keyed by phone.
type KafkaNotifier struct {
	publisher EventPublisher
	source    string
}

var _ Notifier = (*KafkaNotifier)(nil)

// NewKafkaNotifier creates a Kafka-backed notifier.
func NewKafkaNotifier(publisher EventPublisher, source string) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, source: source}
}

// Name returns "kafka".
func (n *KafkaNotifier) Name() string { return "kafka" }

// NotifyCompleted publishes a mission-completed event.
func (n *KafkaNotifier) NotifyCompleted(ctx context.Context, notification Notification) error {
	event, err := pkgkafka.NewEvent("rewards.mission-completed", notification.Phone, "customer", n.source, notification,
		pkgkafka.WithMetadata("review_id", notification.ReviewID),
		pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)))
	if err != nil {
		return fmt.Errorf("create mission-completed event: %w", err)
	}

	if err := n.publisher.Publish(ctx, TopicMissionCompleted, event); err != nil {
		return fmt.Errorf("publish mission-completed event: %w", err)
	}
	return nil
}
