// Package rewards tells the loyalty service that a customer completed the
// review mission. Delivery is best effort and never part of the request.
package rewards

import (
	"context"
)

// Notifier signals a completed review mission for a customer.
type Notifier interface {
	// Name identifies the transport in logs and metrics.
	Name() string
	NotifyCompleted(ctx context.Context, n Notification) error
}

// Notification is the payload sent to the loyalty service.
type Notification struct {
	Phone     string `json:"phone"`
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
	Mission   string `json:"mission"`
}

// MissionReview names the loyalty mission completed by posting a review.
const MissionReview = "review"

// NopNotifier discards notifications.
type NopNotifier struct{}

// Name returns "none".
func (NopNotifier) Name() string { return "none" }

// NotifyCompleted does nothing.
func (NopNotifier) NotifyCompleted(context.Context, Notification) error { return nil }
