package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	outcomeApproved    = "approved"
	outcomePending     = "pending"
	outcomeInvalid     = "invalid"
	outcomeRateLimited = "rate_limited"
	outcomeFailed      = "failed"
)

// Purchase verification results.
const (
	verifyPurchased    = "purchased"
	verifyNotPurchased = "not_purchased"
	verifyError        = "error"
)

var submissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "review_submissions_total",
		Help: "Review submissions by outcome",
	},
	[]string{"outcome"},
)

var purchaseVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "review_purchase_verifications_total",
		Help: "Purchase verification lookups by result",
	},
	[]string{"result"},
)
