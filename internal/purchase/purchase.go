// Package purchase answers whether a customer has a qualifying order for a
// product. Answers are a trust signal only and never gate a submission.
package purchase

import (
	"context"
)

// Verifier reports whether phone has a paid and fulfilled order containing
// productID.
type Verifier interface {
	HasPurchased(ctx context.Context, phone, productID string) (bool, error)
}

// NopVerifier answers false for everyone. It is used when no order API is
// configured.
type NopVerifier struct{}

// HasPurchased always returns false.
func (NopVerifier) HasPurchased(context.Context, string, string) (bool, error) {
	return false, nil
}
