// Package cooldown reserves the short submission window per (phone, product)
// so two concurrent submissions cannot both pass the store's cooldown check.
package cooldown

import (
	"context"
	"strconv"
	"time"
)

// Guard reserves a cooldown slot for a (phone, product) pair.
type Guard interface {
	// Reserve claims the slot for ttl. ok is false when another submission
	// already holds it. The returned token releases the reservation.
	Reserve(ctx context.Context, phone, productID string, ttl time.Duration) (token string, ok bool, err error)

	// Release gives the slot back early, e.g. when the write that followed
	// the reservation failed. Releasing with a stale token is a no-op.
	Release(ctx context.Context, phone, productID, token string) error
}

// key length-prefixes the phone so no (phone, product) pair can collide with
// another whose parts contain the separator.
func key(phone, productID string) string {
	return "review:cooldown:" + strconv.Itoa(len(phone)) + ":" + phone + ":" + productID
}
