package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type slot struct {
	token     string
	expiresAt time.Time
}

// MemoryGuard keeps reservations in process. It only protects against
// races within a single instance.
type MemoryGuard struct {
	mu      sync.Mutex
	slots   map[string]slot
	nowFunc func() time.Time
}

var _ Guard = (*MemoryGuard)(nil)

// NewMemoryGuard creates an in-process cooldown guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		slots:   make(map[string]slot),
		nowFunc: time.Now,
	}
}

// Reserve claims the slot unless an unexpired reservation exists. Expired
// entries are swept on each call.
func (g *MemoryGuard) Reserve(_ context.Context, phone, productID string, ttl time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFunc()
	for k, s := range g.slots {
		if !now.Before(s.expiresAt) {
			delete(g.slots, k)
		}
	}

	k := key(phone, productID)
	if _, held := g.slots[k]; held {
		return "", false, nil
	}

	token := uuid.NewString()
	g.slots[k] = slot{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Release drops the reservation if it still belongs to token.
func (g *MemoryGuard) Release(_ context.Context, phone, productID, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := key(phone, productID)
	if s, ok := g.slots[k]; ok && s.token == token {
		delete(g.slots, k)
	}
	return nil
}

func (g *MemoryGuard) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.slots)
}
