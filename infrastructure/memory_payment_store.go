package infrastructure

import (
	"context"
	"sync"
	"time"

	"rpsarena/models"
)

type storedPayment struct {
	payment   models.PendingPayment
	expiresAt time.Time
}

// MemoryPaymentReferenceStore is the single-process fallback used when Redis is not
// configured. References do not survive a restart. Expired references are evicted on
// every Save, so abandoned recharges never pile up.
type MemoryPaymentReferenceStore struct {
	mu       sync.Mutex
	payments map[string]storedPayment
	now      func() time.Time
}

// NewMemoryPaymentReferenceStore creates an empty in-process store
func NewMemoryPaymentReferenceStore() *MemoryPaymentReferenceStore {
	return &MemoryPaymentReferenceStore{
		payments: make(map[string]storedPayment),
		now:      time.Now,
	}
}

func (s *MemoryPaymentReferenceStore) Save(ctx context.Context, payment *models.PendingPayment, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)
	s.payments[payment.Reference] = storedPayment{
		payment:   *payment,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// evictExpired drops every reference whose TTL has passed. Callers hold mu.
func (s *MemoryPaymentReferenceStore) evictExpired(now time.Time) {
	for reference, stored := range s.payments {
		if !now.Before(stored.expiresAt) {
			delete(s.payments, reference)
		}
	}
}

func (s *MemoryPaymentReferenceStore) Get(ctx context.Context, reference string) (*models.PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.payments[reference]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(stored.expiresAt) {
		delete(s.payments, reference)
		return nil, nil
	}
	payment := stored.payment
	return &payment, nil
}

func (s *MemoryPaymentReferenceStore) Delete(ctx context.Context, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.payments, reference)
	return nil
}
