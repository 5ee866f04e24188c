package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rpsarena/models"

	"github.com/redis/go-redis/v9"
)

// RedisPaymentReferenceStore keeps pending recharges in Redis until their TTL runs out
type RedisPaymentReferenceStore struct {
	client *redis.Client
}

// NewRedisPaymentReferenceStore creates a new Redis backed reference store
func NewRedisPaymentReferenceStore(client *redis.Client) *RedisPaymentReferenceStore {
	return &RedisPaymentReferenceStore{client: client}
}

func paymentKey(reference string) string {
	return keyPrefix + "payment:" + reference
}

// Save stores the pending payment for ttl
func (s *RedisPaymentReferenceStore) Save(ctx context.Context, payment *models.PendingPayment, ttl time.Duration) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("failed to marshal pending payment: %w", err)
	}
	if err := s.client.Set(ctx, paymentKey(payment.Reference), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save payment reference %s: %w", payment.Reference, err)
	}
	return nil
}

// Get returns the pending payment, nil if it is unknown or expired
func (s *RedisPaymentReferenceStore) Get(ctx context.Context, reference string) (*models.PendingPayment, error) {
	data, err := s.client.Get(ctx, paymentKey(reference)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment reference %s: %w", reference, err)
	}

	var payment models.PendingPayment
	if err := json.Unmarshal(data, &payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment reference %s: %w", reference, err)
	}
	return &payment, nil
}

// Delete forgets a reference
func (s *RedisPaymentReferenceStore) Delete(ctx context.Context, reference string) error {
	if err := s.client.Del(ctx, paymentKey(reference)).Err(); err != nil {
		return fmt.Errorf("failed to delete payment reference %s: %w", reference, err)
	}
	return nil
}
