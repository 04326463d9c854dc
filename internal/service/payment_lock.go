package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
)

type lockRepository interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// PaymentLock serialises payment processing per fee across API instances.
type PaymentLock interface {
	Acquire(ctx context.Context, feeID string) (release func(), err error)
}

// RedisPaymentLock implements PaymentLock on top of a Redis lock repository.
type RedisPaymentLock struct {
	repo   lockRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisPaymentLock constructs the lock. TTL bounds how long a crashed
// holder can block a fee.
func NewRedisPaymentLock(repo lockRepository, ttl time.Duration, logger *zap.Logger) *RedisPaymentLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPaymentLock{repo: repo, ttl: ttl, logger: logger}
}

// Acquire locks feeID. It fails with ErrLockHeld while another payment for
// the same fee is in flight.
func (l *RedisPaymentLock) Acquire(ctx context.Context, feeID string) (func(), error) {
	key := "fee-payment:" + feeID
	token := uuid.NewString()
	ok, err := l.repo.Acquire(ctx, key, token, l.ttl)
	if err != nil {
		l.logger.Error("payment lock unavailable", zap.String("fee_id", feeID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "payment lock unavailable")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrLockHeld, "a payment for this fee is already being processed")
	}
	return func() {
		// the request context may already be cancelled
		if err := l.repo.Release(context.Background(), key, token); err != nil {
			l.logger.Warn("payment lock release failed", zap.String("fee_id", feeID), zap.Error(err))
		}
	}, nil
}
