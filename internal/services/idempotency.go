package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidopay/card-gateway/pkg/logger"
	"github.com/rapidopay/card-gateway/pkg/redis"
)

var (
	ErrDuplicateRequest  = errors.New("request already processed")
	ErrLockAcquireFailed = errors.New("failed to acquire processing lock")
)

// IdempotencyConfig tunes the request de-duplication guard. The lock
// covers the in-flight window; the processed marker covers client
// retries after a successful mutation.
type IdempotencyConfig struct {
	LockTTL            time.Duration
	ProcessedTTL       time.Duration
	LockKeyPrefix      string
	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       24 * time.Hour,
		LockKeyPrefix:      "lock:",
		ProcessedKeyPrefix: "processed:",
	}
}

// IdempotencyService guards balance mutations against duplicate
// submissions (double-clicks, client retries) keyed by the caller's
// request ID. It is advisory: if redis is unreachable the mutation
// still runs, since a duplicate top-up is recoverable from the ledger
// while a blocked sale is not.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

// Reservation is one acquired processing slot for a request ID.
type Reservation struct {
	RequestID    string
	lockAcquired bool
	service      *IdempotencyService
}

// Begin reserves the request ID. ErrDuplicateRequest means the same ID
// already completed; ErrLockAcquireFailed means it is in flight on
// another worker.
func (s *IdempotencyService) Begin(ctx context.Context, requestID string) (*Reservation, error) {
	processedKey := s.config.ProcessedKeyPrefix + requestID
	exists, err := s.redis.Exist(processedKey)
	if err != nil {
		logger.Warn("failed to check processed marker", "request_id", requestID, "error", err)
		// Proceed on check failure: risking a duplicate beats refusing
		// the sale.
	} else if exists > 0 {
		return nil, ErrDuplicateRequest
	}

	lockKey := s.config.LockKeyPrefix + requestID
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Warn("failed to acquire request lock", "request_id", requestID, "error", err)
		return &Reservation{RequestID: requestID, service: s}, nil
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}

	return &Reservation{
		RequestID:    requestID,
		lockAcquired: true,
		service:      s,
	}, nil
}

// MarkSuccess records the request as completed and drops the lock.
func (s *IdempotencyService) MarkSuccess(ctx context.Context, r *Reservation) error {
	processedKey := s.config.ProcessedKeyPrefix + r.RequestID
	if err := s.redis.Set(processedKey, []byte("1"), s.config.ProcessedTTL); err != nil {
		logger.Error("failed to set processed marker", "request_id", r.RequestID, "error", err)
		return fmt.Errorf("mark processed: %w", err)
	}
	s.release(r)
	return nil
}

// Release frees the lock without a processed marker, so the client may
// retry a failed mutation with the same request ID.
func (s *IdempotencyService) Release(ctx context.Context, r *Reservation) {
	if r == nil {
		return
	}
	s.release(r)
}

func (s *IdempotencyService) release(r *Reservation) {
	if !r.lockAcquired {
		return
	}
	lockKey := s.config.LockKeyPrefix + r.RequestID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("failed to release request lock", "request_id", r.RequestID, "error", err)
	}
	r.lockAcquired = false
}

// IsProcessed reports whether the request ID already completed.
func (s *IdempotencyService) IsProcessed(ctx context.Context, requestID string) (bool, error) {
	exists, err := s.redis.Exist(s.config.ProcessedKeyPrefix + requestID)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
