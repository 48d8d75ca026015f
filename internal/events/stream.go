// Package events fans committed ledger rows out over a redis stream so
// side consumers (metrics, audit tails) stay out of the mutation path.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/pkg/logger"
	"github.com/rapidopay/card-gateway/pkg/redis"
)

// Handler processes one consumed ledger event. A nil return acks the
// message; an error leaves it pending for reclaim.
type Handler func(ctx context.Context, txn *model.Transaction) error

type StreamConfig struct {
	Name              string
	ConsumerGroup     string
	ConsumerName      string
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
}

type Stream struct {
	adapter redis.RedisAdapter
	config  StreamConfig
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewStream(adapter redis.RedisAdapter, config StreamConfig) (*Stream, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("stream name is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "default-group"
	}
	if config.ConsumerName == "" {
		config.ConsumerName = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if config.VisibilityTimeout == 0 {
		config.VisibilityTimeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}

	s := &Stream{
		adapter: adapter,
		config:  config,
	}

	err := adapter.XGroupCreateMkStream(config.Name, config.ConsumerGroup, "0")
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return s, nil
}

// PublishTransaction appends one committed ledger row to the stream.
func (s *Stream) PublishTransaction(ctx context.Context, txn *model.Transaction) error {
	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	_, err = s.adapter.XAdd(s.config.Name, map[string]interface{}{
		"data":      string(data),
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("publish transaction: %w", err)
	}

	if s.config.MaxLen > 0 {
		_ = s.adapter.XTrimApprox(s.config.Name, s.config.MaxLen)
	}
	return nil
}

// Consume starts the consumer loop in a goroutine. Call Stop to drain.
func (s *Stream) Consume(handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.consumeLoop(ctx, handler)
	return nil
}

func (s *Stream) consumeLoop(ctx context.Context, handler Handler) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.readBatch(ctx, handler)
			s.claimStuck(ctx, handler)
		}
	}
}

func (s *Stream) readBatch(ctx context.Context, handler Handler) {
	messages, err := s.adapter.XReadGroup(
		s.config.ConsumerGroup,
		s.config.ConsumerName,
		s.config.Name,
		">",
		s.config.BatchSize,
	)
	if err != nil {
		if err != redis.NilError {
			logger.Warn("event stream read failed", "stream", s.config.Name, "error", err)
		}
		return
	}

	for _, msg := range messages {
		s.handle(ctx, handler, msg)
	}
}

// claimStuck re-reads messages another consumer took but never acked
// within the visibility timeout.
func (s *Stream) claimStuck(ctx context.Context, handler Handler) {
	pending, err := s.adapter.XPendingExt(s.config.Name, s.config.ConsumerGroup, "-", "+", 100)
	if err != nil || len(pending) == 0 {
		return
	}

	var ids []string
	for _, p := range pending {
		if p.Idle >= s.config.VisibilityTimeout {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return
	}

	messages, err := s.adapter.XClaim(
		s.config.Name,
		s.config.ConsumerGroup,
		s.config.ConsumerName,
		s.config.VisibilityTimeout,
		ids...,
	)
	if err != nil {
		return
	}

	for _, msg := range messages {
		s.handle(ctx, handler, msg)
	}
}

func (s *Stream) handle(ctx context.Context, handler Handler, msg redis.StreamMessage) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		// Malformed entry; ack it so it doesn't loop forever.
		_ = s.adapter.XAck(s.config.Name, s.config.ConsumerGroup, msg.ID)
		return
	}

	var txn model.Transaction
	if err := json.Unmarshal([]byte(raw), &txn); err != nil {
		logger.Warn("dropping undecodable event", "stream", s.config.Name, "id", msg.ID, "error", err)
		_ = s.adapter.XAck(s.config.Name, s.config.ConsumerGroup, msg.ID)
		return
	}

	hctx, cancel := context.WithTimeout(ctx, s.config.VisibilityTimeout)
	defer cancel()

	if err := handler(hctx, &txn); err != nil {
		// Not acked: stays pending and gets reclaimed.
		return
	}
	if err := s.adapter.XAck(s.config.Name, s.config.ConsumerGroup, msg.ID); err != nil {
		logger.Warn("event ack failed", "stream", s.config.Name, "id", msg.ID, "error", err)
	}
}

// Len reports the stream length, trimmed entries excluded.
func (s *Stream) Len() (int64, error) {
	return s.adapter.XLen(s.config.Name)
}

// Stop cancels the consumer loop and waits for it to exit.
func (s *Stream) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}
