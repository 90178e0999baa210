// Package events consumes profile lifecycle events published on Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	"github.com/kailas-cloud/talentdex/internal/metrics"
)

// DefaultChannel carries profile status transitions.
const DefaultChannel = "profile.status_changed"

const defaultHandleTimeout = 10 * time.Second

// StatusHandler applies a status transition to the index.
type StatusHandler interface {
	HandleStatusChange(ctx context.Context, candidateID string, status candidate.Status) error
}

// StatusChanged is the payload of a status event.
type StatusChanged struct {
	CandidateID    string    `json:"candidate_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at,omitempty"`
}

// Subscriber listens on a pub/sub channel and forwards status events.
type Subscriber struct {
	rdb     redis.UniversalClient
	channel string
	handler StatusHandler
	logger  *zap.Logger
	timeout time.Duration
}

// NewSubscriber creates a subscriber. An empty channel uses DefaultChannel.
func NewSubscriber(rdb redis.UniversalClient, channel string, h StatusHandler, logger *zap.Logger) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		rdb:     rdb,
		channel: channel,
		handler: h,
		logger:  logger,
		timeout: defaultHandleTimeout,
	}
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Run subscribes and blocks until ctx is done. go-redis reconnects the
// subscription on connection loss; messages published meanwhile are lost and
// picked up by the next reconcile.
func (s *Subscriber) Run(ctx context.Context) error {
	ps := s.rdb.Subscribe(ctx, s.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.logger.Info("subscribed to status events", zap.String("channel", s.channel))
	s.consume(ctx, ps.Channel())
	return nil
}

func (s *Subscriber) consume(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.dispatch(ctx, msg.Payload)
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, payload string) {
	ev, status, err := decode(payload)
	if err != nil {
		metrics.StatusEventsTotal.WithLabelValues("invalid").Inc()
		s.logger.Warn("invalid status event", zap.String("payload", truncate(payload, 256)), zap.Error(err))
		return
	}

	hctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.handler.HandleStatusChange(hctx, ev.CandidateID, status); err != nil {
		metrics.StatusEventsTotal.WithLabelValues("error").Inc()
		s.logger.Error("status event failed",
			zap.String("candidate_id", ev.CandidateID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	metrics.StatusEventsTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("status event applied",
		zap.String("candidate_id", ev.CandidateID),
		zap.String("status", string(status)),
	)
}

func decode(payload string) (StatusChanged, candidate.Status, error) {
	var ev StatusChanged
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return StatusChanged{}, "", fmt.Errorf("decode event: %w", err)
	}
	ev.CandidateID = strings.TrimSpace(ev.CandidateID)
	if ev.CandidateID == "" {
		return StatusChanged{}, "", errors.New("candidate_id is required")
	}
	status, err := candidate.ParseStatus(ev.Status)
	if err != nil {
		return StatusChanged{}, "", err
	}
	return ev, status, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
