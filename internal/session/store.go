package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tsegai/nexbank/internal/infrastructure/redis"
	"github.com/tsegai/nexbank/internal/models"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
)

// Store holds the staged transfer for the authorization window. The TTL acts
// as the implicit abort for abandoned transfers.
type Store interface {
	Put(ctx context.Context, userID int64, transfer models.PendingTransfer) error
	Get(ctx context.Context, userID int64) (*models.PendingTransfer, error)
	// Consume deletes the staged transfer; exactly one concurrent caller
	// gets true. This is the gate that makes double-commit impossible.
	Consume(ctx context.Context, userID int64) (bool, error)
}

type redisStore struct {
	client redis.RedisClient
	ttl    time.Duration
}

func NewStore(client redis.RedisClient, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func key(userID int64) string {
	return fmt.Sprintf("user:%d:pending_transfer", userID)
}

func (s *redisStore) Put(ctx context.Context, userID int64, transfer models.PendingTransfer) error {
	payload, err := json.Marshal(transfer)
	if err != nil {
		return fmt.Errorf("failed to marshal pending transfer: %w", err)
	}
	if err := s.client.Set(ctx, key(userID), string(payload), s.ttl); err != nil {
		slog.Error("failed to stage transfer", "user_id", userID, "error", err)
		return fmt.Errorf("failed to stage transfer: %w", err)
	}
	slog.Info("transfer staged", "user_id", userID, "ttl", s.ttl)
	return nil
}

func (s *redisStore) Get(ctx context.Context, userID int64) (*models.PendingTransfer, error) {
	payload, err := s.client.Get(ctx, key(userID))
	if stderrors.Is(err, redis.ErrKeyNotFound) {
		return nil, pkgerrors.ErrTransferSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending transfer: %w", err)
	}

	var transfer models.PendingTransfer
	if err := json.Unmarshal([]byte(payload), &transfer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending transfer: %w", err)
	}
	return &transfer, nil
}

func (s *redisStore) Consume(ctx context.Context, userID int64) (bool, error) {
	deleted, err := s.client.Del(ctx, key(userID))
	if err != nil {
		return false, fmt.Errorf("failed to consume pending transfer: %w", err)
	}
	return deleted > 0, nil
}
