package otp

import (
	"context"
	"crypto/rand"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/tsegai/nexbank/internal/infrastructure/redis"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const codeLength = 6

var codeSpace = big.NewInt(1_000_000)

// Service issues and validates one-time codes. A user has at most one active
// code; issuing a new one overwrites the old. Codes are stored bcrypt-hashed
// so the clear value never touches Redis, and the compare is constant-time.
type Service interface {
	Issue(ctx context.Context, userID int64) (string, error)
	// Check verifies the code without consuming it.
	Check(ctx context.Context, userID int64, code string) error
	// Consume removes the code; exactly one concurrent caller succeeds.
	Consume(ctx context.Context, userID int64) error
}

type record struct {
	CodeHash  string `json:"code_hash"`
	ExpiresAt int64  `json:"expires_at"`
}

type redisService struct {
	client redis.RedisClient
	ttl    time.Duration
}

func NewService(client redis.RedisClient, ttl time.Duration) Service {
	return &redisService{client: client, ttl: ttl}
}

func key(userID int64) string {
	return fmt.Sprintf("user:%d:otp", userID)
}

func (s *redisService) Issue(ctx context.Context, userID int64) (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		slog.Error("failed to generate one-time code", "user_id", userID, "error", err)
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	code := fmt.Sprintf("%0*d", codeLength, n)

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash one-time code", "user_id", userID, "error", err)
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	rec := record{
		CodeHash:  string(hash),
		ExpiresAt: time.Now().Add(s.ttl).Unix(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal code record: %w", err)
	}

	// The key outlives the code slightly so an expired submission can be
	// reported as expired rather than invalid.
	if err := s.client.Set(ctx, key(userID), string(payload), s.ttl+time.Minute); err != nil {
		slog.Error("failed to store one-time code", "user_id", userID, "error", err)
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	slog.Info("one-time code issued", "user_id", userID, "ttl", s.ttl)
	return code, nil
}

func (s *redisService) Check(ctx context.Context, userID int64, code string) error {
	payload, err := s.client.Get(ctx, key(userID))
	if stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Warn("one-time code missing", "user_id", userID)
		return pkgerrors.ErrOTPInvalid
	}
	if err != nil {
		return fmt.Errorf("failed to load code: %w", err)
	}

	var rec record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return fmt.Errorf("failed to unmarshal code record: %w", err)
	}

	if time.Now().Unix() > rec.ExpiresAt {
		slog.Warn("one-time code expired", "user_id", userID)
		return pkgerrors.ErrOTPExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)); err != nil {
		slog.Warn("one-time code mismatch", "user_id", userID)
		return pkgerrors.ErrOTPInvalid
	}
	return nil
}

func (s *redisService) Consume(ctx context.Context, userID int64) error {
	deleted, err := s.client.Del(ctx, key(userID))
	if err != nil {
		return fmt.Errorf("failed to consume code: %w", err)
	}
	if deleted == 0 {
		slog.Warn("one-time code already consumed", "user_id", userID)
		return pkgerrors.ErrOTPAlreadyUsed
	}
	return nil
}
