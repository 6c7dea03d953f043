package otp

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/tsegai/nexbank/internal/infrastructure/redis"
	redismocks "github.com/tsegai/nexbank/internal/infrastructure/redis/mocks"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func storedRecord(t *testing.T, code string, expiresAt time.Time) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	assert.NoError(t, err)
	payload, err := json.Marshal(record{CodeHash: string(hash), ExpiresAt: expiresAt.Unix()})
	assert.NoError(t, err)
	return string(payload)
}

func TestService_Issue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := redismocks.NewMockRedisClient(ctrl)
	svc := NewService(client, 10*time.Minute)
	ctx := context.Background()
	userID := int64(10)

	var stored string
	client.EXPECT().Set(gomock.Any(), "user:10:otp", gomock.Any(), 11*time.Minute).
		DoAndReturn(func(_ context.Context, _ string, value interface{}, _ time.Duration) error {
			stored = value.(string)
			return nil
		})

	code, err := svc.Issue(ctx, userID)
	assert.NoError(t, err)
	assert.Regexp(t, sixDigits, code)

	// The clear code must never reach the store; only its hash does.
	var rec record
	assert.NoError(t, json.Unmarshal([]byte(stored), &rec))
	assert.NotContains(t, stored, code)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)))
	assert.Greater(t, rec.ExpiresAt, time.Now().Unix())
}

func TestService_Check(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := redismocks.NewMockRedisClient(ctrl)
	svc := NewService(client, 10*time.Minute)
	ctx := context.Background()
	userID := int64(10)

	t.Run("valid code", func(t *testing.T) {
		client.EXPECT().Get(gomock.Any(), "user:10:otp").
			Return(storedRecord(t, "123456", time.Now().Add(5*time.Minute)), nil)

		assert.NoError(t, svc.Check(ctx, userID, "123456"))
	})

	t.Run("checking twice does not consume", func(t *testing.T) {
		payload := storedRecord(t, "123456", time.Now().Add(5*time.Minute))
		client.EXPECT().Get(gomock.Any(), "user:10:otp").Return(payload, nil).Times(2)

		assert.NoError(t, svc.Check(ctx, userID, "123456"))
		assert.NoError(t, svc.Check(ctx, userID, "123456"))
	})

	t.Run("wrong code", func(t *testing.T) {
		client.EXPECT().Get(gomock.Any(), "user:10:otp").
			Return(storedRecord(t, "123456", time.Now().Add(5*time.Minute)), nil)

		assert.ErrorIs(t, svc.Check(ctx, userID, "654321"), pkgerrors.ErrOTPInvalid)
	})

	t.Run("no code issued", func(t *testing.T) {
		client.EXPECT().Get(gomock.Any(), "user:10:otp").Return("", redis.ErrKeyNotFound)

		assert.ErrorIs(t, svc.Check(ctx, userID, "123456"), pkgerrors.ErrOTPInvalid)
	})

	t.Run("expired code is reported as expired, not invalid", func(t *testing.T) {
		client.EXPECT().Get(gomock.Any(), "user:10:otp").
			Return(storedRecord(t, "123456", time.Now().Add(-time.Minute)), nil)

		assert.ErrorIs(t, svc.Check(ctx, userID, "123456"), pkgerrors.ErrOTPExpired)
	})
}

func TestService_Consume(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := redismocks.NewMockRedisClient(ctrl)
	svc := NewService(client, 10*time.Minute)
	ctx := context.Background()
	userID := int64(10)

	t.Run("first consume wins", func(t *testing.T) {
		client.EXPECT().Del(gomock.Any(), "user:10:otp").Return(int64(1), nil)

		assert.NoError(t, svc.Consume(ctx, userID))
	})

	t.Run("second consume loses", func(t *testing.T) {
		client.EXPECT().Del(gomock.Any(), "user:10:otp").Return(int64(0), nil)

		assert.ErrorIs(t, svc.Consume(ctx, userID), pkgerrors.ErrOTPAlreadyUsed)
	})
}
