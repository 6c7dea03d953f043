package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tsegai/nexbank/internal/models"
	notificationmocks "github.com/tsegai/nexbank/internal/notifications/mocks"
	otpmocks "github.com/tsegai/nexbank/internal/otp/mocks"
	"github.com/tsegai/nexbank/internal/repository"
	repositorymocks "github.com/tsegai/nexbank/internal/repository/mocks"
	sessionmocks "github.com/tsegai/nexbank/internal/session/mocks"
	statementmocks "github.com/tsegai/nexbank/internal/statements/mocks"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	senderNumber   = "1111111111"
	receiverNumber = "2222222222"
)

type testMocks struct {
	userRepo        *repositorymocks.MockUserRepository
	accountRepo     *repositorymocks.MockAccountRepository
	transactionRepo *repositorymocks.MockTransactionRepository
	sessions        *sessionmocks.MockStore
	codes           *otpmocks.MockService
	notifier        *notificationmocks.MockNotifier
	exporter        *statementmocks.MockExporter
}

func newService(ctrl *gomock.Controller) (*transferService, *testMocks) {
	m := &testMocks{
		userRepo:        repositorymocks.NewMockUserRepository(ctrl),
		accountRepo:     repositorymocks.NewMockAccountRepository(ctrl),
		transactionRepo: repositorymocks.NewMockTransactionRepository(ctrl),
		sessions:        sessionmocks.NewMockStore(ctrl),
		codes:           otpmocks.NewMockService(ctrl),
		notifier:        notificationmocks.NewMockNotifier(ctrl),
		exporter:        statementmocks.NewMockExporter(ctrl),
	}
	svc := NewTransferService(m.userRepo, m.accountRepo, m.transactionRepo, m.sessions, m.codes, m.notifier, m.exporter)
	return svc, m
}

func activatedAccount(id, userID int64, number string, balance string) *models.Account {
	return &models.Account{
		ID:             id,
		UserID:         userID,
		AccountNumber:  number,
		Balance:        decimal.RequireFromString(balance),
		Currency:       "USD",
		FullyActivated: true,
		KYCVerified:    true,
	}
}

func TestTransferService_InitiateTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newService(ctrl)
	ctx := context.Background()
	userID := int64(10)

	req := InitiateTransferRequest{
		SenderAccount:   senderNumber,
		ReceiverAccount: receiverNumber,
		Amount:          decimal.RequireFromString("200.00"),
		Description:     "rent",
	}

	t.Run("successful initiation stages the transfer", func(t *testing.T) {
		m.accountRepo.EXPECT().GetByNumberForUser(gomock.Any(), senderNumber, userID).
			Return(activatedAccount(1, userID, senderNumber, "1000.00"), nil)
		m.sessions.EXPECT().Put(gomock.Any(), userID, models.PendingTransfer{
			SenderAccount:   senderNumber,
			ReceiverAccount: receiverNumber,
			Amount:          req.Amount,
			Description:     "rent",
		}).Return(nil)

		err := svc.InitiateTransfer(ctx, userID, req)
		assert.NoError(t, err)
	})

	t.Run("account not found or not owned", func(t *testing.T) {
		m.accountRepo.EXPECT().GetByNumberForUser(gomock.Any(), senderNumber, userID).
			Return(nil, pkgerrors.ErrAccountNotFound)

		err := svc.InitiateTransfer(ctx, userID, req)
		assert.ErrorIs(t, err, pkgerrors.ErrAccountNotFound)
	})

	t.Run("not activated account fails regardless of funds", func(t *testing.T) {
		account := activatedAccount(1, userID, senderNumber, "1000000.00")
		account.FullyActivated = false

		m.accountRepo.EXPECT().GetByNumberForUser(gomock.Any(), senderNumber, userID).
			Return(account, nil)

		err := svc.InitiateTransfer(ctx, userID, req)
		assert.ErrorIs(t, err, pkgerrors.ErrAccountNotActivated)
	})

	t.Run("kyc not verified fails the same way", func(t *testing.T) {
		account := activatedAccount(1, userID, senderNumber, "1000.00")
		account.KYCVerified = false

		m.accountRepo.EXPECT().GetByNumberForUser(gomock.Any(), senderNumber, userID).
			Return(account, nil)

		err := svc.InitiateTransfer(ctx, userID, req)
		assert.ErrorIs(t, err, pkgerrors.ErrAccountNotActivated)
	})

	t.Run("non-positive amount is rejected before any lookup", func(t *testing.T) {
		bad := req
		bad.Amount = decimal.Zero

		err := svc.InitiateTransfer(ctx, userID, bad)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("malformed receiver account number is rejected", func(t *testing.T) {
		bad := req
		bad.ReceiverAccount = "12ab"

		err := svc.InitiateTransfer(ctx, userID, bad)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("transfer to the same account is rejected", func(t *testing.T) {
		bad := req
		bad.ReceiverAccount = senderNumber

		err := svc.InitiateTransfer(ctx, userID, bad)
		assert.ErrorIs(t, err, pkgerrors.ErrSameAccount)
	})
}

func TestTransferService_VerifySecurityQuestion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newService(ctrl)
	ctx := context.Background()
	userID := int64(10)

	answerHash, _ := bcrypt.GenerateFromPassword([]byte("blue"), bcrypt.DefaultCost)
	user := &models.User{
		ID:                 userID,
		Email:              "sender@example.com",
		FullName:           "Sender One",
		SecurityAnswerHash: string(answerHash),
	}

	t.Run("correct answer issues and dispatches a code", func(t *testing.T) {
		m.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(user, nil)
		m.codes.EXPECT().Issue(gomock.Any(), userID).Return("123456", nil)
		m.notifier.EXPECT().SendOTPEmail(gomock.Any(), user.Email, "123456").Return(nil).AnyTimes()

		err := svc.VerifySecurityQuestion(ctx, userID, "  Blue ")
		assert.NoError(t, err)
		time.Sleep(50 * time.Millisecond)
	})

	t.Run("wrong answer", func(t *testing.T) {
		m.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(user, nil)

		err := svc.VerifySecurityQuestion(ctx, userID, "green")
		assert.ErrorIs(t, err, pkgerrors.ErrSecurityAnswerInvalid)
	})

	t.Run("unknown user", func(t *testing.T) {
		m.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(nil, pkgerrors.ErrUserNotFound)

		err := svc.VerifySecurityQuestion(ctx, userID, "blue")
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
	})
}

func TestTransferService_VerifyOTPAndCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newService(ctrl)
	ctx := context.Background()
	userID := int64(10)
	receiverUserID := int64(20)
	code := "123456"

	pending := &models.PendingTransfer{
		SenderAccount:   senderNumber,
		ReceiverAccount: receiverNumber,
		Amount:          decimal.RequireFromString("200.00"),
		Description:     "rent",
	}

	t.Run("successful commit conserves total funds", func(t *testing.T) {
		senderBefore := decimal.RequireFromString("1000.00")
		receiverBefore := decimal.RequireFromString("50.00")

		m.sessions.EXPECT().Get(gomock.Any(), userID).Return(pending, nil)
		m.codes.EXPECT().Check(gomock.Any(), userID, code).Return(nil)
		m.accountRepo.EXPECT().GetByNumber(gomock.Any(), senderNumber).
			Return(activatedAccount(1, userID, senderNumber, "1000.00"), nil).AnyTimes()
		m.accountRepo.EXPECT().GetByNumber(gomock.Any(), receiverNumber).
			Return(activatedAccount(2, receiverUserID, receiverNumber, "50.00"), nil)
		m.sessions.EXPECT().Consume(gomock.Any(), userID).Return(true, nil)
		m.transactionRepo.EXPECT().CommitTransfer(gomock.Any(), repository.CommitTransferRequest{
			SenderAccount:   senderNumber,
			ReceiverAccount: receiverNumber,
			Amount:          pending.Amount,
			Description:     "rent",
		}).Return(&models.TransferResult{
			Transaction: &models.Transaction{
				ID:                    uuid.New(),
				Type:                  models.TypeTransfer,
				Status:                models.StatusCompleted,
				Amount:                pending.Amount,
				SenderID:              userID,
				ReceiverID:            receiverUserID,
				SenderAccountNumber:   senderNumber,
				ReceiverAccountNumber: receiverNumber,
			},
			SenderNewBalance:   decimal.RequireFromString("800.00"),
			ReceiverNewBalance: decimal.RequireFromString("250.00"),
		}, nil)
		m.codes.EXPECT().Consume(gomock.Any(), userID).Return(nil)

		// Confirmation dispatch is best-effort and asynchronous.
		m.userRepo.EXPECT().GetByID(gomock.Any(), userID).
			Return(&models.User{ID: userID, Email: "sender@example.com", FullName: "Sender One"}, nil).AnyTimes()
		m.userRepo.EXPECT().GetByID(gomock.Any(), receiverUserID).
			Return(&models.User{ID: receiverUserID, Email: "receiver@example.com", FullName: "Receiver Two"}, nil).AnyTimes()
		m.notifier.EXPECT().SendTransferConfirmation(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		result, err := svc.VerifyOTPAndCommit(ctx, userID, code)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, result.Transaction.Status)
		assert.True(t, result.Transaction.Amount.Equal(decimal.RequireFromString("200.00")))
		assert.True(t, result.SenderNewBalance.Equal(decimal.RequireFromString("800.00")))
		assert.True(t, result.ReceiverNewBalance.Equal(decimal.RequireFromString("250.00")))

		totalBefore := senderBefore.Add(receiverBefore)
		totalAfter := result.SenderNewBalance.Add(result.ReceiverNewBalance)
		assert.True(t, totalBefore.Equal(totalAfter), "transfer must conserve total funds")

		time.Sleep(50 * time.Millisecond)
	})

	t.Run("no staged transfer", func(t *testing.T) {
		m.sessions.EXPECT().Get(gomock.Any(), userID).Return(nil, pkgerrors.ErrTransferSessionExpired)

		result, err := svc.VerifyOTPAndCommit(ctx, userID, code)
		assert.ErrorIs(t, err, pkgerrors.ErrTransferSessionExpired)
		assert.Nil(t, result)
	})

	t.Run("invalid code leaves the staged transfer alone", func(t *testing.T) {
		m.sessions.EXPECT().Get(gomock.Any(), userID).Return(pending, nil)
		m.codes.EXPECT().Check(gomock.Any(), userID, "000000").Return(pkgerrors.ErrOTPInvalid)

		result, err := svc.VerifyOTPAndCommit(ctx, userID, "000000")
		assert.ErrorIs(t, err, pkgerrors.ErrOTPInvalid)
		assert.Nil(t, result)
	})

	t.Run("expired code", func(t *testing.T) {
		m.sessions.EXPECT().Get(gomock.Any(), userID).Return(pending, nil)
		m.codes.EXPECT().Check(gomock.Any(), userID, code).Return(pkgerrors.ErrOTPExpired)

		result, err := svc.VerifyOTPAndCommit(ctx, userID, code)
		assert.ErrorIs(t, err, pkgerrors.ErrOTPExpired)
		assert.Nil(t, result)
	})

	t.Run("receiver account vanished since initiation", func(t *testing.T) {
		m.sessions.EXPECT().Get(gomock.Any(), userID).Return(pending, nil)
		m.codes.EXPECT().Check(gomock.Any(), userID, code).Return(nil)
		m.accountRepo.EXPECT().GetByNumber(gomock.Any(), senderNumber).
			Return(activatedAccount(1, userID, senderNumber, "1000.00"), nil)
		m.accountRepo.EXPECT().GetByNumber(gomock.Any(), receiverNumber).
			Return(nil, pkgerrors.ErrAccountNotFound)

		result, err := svc.VerifyOTPAndCommit(ctx, userID, code)
		assert.ErrorIs(t, err, pkgerrors.ErrAccountNotFound)
		assert.Nil(t, result)
	})

	t.Run("second commit for the same staged transfer fails", func(t *testing.T) {
		m.sessions.EXPECT().Get(gomock.Any(), userID).Return(pending, nil)
		m.codes.EXPECT().Check(gomock.Any(), userID, code).Return(nil)
		m.accountRepo.EXPECT().GetByNumber(gomock.Any(), senderNumber).
			Return(activatedAccount(1, userID, senderNumber, "800.00"), nil)
		m.accountRepo.EXPECT().GetByNumber(gomock.Any(), receiverNumber).
			Return(activatedAccount(2, receiverUserID, receiverNumber, "250.00"), nil)
		m.sessions.EXPECT().Consume(gomock.Any(), userID).Return(false, nil)

		result, err := svc.VerifyOTPAndCommit(ctx, userID, code)
		assert.ErrorIs(t, err, pkgerrors.ErrTransferSessionExpired)
		assert.Nil(t, result)
	})

	t.Run("insufficient funds at commit restores the staged transfer and keeps the code", func(t *testing.T) {
		m.sessions.EXPECT().Get(gomock.Any(), userID).Return(pending, nil)
		m.codes.EXPECT().Check(gomock.Any(), userID, code).Return(nil)
		m.accountRepo.EXPECT().GetByNumber(gomock.Any(), senderNumber).
			Return(activatedAccount(1, userID, senderNumber, "100.00"), nil)
		m.accountRepo.EXPECT().GetByNumber(gomock.Any(), receiverNumber).
			Return(activatedAccount(2, receiverUserID, receiverNumber, "50.00"), nil)
		m.sessions.EXPECT().Consume(gomock.Any(), userID).Return(true, nil)
		m.transactionRepo.EXPECT().CommitTransfer(gomock.Any(), gomock.Any()).
			Return(nil, pkgerrors.ErrInsufficientFunds)
		m.sessions.EXPECT().Put(gomock.Any(), userID, *pending).Return(nil)

		result, err := svc.VerifyOTPAndCommit(ctx, userID, code)
		assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)
		assert.Nil(t, result)
	})
}

func TestTransferService_ListTransactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newService(ctrl)
	ctx := context.Background()
	userID := int64(10)

	t.Run("participant history", func(t *testing.T) {
		transactions := []models.Transaction{
			{ID: uuid.New(), Type: models.TypeTransfer, Status: models.StatusCompleted, SenderID: userID},
		}
		m.transactionRepo.EXPECT().List(gomock.Any(), repository.TransactionFilter{UserID: userID}).
			Return(transactions, nil)

		result, err := svc.ListTransactions(ctx, userID, HistoryQuery{})
		assert.NoError(t, err)
		assert.Equal(t, transactions, result)
	})

	t.Run("account filter scoped to owner", func(t *testing.T) {
		account := activatedAccount(1, userID, senderNumber, "1000.00")
		m.accountRepo.EXPECT().GetByNumberForUser(gomock.Any(), senderNumber, userID).
			Return(account, nil)
		m.transactionRepo.EXPECT().List(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter repository.TransactionFilter) ([]models.Transaction, error) {
				assert.NotNil(t, filter.AccountID)
				assert.Equal(t, account.ID, *filter.AccountID)
				return []models.Transaction{}, nil
			})

		result, err := svc.ListTransactions(ctx, userID, HistoryQuery{AccountNumber: senderNumber})
		assert.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("filter by unowned account returns empty list, not an error", func(t *testing.T) {
		m.accountRepo.EXPECT().GetByNumberForUser(gomock.Any(), receiverNumber, userID).
			Return(nil, pkgerrors.ErrAccountNotFound)

		result, err := svc.ListTransactions(ctx, userID, HistoryQuery{AccountNumber: receiverNumber})
		assert.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestTransferService_RequestStatement(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, m := newService(ctrl)
	ctx := context.Background()
	userID := int64(10)
	user := &models.User{ID: userID, Email: "sender@example.com", FullName: "Sender One"}

	t.Run("explicit range", func(t *testing.T) {
		m.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(user, nil)
		m.exporter.EXPECT().Enqueue(gomock.Any(), userID, gomock.Any(), gomock.Any(), senderNumber).Return(nil)

		receipt, err := svc.RequestStatement(ctx, userID, "2026-07-01", "2026-07-31", senderNumber)
		assert.NoError(t, err)
		assert.Equal(t, "2026-07-01", receipt.StartDate)
		assert.Equal(t, "2026-07-31", receipt.EndDate)
		assert.Equal(t, user.Email, receipt.Email)
	})

	t.Run("dates default to the last 30 days", func(t *testing.T) {
		m.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(user, nil)
		m.exporter.EXPECT().Enqueue(gomock.Any(), userID, gomock.Any(), gomock.Any(), "").
			DoAndReturn(func(_ context.Context, _ int64, start, end time.Time, _ string) error {
				assert.Equal(t, 30, int(end.Sub(start).Hours()/24))
				return nil
			})

		receipt, err := svc.RequestStatement(ctx, userID, "", "", "")
		assert.NoError(t, err)
		assert.NotEmpty(t, receipt.StartDate)
		assert.NotEmpty(t, receipt.EndDate)
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := svc.RequestStatement(ctx, userID, "not-a-date", "", "")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}
