package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tsegai/nexbank/internal/models"
	"github.com/tsegai/nexbank/internal/notifications"
	"github.com/tsegai/nexbank/internal/otp"
	"github.com/tsegai/nexbank/internal/repository"
	"github.com/tsegai/nexbank/internal/session"
	"github.com/tsegai/nexbank/internal/statements"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

var accountNumberPattern = regexp.MustCompile(`^\d{10}$`)

type InitiateTransferRequest struct {
	SenderAccount   string
	ReceiverAccount string
	Amount          decimal.Decimal
	Description     string
}

type HistoryQuery struct {
	StartDate     *time.Time
	EndDate       *time.Time
	AccountNumber string
}

type StatementReceipt struct {
	StartDate string
	EndDate   string
	Email     string
}

// TransferService drives the three-step transfer protocol: a transfer is
// staged at initiation, unlocked by the security answer and the emailed
// one-time code, and committed atomically against the ledger.
type TransferService interface {
	InitiateTransfer(ctx context.Context, userID int64, req InitiateTransferRequest) error
	VerifySecurityQuestion(ctx context.Context, userID int64, answer string) error
	VerifyOTPAndCommit(ctx context.Context, userID int64, code string) (*models.TransferResult, error)
	ListTransactions(ctx context.Context, userID int64, query HistoryQuery) ([]models.Transaction, error)
	RequestStatement(ctx context.Context, userID int64, startDate, endDate, accountNumber string) (*StatementReceipt, error)
}

type transferService struct {
	userRepo        repository.UserRepository
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	sessions        session.Store
	codes           otp.Service
	notifier        notifications.Notifier
	exporter        statements.Exporter
}

func NewTransferService(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	sessions session.Store,
	codes otp.Service,
	notifier notifications.Notifier,
	exporter statements.Exporter,
) *transferService {
	return &transferService{
		userRepo:        userRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		sessions:        sessions,
		codes:           codes,
		notifier:        notifier,
		exporter:        exporter,
	}
}

func (s *transferService) InitiateTransfer(ctx context.Context, userID int64, req InitiateTransferRequest) error {
	tracer := otel.Tracer("transfer-service")
	ctx, span := tracer.Start(ctx, "InitiateTransfer")
	defer span.End()

	if !req.Amount.IsPositive() {
		span.SetStatus(codes.Error, "invalid amount")
		return fmt.Errorf("%w: amount must be positive", pkgerrors.ErrInvalidInput)
	}
	if !accountNumberPattern.MatchString(req.ReceiverAccount) {
		span.SetStatus(codes.Error, "malformed receiver account")
		return fmt.Errorf("%w: receiver account number must be 10 digits", pkgerrors.ErrInvalidInput)
	}
	if req.SenderAccount == req.ReceiverAccount {
		span.SetStatus(codes.Error, "same account")
		return pkgerrors.ErrSameAccount
	}

	sender, err := s.accountRepo.GetByNumberForUser(ctx, req.SenderAccount, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sender account lookup failed")
		slog.Warn("initiate: sender account lookup failed",
			"user_id", userID,
			"sender_account", req.SenderAccount,
			"error", err)
		return err
	}

	if !sender.CanTransact() {
		span.SetStatus(codes.Error, "account not activated")
		slog.Warn("initiate: account not activated",
			"user_id", userID,
			"sender_account", sender.AccountNumber,
			"fully_activated", sender.FullyActivated,
			"kyc_verified", sender.KYCVerified)
		return pkgerrors.ErrAccountNotActivated
	}

	pending := models.PendingTransfer{
		SenderAccount:   req.SenderAccount,
		ReceiverAccount: req.ReceiverAccount,
		Amount:          req.Amount,
		Description:     req.Description,
	}
	if err := s.sessions.Put(ctx, userID, pending); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stage transfer")
		return fmt.Errorf("%w: failed to stage transfer", pkgerrors.ErrInternal)
	}

	slog.Info("transfer initiated",
		"user_id", userID,
		"sender_account", req.SenderAccount,
		"receiver_account", req.ReceiverAccount,
		"amount", req.Amount)
	return nil
}

func (s *transferService) VerifySecurityQuestion(ctx context.Context, userID int64, answer string) error {
	tracer := otel.Tracer("transfer-service")
	ctx, span := tracer.Start(ctx, "VerifySecurityQuestion")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		return err
	}

	normalized := strings.ToLower(strings.TrimSpace(answer))
	if err := bcrypt.CompareHashAndPassword([]byte(user.SecurityAnswerHash), []byte(normalized)); err != nil {
		span.SetStatus(codes.Error, "security answer mismatch")
		slog.Warn("security answer mismatch", "user_id", userID)
		return pkgerrors.ErrSecurityAnswerInvalid
	}

	code, err := s.codes.Issue(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to issue code")
		return fmt.Errorf("%w: failed to issue one-time code", pkgerrors.ErrInternal)
	}

	go func() {
		retries := 3
		for i := 0; i < retries; i++ {
			if err := s.notifier.SendOTPEmail(context.Background(), user.Email, code); err == nil {
				return
			}
			time.Sleep(time.Second * time.Duration(i+1))
		}
		slog.Error("failed to dispatch OTP email after retries", "user_id", userID)
	}()

	slog.Info("security question verified, one-time code dispatched", "user_id", userID)
	return nil
}

func (s *transferService) VerifyOTPAndCommit(ctx context.Context, userID int64, code string) (*models.TransferResult, error) {
	tracer := otel.Tracer("transfer-service")
	ctx, span := tracer.Start(ctx, "VerifyOTPAndCommit")
	defer span.End()

	pending, err := s.sessions.Get(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no staged transfer")
		slog.Warn("commit: no staged transfer", "user_id", userID, "error", err)
		return nil, err
	}

	if err := s.codes.Check(ctx, userID, code); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "code check failed")
		slog.Warn("commit: code check failed", "user_id", userID, "error", err)
		return nil, err
	}

	// Both accounts could have vanished since initiation.
	if _, err := s.accountRepo.GetByNumber(ctx, pending.SenderAccount); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sender account missing")
		return nil, err
	}
	if _, err := s.accountRepo.GetByNumber(ctx, pending.ReceiverAccount); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "receiver account missing")
		return nil, err
	}

	// Single-use gate: only the caller that deletes the staged transfer may
	// mutate the ledger.
	consumed, err := s.sessions.Consume(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session consume failed")
		return nil, fmt.Errorf("%w: failed to consume staged transfer", pkgerrors.ErrInternal)
	}
	if !consumed {
		span.SetStatus(codes.Error, "transfer already committed")
		slog.Warn("commit: staged transfer already consumed", "user_id", userID)
		return nil, pkgerrors.ErrTransferSessionExpired
	}

	result, err := s.transactionRepo.CommitTransfer(ctx, repository.CommitTransferRequest{
		SenderAccount:   pending.SenderAccount,
		ReceiverAccount: pending.ReceiverAccount,
		Amount:          pending.Amount,
		Description:     pending.Description,
	})
	if err != nil {
		// The gate already fired, so put the staged transfer back with a
		// fresh window; the client may retry the commit step.
		if putErr := s.sessions.Put(ctx, userID, *pending); putErr != nil {
			slog.Error("failed to restore staged transfer after commit failure",
				"user_id", userID, "error", putErr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger commit failed")
		slog.Error("commit: ledger commit failed",
			"user_id", userID,
			"sender_account", pending.SenderAccount,
			"receiver_account", pending.ReceiverAccount,
			"amount", pending.Amount,
			"error", err)
		return nil, err
	}

	if err := s.codes.Consume(ctx, userID); err != nil {
		slog.Error("failed to consume one-time code after commit", "user_id", userID, "error", err)
	}

	s.dispatchConfirmation(result)

	slog.Info("transfer committed",
		"user_id", userID,
		"transaction_id", result.Transaction.ID,
		"sender_account", pending.SenderAccount,
		"receiver_account", pending.ReceiverAccount,
		"amount", pending.Amount)
	return result, nil
}

// dispatchConfirmation emails both parties. Best-effort: lookup or delivery
// failures never roll back the committed transfer.
func (s *transferService) dispatchConfirmation(result *models.TransferResult) {
	txn := result.Transaction
	go func() {
		ctx := context.Background()
		sender, err := s.userRepo.GetByID(ctx, txn.SenderID)
		if err != nil {
			slog.Error("confirmation: sender lookup failed", "user_id", txn.SenderID, "error", err)
			return
		}
		receiver, err := s.userRepo.GetByID(ctx, txn.ReceiverID)
		if err != nil {
			slog.Error("confirmation: receiver lookup failed", "user_id", txn.ReceiverID, "error", err)
			return
		}
		currency := "USD"
		if account, err := s.accountRepo.GetByNumber(ctx, txn.SenderAccountNumber); err == nil {
			currency = account.Currency
		}

		confirmation := notifications.TransferConfirmation{
			SenderName:            sender.FullName,
			SenderEmail:           sender.Email,
			ReceiverName:          receiver.FullName,
			ReceiverEmail:         receiver.Email,
			Amount:                txn.Amount,
			Currency:              currency,
			SenderNewBalance:      result.SenderNewBalance,
			ReceiverNewBalance:    result.ReceiverNewBalance,
			SenderAccountNumber:   txn.SenderAccountNumber,
			ReceiverAccountNumber: txn.ReceiverAccountNumber,
		}
		if err := s.notifier.SendTransferConfirmation(ctx, confirmation); err != nil {
			slog.Error("failed to dispatch transfer confirmation", "transaction_id", txn.ID, "error", err)
		}
	}()
}

func (s *transferService) ListTransactions(ctx context.Context, userID int64, query HistoryQuery) ([]models.Transaction, error) {
	tracer := otel.Tracer("transfer-service")
	ctx, span := tracer.Start(ctx, "ListTransactions")
	defer span.End()

	filter := repository.TransactionFilter{
		UserID:    userID,
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
	}

	if query.AccountNumber != "" {
		account, err := s.accountRepo.GetByNumberForUser(ctx, query.AccountNumber, userID)
		if stderrors.Is(err, pkgerrors.ErrAccountNotFound) {
			// Filtering by an account the user does not own yields an empty
			// list, not an error.
			slog.Info("history: account filter not owned by user",
				"user_id", userID, "account_number", query.AccountNumber)
			return []models.Transaction{}, nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "account filter lookup failed")
			return nil, err
		}
		filter.AccountID = &account.ID
	}

	transactions, err := s.transactionRepo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}

	slog.Info("transaction history retrieved", "user_id", userID, "count", len(transactions))
	return transactions, nil
}

func (s *transferService) RequestStatement(ctx context.Context, userID int64, startDate, endDate, accountNumber string) (*StatementReceipt, error) {
	tracer := otel.Tracer("transfer-service")
	ctx, span := tracer.Start(ctx, "RequestStatement")
	defer span.End()

	end := time.Now().UTC()
	if endDate != "" {
		parsed, err := parseDate(endDate)
		if err != nil {
			span.SetStatus(codes.Error, "invalid end date")
			return nil, fmt.Errorf("%w: invalid end_date: %v", pkgerrors.ErrInvalidInput, err)
		}
		end = parsed
	}

	start := end.AddDate(0, 0, -30)
	if startDate != "" {
		parsed, err := parseDate(startDate)
		if err != nil {
			span.SetStatus(codes.Error, "invalid start date")
			return nil, fmt.Errorf("%w: invalid start_date: %v", pkgerrors.ErrInvalidInput, err)
		}
		start = parsed
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, err
	}

	if err := s.exporter.Enqueue(ctx, userID, start, end, accountNumber); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enqueue statement job")
		return nil, fmt.Errorf("%w: failed to enqueue statement job", pkgerrors.ErrInternal)
	}

	slog.Info("statement export requested",
		"user_id", userID,
		"start_date", start.Format(time.DateOnly),
		"end_date", end.Format(time.DateOnly),
		"account_number", accountNumber)
	return &StatementReceipt{
		StartDate: start.Format(time.DateOnly),
		EndDate:   end.Format(time.DateOnly),
		Email:     user.Email,
	}, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
