package statements

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/tsegai/nexbank/internal/models"
	"github.com/tsegai/nexbank/internal/notifications"
	"github.com/tsegai/nexbank/internal/repository"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
)

// JobHandler consumes statement jobs, renders the PDF and emails it to the
// account holder.
type JobHandler struct {
	userRepo        repository.UserRepository
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	mailer          *notifications.Mailer
}

func NewJobHandler(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	transactionRepo repository.TransactionRepository,
	mailer *notifications.Mailer,
) *JobHandler {
	return &JobHandler{
		userRepo:        userRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		mailer:          mailer,
	}
}

func (h *JobHandler) Handle(ctx context.Context, msg kafkago.Message) error {
	var j job
	if err := json.Unmarshal(msg.Value, &j); err != nil {
		return fmt.Errorf("failed to unmarshal statement job: %w", err)
	}

	start, err := time.Parse(time.DateOnly, j.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date %q: %w", j.StartDate, err)
	}
	end, err := time.Parse(time.DateOnly, j.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end_date %q: %w", j.EndDate, err)
	}
	// End date is inclusive.
	endOfDay := end.Add(24*time.Hour - time.Nanosecond)

	user, err := h.userRepo.GetByID(ctx, j.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", j.UserID, err)
	}

	filter := repository.TransactionFilter{
		UserID:    j.UserID,
		StartDate: &start,
		EndDate:   &endOfDay,
	}

	transactions := []models.Transaction{}
	ownershipOK := true
	if j.AccountNumber != "" {
		account, err := h.accountRepo.GetByNumberForUser(ctx, j.AccountNumber, j.UserID)
		if stderrors.Is(err, pkgerrors.ErrAccountNotFound) {
			// An unowned account yields an empty statement, same as listing.
			ownershipOK = false
		} else if err != nil {
			return fmt.Errorf("failed to resolve account filter: %w", err)
		} else {
			filter.AccountID = &account.ID
		}
	}

	if ownershipOK {
		transactions, err = h.transactionRepo.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to load transactions for statement: %w", err)
		}
	}

	period := fmt.Sprintf("Period: %s to %s", j.StartDate, j.EndDate)
	pdf, err := RenderPDF(user.FullName, period, transactions)
	if err != nil {
		return err
	}

	if err := h.mailer.SendStatement(user.Email, user.FullName, pdf, j.StartDate, j.EndDate); err != nil {
		return fmt.Errorf("failed to email statement: %w", err)
	}

	slog.Info("statement generated and emailed",
		"user_id", j.UserID,
		"start_date", j.StartDate,
		"end_date", j.EndDate,
		"transactions", len(transactions))
	return nil
}
