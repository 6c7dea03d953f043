package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tsegai/nexbank/internal/infrastructure/kafka"
)

const Topic = "notifications"

const (
	eventOTPEmail             = "otp_email"
	eventTransferConfirmation = "transfer_confirmation"
)

type TransferConfirmation struct {
	SenderName            string          `json:"sender_name"`
	SenderEmail           string          `json:"sender_email"`
	ReceiverName          string          `json:"receiver_name"`
	ReceiverEmail         string          `json:"receiver_email"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	SenderNewBalance      decimal.Decimal `json:"sender_new_balance"`
	ReceiverNewBalance    decimal.Decimal `json:"receiver_new_balance"`
	SenderAccountNumber   string          `json:"sender_account_number"`
	ReceiverAccountNumber string          `json:"receiver_account_number"`
}

// Notifier dispatches emails off the critical path. Delivery failures are
// logged, never surfaced to the caller.
type Notifier interface {
	SendOTPEmail(ctx context.Context, email, code string) error
	SendTransferConfirmation(ctx context.Context, confirmation TransferConfirmation) error
}

type event struct {
	EventType    string                `json:"event_type"`
	Email        string                `json:"email,omitempty"`
	Code         string                `json:"code,omitempty"`
	Confirmation *TransferConfirmation `json:"confirmation,omitempty"`
	CreatedAt    string                `json:"created_at"`
}

// KafkaNotifier publishes notification events for the email worker.
type KafkaNotifier struct {
	producer kafka.KafkaProducer
}

func NewKafkaNotifier(producer kafka.KafkaProducer) *KafkaNotifier {
	return &KafkaNotifier{producer: producer}
}

func (n *KafkaNotifier) SendOTPEmail(ctx context.Context, email, code string) error {
	return n.publish(ctx, event{
		EventType: eventOTPEmail,
		Email:     email,
		Code:      code,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (n *KafkaNotifier) SendTransferConfirmation(ctx context.Context, confirmation TransferConfirmation) error {
	return n.publish(ctx, event{
		EventType:    eventTransferConfirmation,
		Confirmation: &confirmation,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (n *KafkaNotifier) publish(ctx context.Context, ev event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}
	eventID := time.Now().UnixNano()
	if err := n.producer.Send(ctx, Topic, eventID, payload); err != nil {
		slog.Error("failed to publish notification event", "event_type", ev.EventType, "error", err)
		return err
	}
	slog.Info("notification event published", "event_type", ev.EventType, "event_id", eventID)
	return nil
}
