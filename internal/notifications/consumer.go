package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// EmailHandler turns notification events into outbound emails. It satisfies
// the consumer's Handler interface.
type EmailHandler struct {
	mailer *Mailer
}

func NewEmailHandler(mailer *Mailer) *EmailHandler {
	return &EmailHandler{mailer: mailer}
}

func (h *EmailHandler) Handle(ctx context.Context, msg kafkago.Message) error {
	var ev event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("failed to unmarshal notification event: %w", err)
	}

	switch ev.EventType {
	case eventOTPEmail:
		return h.mailer.SendOTP(ev.Email, ev.Code)
	case eventTransferConfirmation:
		if ev.Confirmation == nil {
			return fmt.Errorf("transfer confirmation event without payload")
		}
		return h.mailer.SendTransferConfirmation(*ev.Confirmation)
	default:
		slog.Error("unknown notification event type", "event_type", ev.EventType)
		return nil
	}
}
