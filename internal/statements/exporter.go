package statements

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tsegai/nexbank/internal/infrastructure/kafka"
)

const Topic = "statements"

// Exporter enqueues statement-generation jobs. The PDF is produced and
// emailed out-of-band; failures are logged, not returned to the requester.
type Exporter interface {
	Enqueue(ctx context.Context, userID int64, startDate, endDate time.Time, accountNumber string) error
}

type job struct {
	UserID        int64  `json:"user_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	AccountNumber string `json:"account_number,omitempty"`
}

type KafkaExporter struct {
	producer kafka.KafkaProducer
}

func NewKafkaExporter(producer kafka.KafkaProducer) *KafkaExporter {
	return &KafkaExporter{producer: producer}
}

func (e *KafkaExporter) Enqueue(ctx context.Context, userID int64, startDate, endDate time.Time, accountNumber string) error {
	payload, err := json.Marshal(job{
		UserID:        userID,
		StartDate:     startDate.Format(time.DateOnly),
		EndDate:       endDate.Format(time.DateOnly),
		AccountNumber: accountNumber,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal statement job: %w", err)
	}

	if err := e.producer.Send(ctx, Topic, userID, payload); err != nil {
		slog.Error("failed to enqueue statement job", "user_id", userID, "error", err)
		return err
	}
	slog.Info("statement job enqueued", "user_id", userID, "start_date", startDate, "end_date", endDate)
	return nil
}
