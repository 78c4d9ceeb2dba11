package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"juristBack/internal/models"
	"juristBack/internal/payments/fsm"
)

// Event types.
const (
	TypeInitiated  = "payment.initiated"
	TypeProcessing = "payment.processing"
	TypeSucceeded  = "payment.succeeded"
	TypeFailed     = "payment.failed"
	TypeCancelled  = "payment.cancelled"
	TypeExpired    = "payment.expired"
	TypeHookFailed = "payment.hook_failed"
)

// Event describes one payment status change.
type Event struct {
	Type        string     `json:"type"`
	PaymentID   string     `json:"payment_id"`
	Reference   string     `json:"reference"`
	PayableType string     `json:"payable_type"`
	PayableID   int64      `json:"payable_id"`
	Status      fsm.Status `json:"status"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	Code        string     `json:"code,omitempty"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	At          time.Time  `json:"at"`
}

// TypeFor maps a status to its event type.
func TypeFor(s fsm.Status) string {
	switch s {
	case fsm.StatusInitiated:
		return TypeInitiated
	case fsm.StatusProcessing:
		return TypeProcessing
	case fsm.StatusSucceeded:
		return TypeSucceeded
	case fsm.StatusFailed:
		return TypeFailed
	case fsm.StatusCancelled:
		return TypeCancelled
	case fsm.StatusExpired:
		return TypeExpired
	}
	return "payment." + string(s)
}

// FromPayment builds the event for p's current status.
func FromPayment(p models.Payment, at time.Time) Event {
	return Event{
		Type:        TypeFor(p.Status),
		PaymentID:   p.ID,
		Reference:   p.Reference,
		PayableType: p.PayableType,
		PayableID:   p.PayableID,
		Status:      p.Status,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Code:        p.ResponseCode,
		Message:     p.ResponseMessage,
		At:          at,
	}
}

// Publisher delivers events. Delivery failures never affect payment state.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi fans an event out to every publisher.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	Logger *slog.Logger
}

func (l LogPublisher) Publish(ctx context.Context, e Event) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if e.Type == TypeHookFailed {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "payment event",
		"type", e.Type,
		"reference", e.Reference,
		"payable", e.PayableType,
		"payable_id", e.PayableID,
		"status", e.Status,
		"code", e.Code,
		"err", e.Error,
	)
	return nil
}
