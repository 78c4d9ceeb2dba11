package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"juristBack/internal/payments/fsm"
)

// ErrInvalidTransition is returned when a payment cannot move to the requested status.
var ErrInvalidTransition = errors.New("invalid payment status transition")

// Customer is the payer's contact snapshot taken at initiation time.
type Customer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Missing returns the names of required contact fields that are blank.
func (c Customer) Missing() []string {
	var out []string
	if strings.TrimSpace(c.Email) == "" {
		out = append(out, "email")
	}
	if strings.TrimSpace(c.FirstName) == "" {
		out = append(out, "first_name")
	}
	if strings.TrimSpace(c.LastName) == "" {
		out = append(out, "last_name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		out = append(out, "phone")
	}
	return out
}

// Meta carries caller context. The state machine never reads it.
type Meta map[string]string

// Payment is one attempt to pay for a payable entity.
type Payment struct {
	ID              string     `json:"id"`
	PayableType     string     `json:"payable_type"`
	PayableID       int64      `json:"payable_id"`
	Reference       string     `json:"reference"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	Provider        string     `json:"provider"`
	Status          fsm.Status `json:"status"`
	Channel         string     `json:"channel,omitempty"`
	SessionID       string     `json:"session_id,omitempty"`
	ResponseCode    string     `json:"response_code,omitempty"`
	ResponseMessage string     `json:"response_message,omitempty"`
	Customer        Customer   `json:"customer"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Meta            Meta       `json:"meta,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NewPayment builds a PENDING payment. Financial terms are fixed from here on.
func NewPayment(id, payableType string, payableID int64, reference string, amount int64, currency, provider string, customer Customer, now time.Time) (*Payment, error) {
	if id == "" {
		return nil, errors.New("payment id is required")
	}
	if payableType == "" || payableID <= 0 {
		return nil, errors.New("payable reference is required")
	}
	if reference == "" {
		return nil, errors.New("payment reference is required")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("invalid amount %d", amount)
	}
	if currency == "" {
		return nil, errors.New("currency is required")
	}
	return &Payment{
		ID:          id,
		PayableType: payableType,
		PayableID:   payableID,
		Reference:   reference,
		Amount:      amount,
		Currency:    currency,
		Provider:    provider,
		Status:      fsm.StatusPending,
		Customer:    customer,
		Meta:        Meta{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// LiveKey identifies the payable+provider slot a non-terminal payment occupies.
func LiveKey(payableType string, payableID int64, provider string) string {
	return fmt.Sprintf("%s:%d:%s", payableType, payableID, provider)
}

// IsTerminal reports whether the payment reached a final status.
func (p *Payment) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// IsExpired reports whether the session deadline has passed.
func (p *Payment) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// IsLive reports whether the payment can still be reused instead of creating a new one.
func (p *Payment) IsLive(now time.Time) bool {
	return !p.IsTerminal() && !p.IsExpired(now)
}

// MarkInitiated records the gateway session. PENDING -> INITIATED only.
func (p *Payment) MarkInitiated(sessionID string, now time.Time) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidTransition)
	}
	if p.SessionID != "" || !fsm.CanTransition(p.Status, fsm.StatusInitiated) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, fsm.StatusInitiated)
	}
	p.SessionID = sessionID
	p.Status = fsm.StatusInitiated
	p.UpdatedAt = now
	return nil
}

// MarkProcessing moves an open payment to PROCESSING. It reports whether anything changed.
func (p *Payment) MarkProcessing(code, message string, now time.Time) bool {
	if !fsm.CanTransition(p.Status, fsm.StatusProcessing) {
		return false
	}
	p.Status = fsm.StatusProcessing
	p.ResponseCode = code
	p.ResponseMessage = message
	p.UpdatedAt = now
	return true
}

// MarkSucceeded finalises the payment as SUCCEEDED.
func (p *Payment) MarkSucceeded(code, message string, now time.Time) bool {
	return p.finish(fsm.StatusSucceeded, code, message, now)
}

// MarkFailed finalises the payment as FAILED.
func (p *Payment) MarkFailed(code, message string, now time.Time) bool {
	return p.finish(fsm.StatusFailed, code, message, now)
}

// MarkCancelled finalises the payment as CANCELLED.
func (p *Payment) MarkCancelled(code, message string, now time.Time) bool {
	return p.finish(fsm.StatusCancelled, code, message, now)
}

// MarkExpired finalises the payment as EXPIRED.
func (p *Payment) MarkExpired(code, message string, now time.Time) bool {
	return p.finish(fsm.StatusExpired, code, message, now)
}

// Apply moves the payment to target through the matching Mark* method.
func (p *Payment) Apply(target fsm.Status, code, message string, now time.Time) bool {
	switch target {
	case fsm.StatusProcessing:
		return p.MarkProcessing(code, message, now)
	case fsm.StatusSucceeded:
		return p.MarkSucceeded(code, message, now)
	case fsm.StatusFailed:
		return p.MarkFailed(code, message, now)
	case fsm.StatusCancelled:
		return p.MarkCancelled(code, message, now)
	case fsm.StatusExpired:
		return p.MarkExpired(code, message, now)
	}
	return false
}

// finish is a no-op on terminal payments: the first terminal status wins.
func (p *Payment) finish(target fsm.Status, code, message string, now time.Time) bool {
	if p.IsTerminal() || !fsm.CanTransition(p.Status, target) {
		return false
	}
	p.Status = target
	p.ResponseCode = code
	p.ResponseMessage = message
	p.UpdatedAt = now
	p.CompletedAt = &now
	return true
}
