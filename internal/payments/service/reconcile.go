package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"juristBack/internal/models"
	"juristBack/internal/payments/gateway"
	"juristBack/internal/payments/repo"
)

// Channel names the inbound path a reconciliation message came through.
type Channel string

const (
	ChannelNotify   Channel = "notify"
	ChannelRedirect Channel = "redirect"
)

// Message is an outcome reported by the processor or carried by the browser.
type Message struct {
	Reference string
	SessionID string
	Code      string
	Message   string
	// Amount is the restated amount in major units as received, empty when absent.
	Amount string
}

// Outcome is the payment after reconciliation.
type Outcome struct {
	Payment models.Payment
	// Changed is true when this call wrote the new status.
	Changed bool
	// AlreadyFinal is true when the payment was terminal before this call.
	AlreadyFinal bool
}

// Reconcile applies an inbound outcome to its payment. Both channels run the
// same steps, and only the caller whose status write lands notifies the payable.
func (s *Service) Reconcile(ctx context.Context, ch Channel, msg Message) (Outcome, error) {
	p, err := s.lookup(ctx, msg)
	if err != nil {
		return Outcome{}, err
	}
	logger := s.logger.With("op", "Reconcile", "channel", string(ch), "reference", p.Reference)
	code := strings.TrimSpace(msg.Code)

	for attempt := 1; ; attempt++ {
		if p.IsTerminal() {
			logger.Debug("payment already final", "status", p.Status, "code", code)
			return Outcome{Payment: *p, AlreadyFinal: true}, nil
		}
		if err := checkAmount(msg.Amount, p); err != nil {
			logger.Warn("amount mismatch", "stored", p.Amount, "received", msg.Amount, "code", code, "err", err)
			return Outcome{Payment: *p}, err
		}

		res := s.codes.Classify(code, msg.Message)
		if res.Status == "" {
			return s.recordOnly(ctx, p, code, msg.Message)
		}
		if !res.Recognized {
			logger.Warn("unrecognized response code, failing payment", "code", code, "message", msg.Message)
		}

		from := p.Status
		next := *p
		if !next.Apply(res.Status, code, res.Message, s.now()) {
			// e.g. PROCESSING reported again
			return s.recordOnly(ctx, p, code, res.Message)
		}
		ok, err := s.store.Transition(ctx, &next, from)
		if err != nil {
			return Outcome{Payment: *p}, err
		}
		if ok {
			logger.Info("payment status changed", "from", from, "to", next.Status, "code", code)
			s.settle(ctx, next, nil)
			return Outcome{Payment: next, Changed: true}, nil
		}

		p, err = s.store.GetByID(ctx, p.ID)
		if err != nil {
			return Outcome{}, fmt.Errorf("reload after lost update: %w", err)
		}
		if attempt >= maxReconcileAttempts && !p.IsTerminal() {
			return Outcome{Payment: *p}, fmt.Errorf("reconcile %s: status kept changing after %d attempts", p.Reference, attempt)
		}
	}
}

// checkAmount compares a restated amount with the stored one in the payment's currency.
func checkAmount(raw string, p *models.Payment) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := gateway.ParseAmount(raw, p.Currency)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAmountMismatch, err)
	}
	if n != p.Amount {
		return ErrAmountMismatch
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, msg Message) (*models.Payment, error) {
	if ref := strings.TrimSpace(msg.Reference); ref != "" {
		p, err := s.store.GetByReference(ctx, ref)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}
	if sid := strings.TrimSpace(msg.SessionID); sid != "" {
		return s.store.GetBySessionID(ctx, sid)
	}
	return nil, ErrNotFound
}

// recordOnly keeps the latest processor message on a non-terminal payment.
func (s *Service) recordOnly(ctx context.Context, p *models.Payment, code, message string) (Outcome, error) {
	message = strings.TrimSpace(message)
	if code == "" && message == "" {
		return Outcome{Payment: *p}, nil
	}
	if code == "" {
		code = p.ResponseCode
	}
	now := s.now()
	ok, err := s.store.RecordResponse(ctx, p.ID, code, message, now)
	if err != nil {
		return Outcome{Payment: *p}, err
	}
	if ok {
		p.ResponseCode = code
		p.ResponseMessage = message
		p.UpdatedAt = now
	}
	return Outcome{Payment: *p}, nil
}
