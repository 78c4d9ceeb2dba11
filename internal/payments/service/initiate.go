package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"juristBack/internal/models"
	"juristBack/internal/payments/fsm"
	"juristBack/internal/payments/gateway"
	"juristBack/internal/payments/payable"
	"juristBack/internal/payments/repo"
)

// InitiateInput asks for a payment session for one payable.
type InitiateInput struct {
	PayableType   string
	PayableID     int64
	Channel       string
	Customer      models.Customer
	Description   string
	ReturnContext string
	Meta          models.Meta
}

// InitiateResult tells the caller where to send the payer.
type InitiateResult struct {
	SessionID      string         `json:"session_id"`
	Reference      string         `json:"reference"`
	RedirectAction string         `json:"redirect_action"`
	Reused         bool           `json:"reused"`
	Payment        models.Payment `json:"-"`
}

// Initiate opens a gateway session for a payable, or returns the live one.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (InitiateResult, error) {
	payableType := payable.Normalize(in.PayableType)
	if !s.payables.Has(payableType) {
		return InitiateResult{}, &ValidationError{Code: CodeInvalidPayableType, Detail: in.PayableType}
	}
	if in.PayableID <= 0 {
		return InitiateResult{}, &ValidationError{Code: CodeInvalidPayableID}
	}
	in.Customer = trimCustomer(in.Customer)
	if missing := in.Customer.Missing(); len(missing) > 0 {
		return InitiateResult{}, &ValidationError{Code: CodeMissingCustomerFields, Fields: missing}
	}

	pay, err := s.payables.Resolve(ctx, payableType, in.PayableID)
	if errors.Is(err, payable.ErrNotFound) {
		return InitiateResult{}, &ValidationError{Code: CodePayableNotFound, Detail: err.Error()}
	}
	if err != nil {
		return InitiateResult{}, fmt.Errorf("resolve payable: %w", err)
	}
	amount := pay.AmountDue()
	if amount <= 0 {
		return InitiateResult{}, &ValidationError{Code: CodeNothingDue}
	}

	provider := s.gateway.Provider()
	logger := s.logger.With("op", "Initiate", "payable", payableType, "payable_id", in.PayableID)

	unlock, err := s.locker.Lock(ctx, models.LiveKey(payableType, in.PayableID, provider))
	if err != nil {
		return InitiateResult{}, fmt.Errorf("lock payable: %w", err)
	}
	defer unlock()

	live, err := s.store.FindLive(ctx, payableType, in.PayableID, provider)
	switch {
	case errors.Is(err, repo.ErrNotFound):
	case err != nil:
		return InitiateResult{}, fmt.Errorf("find live payment: %w", err)
	default:
		res, reused, err := s.reuseLive(ctx, live, pay)
		if err != nil || reused {
			return res, err
		}
	}

	p, err := s.createPending(ctx, payableType, in, amount, provider)
	if errors.Is(err, repo.ErrLivePaymentExists) {
		live, ferr := s.store.FindLive(ctx, payableType, in.PayableID, provider)
		if ferr != nil {
			return InitiateResult{}, fmt.Errorf("find live payment: %w", ferr)
		}
		res, reused, err := s.reuseLive(ctx, live, pay)
		if err == nil && !reused {
			err = ErrInitiationInProgress
		}
		return res, err
	}
	if err != nil {
		return InitiateResult{}, err
	}
	logger = logger.With("reference", p.Reference)

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = pay.DisplayLabel()
	}
	gres, gerr := s.gateway.Initiate(ctx, gateway.Request{
		Reference:         p.Reference,
		Amount:            p.Amount,
		CustomerEmail:     p.Customer.Email,
		CustomerFirstName: p.Customer.FirstName,
		CustomerLastName:  p.Customer.LastName,
		CustomerPhone:     p.Customer.Phone,
		Channel:           p.Channel,
		Description:       description,
		ReturnContext:     in.ReturnContext,
	})
	if gerr != nil || !gres.OK {
		return InitiateResult{}, s.failInitiation(ctx, p, pay, gres, gerr)
	}

	now := s.now()
	if err := p.MarkInitiated(gres.SessionID, now); err != nil {
		return InitiateResult{}, err
	}
	ok, err := s.store.MarkInitiated(ctx, p)
	if err != nil {
		return InitiateResult{}, err
	}
	if !ok {
		logger.Warn("payment changed before session was stored", "session_id", gres.SessionID)
		return InitiateResult{}, fmt.Errorf("%w: %s", ErrConflict, p.Reference)
	}
	logger.Info("payment initiated", "session_id", p.SessionID, "amount", p.Amount, "currency", p.Currency)
	s.settle(ctx, *p, pay)

	return InitiateResult{
		SessionID:      p.SessionID,
		Reference:      p.Reference,
		RedirectAction: s.gateway.RedirectURL(p.SessionID),
		Payment:        *p,
	}, nil
}

// reuseLive returns the session of a live payment. An expired one is moved to
// EXPIRED and reused is false so the caller creates a fresh payment.
func (s *Service) reuseLive(ctx context.Context, live *models.Payment, pay payable.Payable) (InitiateResult, bool, error) {
	now := s.now()
	if live.IsExpired(now) {
		if err := s.expire(ctx, live, pay, now); err != nil {
			return InitiateResult{}, false, err
		}
		return InitiateResult{}, false, nil
	}
	if live.SessionID == "" {
		return InitiateResult{}, false, ErrInitiationInProgress
	}
	return InitiateResult{
		SessionID:      live.SessionID,
		Reference:      live.Reference,
		RedirectAction: s.gateway.RedirectURL(live.SessionID),
		Reused:         true,
		Payment:        *live,
	}, true, nil
}

func (s *Service) expire(ctx context.Context, live *models.Payment, pay payable.Payable, now time.Time) error {
	from := live.Status
	next := *live
	if !next.MarkExpired("", "session expired", now) {
		return nil
	}
	ok, err := s.store.Transition(ctx, &next, from)
	if err != nil {
		return fmt.Errorf("expire %s: %w", live.Reference, err)
	}
	if ok {
		s.logger.Info("payment session expired", "reference", live.Reference, "expires_at", live.ExpiresAt)
		s.settle(ctx, next, pay)
		return nil
	}
	// someone else finished it meanwhile
	cur, err := s.store.GetByID(ctx, live.ID)
	if err != nil {
		return fmt.Errorf("reload %s: %w", live.Reference, err)
	}
	if cur.Status == fsm.StatusSucceeded {
		return &ValidationError{Code: CodeNothingDue}
	}
	if !cur.IsTerminal() {
		return ErrInitiationInProgress
	}
	return nil
}

// createPending reserves a unique reference by inserting the PENDING record.
func (s *Service) createPending(ctx context.Context, payableType string, in InitiateInput, amount int64, provider string) (*models.Payment, error) {
	now := s.now()
	for skip := 0; skip < maxReferenceAttempts; skip++ {
		ref, err := s.refs.Next(ctx, payableType, in.PayableID, now, skip)
		if err != nil {
			return nil, err
		}
		p, err := models.NewPayment(s.newID(), payableType, in.PayableID, ref, amount, s.gateway.Currency(), provider, in.Customer, now)
		if err != nil {
			return nil, err
		}
		p.Channel = strings.TrimSpace(in.Channel)
		expires := now.Add(s.ttl)
		p.ExpiresAt = &expires
		for k, v := range in.Meta {
			p.Meta[k] = v
		}

		err = s.store.Create(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repo.ErrDuplicateReference) {
			return nil, err
		}
		s.logger.Debug("reference taken, retrying", "reference", ref, "attempt", skip+1)
	}
	return nil, fmt.Errorf("could not reserve a reference for %s %d after %d attempts", payableType, in.PayableID, maxReferenceAttempts)
}

// failInitiation finalises p as FAILED and returns the caller-facing error.
func (s *Service) failInitiation(ctx context.Context, p *models.Payment, pay payable.Payable, res gateway.Result, cause error) error {
	message := res.Message
	if message == "" && cause != nil {
		message = cause.Error()
	}
	if message == "" && res.SessionID == "" {
		message = "empty session id"
	}
	s.logger.Error("gateway initiation failed", "reference", p.Reference, "code", res.Code, "message", message, "err", cause)

	from := p.Status
	next := *p
	if next.MarkFailed(res.Code, message, s.now()) {
		ok, err := s.store.Transition(ctx, &next, from)
		if err != nil {
			s.logger.Error("mark payment failed", "reference", p.Reference, "err", err)
		} else if ok {
			s.settle(ctx, next, pay)
		}
	}
	return &GatewayError{Reference: p.Reference, ResponseCode: res.Code, Message: message, Err: cause}
}

func trimCustomer(c models.Customer) models.Customer {
	return models.Customer{
		Email:     strings.TrimSpace(c.Email),
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
		Phone:     strings.TrimSpace(c.Phone),
	}
}
