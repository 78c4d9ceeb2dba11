package service

import (
	"context"
	"fmt"

	"juristBack/internal/models"
	"juristBack/internal/payments/events"
	"juristBack/internal/payments/fsm"
	"juristBack/internal/payments/payable"
)

// settle runs after this caller won a status write: it publishes the change and
// notifies the payable. Hook failures are logged and published, never returned.
func (s *Service) settle(ctx context.Context, p models.Payment, pay payable.Payable) {
	s.publish(ctx, events.FromPayment(p, s.now()))

	if err := s.notify(ctx, p, pay); err != nil {
		s.logger.Error("payable hook failed",
			"reference", p.Reference,
			"payable", p.PayableType,
			"payable_id", p.PayableID,
			"status", p.Status,
			"err", err,
		)
		e := events.FromPayment(p, s.now())
		e.Type = events.TypeHookFailed
		e.Error = err.Error()
		s.publish(ctx, e)
	}
}

// notify invokes the hook matching p's status. Optional hooks are skipped when
// the payable does not implement them.
func (s *Service) notify(ctx context.Context, p models.Payment, pay payable.Payable) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()

	if pay == nil {
		pay, err = s.payables.Resolve(ctx, p.PayableType, p.PayableID)
		if err != nil {
			return fmt.Errorf("resolve payable: %w", err)
		}
	}

	switch {
	case p.Status == fsm.StatusSucceeded:
		return pay.OnPaymentSucceeded(ctx, p)
	case p.Status == fsm.StatusInitiated || p.Status == fsm.StatusProcessing:
		if n, ok := pay.(payable.PendingNotifiable); ok {
			return n.OnPaymentPending(ctx, p)
		}
	case p.Status.IsTerminal():
		if n, ok := pay.(payable.FailureNotifiable); ok {
			return n.OnPaymentFailed(ctx, p)
		}
	}
	return nil
}
