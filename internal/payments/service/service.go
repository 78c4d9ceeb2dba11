package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"juristBack/internal/models"
	"juristBack/internal/payments/events"
	"juristBack/internal/payments/fsm"
	"juristBack/internal/payments/gateway"
	"juristBack/internal/payments/lock"
	"juristBack/internal/payments/payable"
	"juristBack/internal/payments/reference"
)

const (
	maxReferenceAttempts = 5
	maxReconcileAttempts = 3
	defaultSessionTTL    = 30 * time.Minute
)

// Store persists payments. Every status write is a compare-and-swap.
type Store interface {
	reference.Counter
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByReference(ctx context.Context, ref string) (*models.Payment, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	FindLive(ctx context.Context, payableType string, payableID int64, provider string) (*models.Payment, error)
	ListByPayable(ctx context.Context, payableType string, payableID int64) ([]models.Payment, error)
	MarkInitiated(ctx context.Context, p *models.Payment) (bool, error)
	Transition(ctx context.Context, p *models.Payment, from fsm.Status) (bool, error)
	RecordResponse(ctx context.Context, id, code, message string, now time.Time) (bool, error)
}

// Gateway opens sessions with the processor.
type Gateway interface {
	Initiate(ctx context.Context, req gateway.Request) (gateway.Result, error)
	RedirectURL(sessionID string) string
	Currency() string
	Provider() string
}

// Options configures a Service.
type Options struct {
	Store     Store
	Gateway   Gateway
	Payables  *payable.Registry
	Locker    lock.Locker
	Publisher events.Publisher
	Codes     *fsm.Codes

	SessionTTL time.Duration
	Location   *time.Location
	Logger     *slog.Logger

	Now   func() time.Time
	NewID func() string
}

// Service initiates payments and reconciles processor outcomes.
type Service struct {
	store     Store
	gateway   Gateway
	payables  *payable.Registry
	locker    lock.Locker
	publisher events.Publisher
	refs      *reference.Generator
	codes     fsm.Codes
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// New validates opts and builds a Service.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("service: store is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("service: gateway is required")
	}
	if opts.Payables == nil {
		return nil, errors.New("service: payable registry is required")
	}
	s := &Service{
		store:     opts.Store,
		gateway:   opts.Gateway,
		payables:  opts.Payables,
		locker:    opts.Locker,
		publisher: opts.Publisher,
		refs:      reference.NewGenerator(opts.Store, opts.Location),
		codes:     fsm.DefaultCodes(),
		ttl:       opts.SessionTTL,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if opts.Codes != nil {
		s.codes = *opts.Codes
	}
	if s.locker == nil {
		s.locker = lock.NewLocalLocker()
	}
	if s.publisher == nil {
		s.publisher = events.Multi{}
	}
	if s.ttl <= 0 {
		s.ttl = defaultSessionTTL
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// Payment returns the payment with reference.
func (s *Service) Payment(ctx context.Context, ref string) (*models.Payment, error) {
	return s.store.GetByReference(ctx, ref)
}

// History returns every payment of a payable, newest first.
func (s *Service) History(ctx context.Context, payableType string, payableID int64) ([]models.Payment, error) {
	t := payable.Normalize(payableType)
	if !s.payables.Has(t) {
		return nil, &ValidationError{Code: CodeInvalidPayableType, Detail: payableType}
	}
	return s.store.ListByPayable(ctx, t, payableID)
}

// RedirectAction returns where the browser goes for a session.
func (s *Service) RedirectAction(sessionID string) string {
	return s.gateway.RedirectURL(sessionID)
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish payment event", "type", e.Type, "reference", e.Reference, "err", err)
	}
}
