package payments

import (
	"context"
	"fmt"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"juristBack/internal/models"
	"juristBack/internal/payments/events"
	"juristBack/internal/payments/gateway"
	paymentshttp "juristBack/internal/payments/http"
	"juristBack/internal/payments/lock"
	"juristBack/internal/payments/payable"
	"juristBack/internal/payments/repo"
	"juristBack/internal/payments/service"
	"juristBack/internal/payments/ws"
)

type moduleState struct {
	paymentsRepo *repo.PaymentsRepo
	gateway      *gateway.Client
	payables     *payable.Registry
	locker       lock.Locker
	hub          *ws.StatusHub
	publisher    events.Publisher
	service      *service.Service
	handler      *paymentshttp.Handler
}

func ensureModule(ctx context.Context, deps *PaymentsDeps) (*moduleState, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.module != nil {
		return deps.module, nil
	}
	logger := deps.Logger

	paymentsRepo := repo.NewPaymentsRepo(deps.DB, deps.Dialect)
	if err := paymentsRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	gwCfg := deps.Config.Gateway()
	gwCfg.Client = deps.HTTPClient
	gwCfg.Logger = logger.With("component", "gateway")
	gw, err := gateway.NewClient(gwCfg)
	if err != nil {
		return nil, err
	}

	registry := payable.NewRegistry()
	for _, pc := range deps.Payables {
		resolver, err := payable.NewTableResolver(deps.DB, deps.Dialect, pc)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(resolver.Type(), resolver); err != nil {
			return nil, err
		}
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if deps.RDB != nil {
		locker = lock.NewRedisLocker(deps.RDB, "payments:lock:", deps.Config.LockTTL, logger.With("component", "lock"))
	}

	hub := ws.NewStatusHub(func(ctx context.Context, ref string) (*models.Payment, error) {
		return paymentsRepo.GetByReference(ctx, ref)
	}, logger.With("component", "ws"), deps.AllowedOrigins)

	publisher := events.Multi{events.LogPublisher{Logger: logger.With("component", "events")}, hub}
	if deps.Producer != nil {
		publisher = append(publisher, events.NewKafkaPublisher(deps.Producer, deps.Config.KafkaTopic, logger.With("component", "kafka")))
	}

	codes := deps.Config.Codes
	svc, err := service.New(service.Options{
		Store:      paymentsRepo,
		Gateway:    gw,
		Payables:   registry,
		Locker:     locker,
		Publisher:  publisher,
		Codes:      &codes,
		SessionTTL: deps.Config.SessionTTL,
		Location:   deps.Config.Location,
		Logger:     logger.With("component", "payments"),
	})
	if err != nil {
		return nil, err
	}

	opts := paymentshttp.Options{
		NotifySecret:     deps.Config.NotifySecret,
		RequireSignature: deps.Config.NotifySignatureRequired,
		Logger:           logger.With("component", "payments_http"),
	}
	if deps.Customers != nil {
		customers, err := payable.NewCustomerTable(deps.DB, deps.Dialect, *deps.Customers)
		if err != nil {
			return nil, err
		}
		opts.Customers = customers
	}

	deps.module = &moduleState{
		paymentsRepo: paymentsRepo,
		gateway:      gw,
		payables:     registry,
		locker:       locker,
		hub:          hub,
		publisher:    publisher,
		service:      svc,
		handler:      paymentshttp.NewHandler(svc, hub, opts),
	}
	logger.Info("payments module ready", "payable_types", registry.Types(), "provider", gw.Provider(), "redis_lock", deps.RDB != nil, "kafka", deps.Producer != nil)
	return deps.module, nil
}

// RegisterPaymentRoutes wires the payment routes into mux. Initiation, status and
// history go through protected; processor and browser callbacks through public.
func RegisterPaymentRoutes(ctx context.Context, mux *pat.PatternServeMux, deps *PaymentsDeps, public, protected alice.Chain) error {
	module, err := ensureModule(ctx, deps)
	if err != nil {
		return fmt.Errorf("payments module: %w", err)
	}
	h := module.handler

	mux.Post("/payments/initiate", protected.ThenFunc(h.Initiate))
	mux.Post("/payments/notify", public.ThenFunc(h.Notify))
	mux.Get("/payments/return", public.ThenFunc(h.Redirect))
	mux.Post("/payments/return", public.ThenFunc(h.Redirect))
	mux.Get("/payments/status/:reference", protected.ThenFunc(h.Status))
	mux.Get("/payments/payable/:type/:id", protected.ThenFunc(h.History))
	mux.Get("/payments/ws", public.ThenFunc(h.WS))
	return nil
}
