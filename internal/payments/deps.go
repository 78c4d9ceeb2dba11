package payments

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"

	"juristBack/internal/payments/payable"
	"juristBack/internal/payments/repo"
)

// PaymentsDeps groups external dependencies needed by the payments module.
type PaymentsDeps struct {
	DB      *sql.DB
	Dialect repo.Dialect
	// RDB is optional; without it initiation is serialised in process only.
	RDB *redis.Client
	// Producer is optional; without it events are only logged and streamed.
	Producer   sarama.SyncProducer
	Logger     *slog.Logger
	Config     PaymentsConfig
	HTTPClient *http.Client

	Payables  []payable.TableConfig
	Customers *payable.CustomerTableConfig

	// AllowedOrigins limits browser origins on the status websocket.
	AllowedOrigins []string

	module *moduleState
}

// Validate ensures required dependencies are provided.
func (d *PaymentsDeps) Validate() error {
	if d == nil {
		return errors.New("payments deps are nil")
	}
	if d.DB == nil {
		return errors.New("payments deps: DB is required")
	}
	if d.Dialect.Name() == "" {
		return errors.New("payments deps: Dialect is required")
	}
	if len(d.Payables) == 0 {
		return errors.New("payments deps: at least one payable type is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.HTTPClient == nil {
		d.HTTPClient = http.DefaultClient
	}
	return nil
}
