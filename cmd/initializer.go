package main

import (
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"

	"juristBack/internal/config"
	"juristBack/internal/payments"
	"juristBack/internal/payments/events"
	"juristBack/internal/payments/repo"
	"juristBack/utils"
)

type application struct {
	errorLog     *log.Logger
	infoLog      *log.Logger
	tokens       *utils.Manager
	paymentsDeps *payments.PaymentsDeps
	producer     sarama.SyncProducer
}

func initializeApp(db *sql.DB, dialect repo.Dialect, rdb *redis.Client, cfg config.Config, logger *slog.Logger, errorLog, infoLog *log.Logger) (*application, error) {
	tokens, err := utils.NewManager(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}

	paymentsCfg, err := payments.LoadPaymentsConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Kafka.Topic != "" {
		paymentsCfg.KafkaTopic = cfg.Kafka.Topic
	}

	var producer sarama.SyncProducer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = events.NewKafkaProducer(cfg.Kafka.Brokers, 10, 3*time.Second, logger)
		if err != nil {
			return nil, err
		}
		infoLog.Printf("Kafka producer connected to %v", cfg.Kafka.Brokers)
	}

	deps := &payments.PaymentsDeps{
		DB:         db,
		Dialect:    dialect,
		RDB:        rdb,
		Producer:   producer,
		Logger:     logger,
		Config:     paymentsCfg,
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
		Payables:   cfg.Payables,
		Customers:  cfg.Customers,

		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	return &application{
		errorLog:     errorLog,
		infoLog:      infoLog,
		tokens:       tokens,
		paymentsDeps: deps,
		producer:     producer,
	}, nil
}

func (app *application) close() {
	if app.producer != nil {
		if err := app.producer.Close(); err != nil {
			app.errorLog.Printf("close kafka producer: %v", err)
		}
	}
}
