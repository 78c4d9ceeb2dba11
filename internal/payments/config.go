package payments

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"juristBack/internal/payments/fsm"
	"juristBack/internal/payments/gateway"
)

const (
	defaultProvider   = "hosted"
	defaultCurrency   = "XOF"
	defaultSessionTTL = 30 * time.Minute
	defaultLockTTL    = 30 * time.Second
	defaultKafkaTopic = "payments.events"
)

// PaymentsConfig holds runtime configuration for the payments module.
type PaymentsConfig struct {
	Provider    string
	MerchantID  string
	Secret      string
	BaseURL     string
	RedirectURL string
	Currency    string
	NotifyURL   string
	ReturnURL   string

	SessionTTL time.Duration
	LockTTL    time.Duration
	Location   *time.Location
	Codes      fsm.Codes

	NotifySecret            string
	NotifySignatureRequired bool

	KafkaTopic string
}

// Gateway returns the processor client configuration.
func (c PaymentsConfig) Gateway() gateway.Config {
	return gateway.Config{
		Provider:    c.Provider,
		MerchantID:  c.MerchantID,
		Secret:      c.Secret,
		BaseURL:     c.BaseURL,
		RedirectURL: c.RedirectURL,
		Currency:    c.Currency,
		NotifyURL:   c.NotifyURL,
		ReturnURL:   c.ReturnURL,
		SuccessCode: c.Codes.Success,
	}
}

// LoadPaymentsConfig reads configuration from environment variables and applies defaults.
func LoadPaymentsConfig() (PaymentsConfig, error) {
	cfg := PaymentsConfig{
		Provider:   defaultProvider,
		Currency:   defaultCurrency,
		SessionTTL: defaultSessionTTL,
		LockTTL:    defaultLockTTL,
		Location:   time.UTC,
		Codes:      fsm.DefaultCodes(),
		KafkaTopic: defaultKafkaTopic,
	}

	if v := strings.TrimSpace(os.Getenv("PAYMENT_PROVIDER")); v != "" {
		cfg.Provider = strings.ToLower(v)
	}
	cfg.MerchantID = strings.TrimSpace(os.Getenv("GATEWAY_MERCHANT_ID"))
	cfg.Secret = os.Getenv("GATEWAY_SECRET")
	cfg.BaseURL = strings.TrimSpace(os.Getenv("GATEWAY_BASE_URL"))
	cfg.RedirectURL = strings.TrimSpace(os.Getenv("GATEWAY_REDIRECT_URL"))
	if v := strings.TrimSpace(os.Getenv("GATEWAY_CURRENCY")); v != "" {
		cfg.Currency = strings.ToUpper(v)
	}
	cfg.NotifyURL = strings.TrimSpace(os.Getenv("PAYMENT_NOTIFY_URL"))
	cfg.ReturnURL = strings.TrimSpace(os.Getenv("PAYMENT_RETURN_URL"))

	if v, err := readIntEnv("SESSION_TTL_MINUTES"); err != nil {
		return PaymentsConfig{}, fmt.Errorf("parse SESSION_TTL_MINUTES: %w", err)
	} else if v != nil {
		cfg.SessionTTL = time.Duration(*v) * time.Minute
	}

	if v, err := readIntEnv("PAYMENT_LOCK_TTL_SECONDS"); err != nil {
		return PaymentsConfig{}, fmt.Errorf("parse PAYMENT_LOCK_TTL_SECONDS: %w", err)
	} else if v != nil {
		cfg.LockTTL = time.Duration(*v) * time.Second
	}

	if v := strings.TrimSpace(os.Getenv("PAYMENT_TIMEZONE")); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return PaymentsConfig{}, fmt.Errorf("parse PAYMENT_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if v := strings.TrimSpace(os.Getenv("PAYMENT_CODE_SUCCESS")); v != "" {
		cfg.Codes.Success = v
	}
	if v := readListEnv("PAYMENT_CODES_REJECTED"); v != nil {
		cfg.Codes.Rejected = v
	}
	if v := strings.TrimSpace(os.Getenv("PAYMENT_CODE_CANCELLED")); v != "" {
		cfg.Codes.Cancelled = v
	}
	if v := strings.TrimSpace(os.Getenv("PAYMENT_CODE_EXPIRED")); v != "" {
		cfg.Codes.Expired = v
	}
	if v := readListEnv("PAYMENT_CODES_PROCESSING"); v != nil {
		cfg.Codes.Processing = v
	}

	cfg.NotifySecret = os.Getenv("NOTIFY_SECRET")
	if v := strings.TrimSpace(os.Getenv("NOTIFY_SIGNATURE_REQUIRED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return PaymentsConfig{}, fmt.Errorf("parse NOTIFY_SIGNATURE_REQUIRED: %w", err)
		}
		cfg.NotifySignatureRequired = b
	}
	if v := strings.TrimSpace(os.Getenv("PAYMENT_KAFKA_TOPIC")); v != "" {
		cfg.KafkaTopic = v
	}

	if cfg.MerchantID == "" || cfg.Secret == "" || cfg.BaseURL == "" || cfg.RedirectURL == "" {
		return PaymentsConfig{}, fmt.Errorf("GATEWAY configuration incomplete")
	}
	if cfg.SessionTTL <= 0 {
		return PaymentsConfig{}, fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	if cfg.LockTTL <= 0 {
		return PaymentsConfig{}, fmt.Errorf("PAYMENT_LOCK_TTL_SECONDS must be positive")
	}
	if cfg.NotifySignatureRequired && cfg.NotifySecret == "" {
		return PaymentsConfig{}, fmt.Errorf("NOTIFY_SIGNATURE_REQUIRED needs NOTIFY_SECRET")
	}

	return cfg, nil
}

func readIntEnv(name string) (*int, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(val)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readListEnv(name string) []string {
	val := strings.TrimSpace(os.Getenv(name))
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
