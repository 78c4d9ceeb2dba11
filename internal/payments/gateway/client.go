package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"juristBack/internal/payments/sign"
)

// Config configures the processor client.
type Config struct {
	Provider   string
	MerchantID string
	Secret     string

	// Base of the processor API, e.g. https://api.processor.example/v1
	BaseURL string
	// Hosted payment page the browser is sent to.
	RedirectURL string
	Currency    string

	// Server-to-server notification endpoint.
	NotifyURL string
	// Browser return endpoint.
	ReturnURL string

	SuccessCode string

	Client *http.Client
	Logger *slog.Logger
}

// Client is a stateless adapter over the processor initiation API.
type Client struct {
	provider    string
	merchantID  string
	baseURL     *url.URL
	redirectURL string
	currency    string
	notifyURL   string
	returnURL   string
	successCode string

	signer     *sign.Signer
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" ||
		strings.TrimSpace(cfg.Secret) == "" ||
		strings.TrimSpace(cfg.BaseURL) == "" ||
		strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, fmt.Errorf("gateway: merchant_id/secret/base_url/redirect_url are required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "XOF"
	}
	successCode := cfg.SuccessCode
	if successCode == "" {
		successCode = "0"
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "hosted"
	}

	c := &Client{
		provider:    provider,
		merchantID:  cfg.MerchantID,
		baseURL:     u,
		redirectURL: cfg.RedirectURL,
		currency:    currency,
		notifyURL:   cfg.NotifyURL,
		returnURL:   cfg.ReturnURL,
		successCode: successCode,
		signer:      sign.NewSigner(cfg.Secret),
		httpClient:  client,
		logger:      logger,
	}
	logger.Info("payment gateway initialized",
		"provider", provider,
		"baseURL", safeURL(u),
		"currency", currency,
		"notifyURL_set", c.notifyURL != "",
		"returnURL_set", c.returnURL != "",
	)
	return c, nil
}

// Provider returns the processor name stored on payments.
func (c *Client) Provider() string { return c.provider }

// Currency returns the configured currency code.
func (c *Client) Currency() string { return c.currency }

// RedirectURL returns the hosted page URL for a session.
func (c *Client) RedirectURL(sessionID string) string {
	u, err := url.Parse(c.redirectURL)
	if err != nil {
		return c.redirectURL
	}
	q := u.Query()
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()
	return u.String()
}

// Request is one initiation call.
type Request struct {
	Reference         string
	Amount            int64
	CustomerEmail     string
	CustomerFirstName string
	CustomerLastName  string
	CustomerPhone     string
	Channel           string
	Description       string
	ReturnContext     string
}

// Result is the normalised processor answer.
type Result struct {
	OK        bool   `json:"ok"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// InitPayload is the JSON body of an initiation request.
type InitPayload struct {
	MerchantID        string `json:"merchant_id"`
	Reference         string `json:"reference"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	CustomerEmail     string `json:"customer_email"`
	CustomerFirstName string `json:"customer_first_name"`
	CustomerLastName  string `json:"customer_last_name"`
	CustomerPhone     string `json:"customer_phone"`
	NotifyURL         string `json:"notify_url"`
	ReturnURL         string `json:"return_url"`
	Channel           string `json:"channel,omitempty"`
	Description       string `json:"description,omitempty"`
	ReturnContext     string `json:"return_context,omitempty"`
	Signature         string `json:"signature"`
	SignatureVersion  string `json:"signature_version"`
}

// Payload builds and signs the initiation body.
func (c *Client) Payload(req Request) InitPayload {
	amount := FormatAmount(req.Amount, c.currency)
	fields := sign.Fields{
		MerchantID:        c.merchantID,
		Reference:         req.Reference,
		Amount:            amount,
		CustomerEmail:     req.CustomerEmail,
		CustomerFirstName: req.CustomerFirstName,
		CustomerLastName:  req.CustomerLastName,
		CustomerPhone:     req.CustomerPhone,
		NotifyURL:         c.notifyURL,
		ReturnURL:         c.returnURL,
		Channel:           req.Channel,
		Description:       req.Description,
		ReturnContext:     req.ReturnContext,
	}
	return InitPayload{
		MerchantID:        fields.MerchantID,
		Reference:         fields.Reference,
		Amount:            fields.Amount,
		Currency:          c.currency,
		CustomerEmail:     fields.CustomerEmail,
		CustomerFirstName: fields.CustomerFirstName,
		CustomerLastName:  fields.CustomerLastName,
		CustomerPhone:     fields.CustomerPhone,
		NotifyURL:         fields.NotifyURL,
		ReturnURL:         fields.ReturnURL,
		Channel:           fields.Channel,
		Description:       fields.Description,
		ReturnContext:     fields.ReturnContext,
		Signature:         c.signer.Sign(fields),
		SignatureVersion:  c.signer.Version(),
	}
}

// Initiate submits the payment to the processor. It never retries.
func (c *Client) Initiate(ctx context.Context, req Request) (Result, error) {
	logger := c.logger.With("op", "Initiate", "reference", req.Reference)

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/payment/init")

	body, err := json.Marshal(c.Payload(req))
	if err != nil {
		return Result{}, fmt.Errorf("encode init payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build init request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("init request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	logger.Debug("init raw", "status", resp.Status, "body", trim(string(b), 2000))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Code: strconv.Itoa(resp.StatusCode), Message: trim(string(b), 500)},
			&Error{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}

	var out initResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return Result{}, fmt.Errorf("decode init response: %w", err)
	}
	res := Result{Code: out.Code, Message: out.Message, SessionID: out.SessionID}
	res.OK = strings.EqualFold(res.Code, c.successCode) && strings.TrimSpace(res.SessionID) != ""
	if !res.OK {
		logger.Warn("init rejected", "code", res.Code, "message", res.Message, "session_set", res.SessionID != "")
	}
	return res, nil
}

type initResponse struct {
	Code      string
	Message   string
	SessionID string
}

func (r *initResponse) UnmarshalJSON(data []byte) error {
	type rawData struct {
		SessionID      string `json:"session_id"`
		SessionIDCamel string `json:"sessionId"`
		Token          string `json:"token"`
	}
	type rawResponse struct {
		Code           json.RawMessage `json:"code"`
		Message        string          `json:"message"`
		Description    string          `json:"description"`
		SessionID      string          `json:"session_id"`
		SessionIDCamel string          `json:"sessionId"`
		Data           *rawData        `json:"data"`
	}
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	code, err := rawCode(raw.Code)
	if err != nil {
		return fmt.Errorf("gateway: parse code: %w", err)
	}
	r.Code = code
	r.Message = strings.TrimSpace(raw.Message)
	if r.Message == "" {
		r.Message = strings.TrimSpace(raw.Description)
	}
	r.SessionID = firstNonEmpty(raw.SessionID, raw.SessionIDCamel)
	if r.SessionID == "" && raw.Data != nil {
		r.SessionID = firstNonEmpty(raw.Data.SessionID, raw.Data.SessionIDCamel, raw.Data.Token)
	}
	return nil
}

func rawCode(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ---------- helpers ----------

var currencyExponents = map[string]int32{
	"XOF": 0,
	"XAF": 0,
	"GNF": 0,
	"JPY": 0,
	"KZT": 2,
	"EUR": 2,
	"USD": 2,
	"MAD": 2,
}

// FormatAmount renders minor units in major units for the currency, e.g. 1050 EUR -> "10.50".
func FormatAmount(minor int64, currency string) string {
	exp, ok := currencyExponents[strings.ToUpper(currency)]
	if !ok {
		exp = 2
	}
	return decimal.New(minor, -exp).StringFixed(exp)
}

func trim(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

func safeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.User = nil
	return c.String()
}

// Error is a non-2xx processor answer.
type Error struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	bt := strings.TrimSpace(e.Body)
	if bt == "" {
		return fmt.Sprintf("gateway error: %s", e.Status)
	}
	return fmt.Sprintf("gateway error: %s: %s", e.Status, trim(bt, 500))
}

// ParseAmount converts a major-unit amount string back to minor units for the currency.
func ParseAmount(s, currency string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	exp, ok := currencyExponents[strings.ToUpper(currency)]
	if !ok {
		exp = 2
	}
	minor := d.Shift(exp)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than %d decimals", s, exp)
	}
	return minor.IntPart(), nil
}
