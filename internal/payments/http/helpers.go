package paymentshttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"juristBack/internal/models"
	"juristBack/internal/payments/fsm"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 15*time.Second)
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// Summary is the public view of a payment.
type Summary struct {
	Reference   string     `json:"reference"`
	Status      fsm.Status `json:"status"`
	Final       bool       `json:"final"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	PayableType string     `json:"payable_type"`
	PayableID   int64      `json:"payable_id"`
	Code        string     `json:"code,omitempty"`
	Message     string     `json:"message,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func summarize(p models.Payment) Summary {
	return Summary{
		Reference:   p.Reference,
		Status:      p.Status,
		Final:       p.IsTerminal(),
		Amount:      p.Amount,
		Currency:    p.Currency,
		PayableType: p.PayableType,
		PayableID:   p.PayableID,
		Code:        p.ResponseCode,
		Message:     p.ResponseMessage,
		ExpiresAt:   p.ExpiresAt,
		CompletedAt: p.CompletedAt,
		CreatedAt:   p.CreatedAt,
	}
}
