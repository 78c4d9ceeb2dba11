package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"juristBack/internal/payments/fsm"
)

func newTestPayment(t *testing.T, now time.Time) *Payment {
	t.Helper()
	p, err := NewPayment("id-1", "request", 42, "REQUEST-20240105-000042", 150000, "XOF", "hosted", Customer{
		Email: "a@b.c", FirstName: "Awa", LastName: "Diop", Phone: "+221770000000",
	}, now)
	require.NoError(t, err)
	return p
}

func TestNewPaymentStartsPending(t *testing.T) {
	now := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	p := newTestPayment(t, now)
	require.Equal(t, fsm.StatusPending, p.Status)
	require.Equal(t, int64(150000), p.Amount)
	require.True(t, p.IsLive(now))

	_, err := NewPayment("id", "request", 42, "R", 0, "XOF", "hosted", Customer{}, now)
	require.Error(t, err)
}

func TestMarkInitiated(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t, now)

	require.NoError(t, p.MarkInitiated("S1", now))
	require.Equal(t, fsm.StatusInitiated, p.Status)
	require.Equal(t, "S1", p.SessionID)

	err := p.MarkInitiated("S2", now)
	require.True(t, errors.Is(err, ErrInvalidTransition))
	require.Equal(t, "S1", p.SessionID)
}

func TestMarkInitiatedOnTerminalFails(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t, now)
	require.True(t, p.MarkFailed("REFUSED", "no", now))

	err := p.MarkInitiated("S1", now)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTerminalTransitionsAreIdempotent(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t, now)
	require.NoError(t, p.MarkInitiated("S1", now))

	require.True(t, p.MarkSucceeded("0", "ok", now))
	completed := *p.CompletedAt

	later := now.Add(time.Minute)
	require.False(t, p.MarkSucceeded("0", "again", later))
	require.False(t, p.MarkFailed("REFUSED", "late", later))
	require.False(t, p.MarkCancelled("CANCEL", "late", later))
	require.False(t, p.MarkExpired("EXPIRED", "late", later))

	require.Equal(t, fsm.StatusSucceeded, p.Status)
	require.Equal(t, "0", p.ResponseCode)
	require.Equal(t, "ok", p.ResponseMessage)
	require.True(t, completed.Equal(*p.CompletedAt))
}

func TestProcessingThenTerminal(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t, now)
	require.NoError(t, p.MarkInitiated("S1", now))
	require.True(t, p.Apply(fsm.StatusProcessing, "PENDING", "wait", now))
	require.False(t, p.Apply(fsm.StatusProcessing, "PENDING", "wait", now))
	require.True(t, p.Apply(fsm.StatusCancelled, "CANCEL", "user", now))
	require.True(t, p.IsTerminal())
	require.False(t, p.IsLive(now))
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	p := newTestPayment(t, now)
	deadline := now.Add(30 * time.Minute)
	p.ExpiresAt = &deadline
	require.False(t, p.IsExpired(now))
	require.True(t, p.IsExpired(deadline))
	require.False(t, p.IsLive(deadline.Add(time.Second)))
}

func TestCustomerMissing(t *testing.T) {
	require.Equal(t, []string{"email", "first_name", "last_name", "phone"}, Customer{}.Missing())
	require.Empty(t, Customer{Email: "x", FirstName: "y", LastName: "z", Phone: "1"}.Missing())
	require.Equal(t, []string{"phone"}, Customer{Email: "x", FirstName: "y", LastName: "z", Phone: "  "}.Missing())
}

func TestLiveKey(t *testing.T) {
	require.Equal(t, "request:42:hosted", LiveKey("request", 42, "hosted"))
}
