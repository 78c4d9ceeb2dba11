package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"juristBack/internal/models"
	"juristBack/internal/payments/events"
	"juristBack/internal/payments/fsm"
)

func TestStatusHubPushesCurrentAndUpdates(t *testing.T) {
	lookup := func(_ context.Context, ref string) (*models.Payment, error) {
		return &models.Payment{Reference: ref, Status: fsm.StatusInitiated}, nil
	}
	hub := NewStatusHub(lookup, nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?reference=REF-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first StatusMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, fsm.StatusInitiated, first.Status)
	require.False(t, first.Final)
	require.Equal(t, 1, hub.Watchers("REF-1"))

	require.NoError(t, hub.Publish(context.Background(), events.Event{
		Type: events.TypeSucceeded, Reference: "REF-1", Status: fsm.StatusSucceeded, Code: "0",
	}))
	require.NoError(t, hub.Publish(context.Background(), events.Event{
		Type: events.TypeSucceeded, Reference: "OTHER", Status: fsm.StatusSucceeded,
	}))

	var next StatusMessage
	require.NoError(t, conn.ReadJSON(&next))
	require.Equal(t, "REF-1", next.Reference)
	require.Equal(t, fsm.StatusSucceeded, next.Status)
	require.True(t, next.Final)
}

func TestStatusHubRequiresReference(t *testing.T) {
	hub := NewStatusHub(nil, nil, nil)
	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/payments/ws", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusHubRestrictsOrigins(t *testing.T) {
	hub := NewStatusHub(nil, nil, []string{"https://app.example.com/"})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?reference=REF-2"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.net"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, 0, hub.Watchers("REF-2"))

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://app.example.com"}})
	require.NoError(t, err)
	conn.Close()

	// non-browser clients send no Origin
	conn, _, err = websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	conn.Close()
}

func TestOriginChecker(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/payments/ws", nil)
	r.Header.Set("Origin", "https://anything.example")
	require.True(t, originChecker(nil)(r))
	require.False(t, originChecker([]string{"http://localhost:3000"})(r))
	require.True(t, originChecker([]string{" HTTPS://anything.example/ "})(r))
}
