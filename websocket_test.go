package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/filmhub/go-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

// waitForSubscriber blocks until the hub registers a subscription for key.
func waitForSubscriber(t *testing.T, hub *auth.Hub, key string) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.SubscriberCount(key) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no subscriber registered for %q", key)
}

func TestActivityStreamRejectsUnauthenticated(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	stream := auth.NewActivityStream(hub, newTestTokenService())
	srv := httptest.NewServer(stream.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, err = http.Post(srv.URL, "text/plain", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestActivityStreamRejectsBadToken(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	stream := auth.NewActivityStream(hub, newTestTokenService())
	srv := httptest.NewServer(stream.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: "not-a-jwt"})

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestActivityStreamEmailSubscription(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	stream := auth.NewActivityStream(hub, newTestTokenService())
	srv := httptest.NewServer(stream.Handler())
	defer srv.Close()

	// pre-login clients subscribe by email; the key is case insensitive
	conn, err := websocket.Dial(wsURL(srv, "/?email=Ada@Example.com"), "", "http://localhost/")
	require.NoError(t, err)
	defer conn.Close()

	waitForSubscriber(t, hub, "ada@example.com")

	hub.Publish("ada@example.com", auth.ActivityEvent{
		EventType: auth.ActivityEventEmailVerified,
		UserID:    "user-1",
	})

	var event auth.ActivityEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, websocket.JSON.Receive(conn, &event))
	assert.Equal(t, auth.ActivityEventEmailVerified, event.EventType)
	assert.Equal(t, "user-1", event.UserID)
}

func TestActivityStreamScopedTokenSubscription(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	service := newTestTokenService()
	stream := auth.NewActivityStream(hub, service)
	srv := httptest.NewServer(stream.Handler())
	defer srv.Close()

	userID := uuid.NewString()
	token, expiresAt, err := stream.StreamToken(testIdentity{
		id:       userID,
		name:     "Ada",
		email:    "ada@example.com",
		verified: true,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(auth.StreamTokenTTL), expiresAt, 5*time.Second)

	// no cookie on the handshake, the scoped token rides the query string
	conn, err := websocket.Dial(wsURL(srv, "/?token="+token), "", "http://localhost/")
	require.NoError(t, err)
	defer conn.Close()

	waitForSubscriber(t, hub, userID)

	hub.Publish(userID, auth.ActivityEvent{
		EventType: auth.ActivityEventMovieSaved,
		UserID:    userID,
	})

	var event auth.ActivityEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, websocket.JSON.Receive(conn, &event))
	assert.Equal(t, auth.ActivityEventMovieSaved, event.EventType)

	res, getErr := http.Get(srv.URL + "/?token=not-a-jwt")
	require.NoError(t, getErr)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestActivityStreamCookieSubscription(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	service := newTestTokenService()
	userID := uuid.NewString()
	access, err := service.IssueAccess(testIdentity{
		id:       userID,
		name:     "Ada",
		email:    "ada@example.com",
		verified: true,
	})
	require.NoError(t, err)

	stream := auth.NewActivityStream(hub, service)
	srv := httptest.NewServer(stream.Handler())
	defer srv.Close()

	cfg, err := websocket.NewConfig(wsURL(srv, "/"), "http://localhost/")
	require.NoError(t, err)
	cfg.Header = http.Header{}
	cfg.Header.Set("Cookie", auth.AccessTokenCookie+"="+access)

	conn, err := websocket.DialConfig(cfg)
	require.NoError(t, err)
	defer conn.Close()

	waitForSubscriber(t, hub, userID)

	hub.Publish(userID, auth.ActivityEvent{
		EventType: auth.ActivityEventMovieSaved,
		UserID:    userID,
	})

	var event auth.ActivityEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, websocket.JSON.Receive(conn, &event))
	assert.Equal(t, auth.ActivityEventMovieSaved, event.EventType)
}
