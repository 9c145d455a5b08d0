package auth

import (
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"
)

// StreamTokenTTL bounds how long a minted stream token can open a connection.
var StreamTokenTTL = time.Minute

// ActivityStream exposes the hub over a websocket endpoint. Authenticated
// clients stream their own events; pre-login clients waiting on email
// verification can subscribe by email instead.
type ActivityStream struct {
	hub          *Hub
	tokenService TokenService
	logger       Logger
}

func NewActivityStream(hub *Hub, tokenService TokenService) *ActivityStream {
	return &ActivityStream{
		hub:          hub,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *ActivityStream) WithLogger(logger Logger) *ActivityStream {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Handler returns the http.Handler for the stream endpoint.
func (s *ActivityStream) Handler() http.Handler {
	wsHandler := websocket.Handler(s.serve)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if _, err := s.subscriptionKey(r); err != nil {
			s.logger.Debug("activity stream unauthorized: remote=%s err=%v", r.RemoteAddr, err)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		wsHandler.ServeHTTP(w, r)
	})
}

// StreamToken mints a short-lived scoped token a client can pass on the
// query string, for browsers where the access cookie does not ride along
// with the websocket handshake.
func (s *ActivityStream) StreamToken(identity Identity) (string, time.Time, error) {
	return MintScopedToken(s.tokenService, identity, ScopedTokenOptions{
		TTL: StreamTokenTTL,
	})
}

// subscriptionKey resolves which hub key the request may listen on: the
// user ID from a valid access cookie or a scoped stream token, or the
// email passed on the query string for clients that have not logged in yet.
func (s *ActivityStream) subscriptionKey(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		token := strings.TrimSpace(cookie.Value)
		if token != "" {
			claims, err := s.tokenService.Validate(token)
			if err != nil {
				return "", err
			}
			return claims.UserID(), nil
		}
	}

	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		claims, err := s.tokenService.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.UserID(), nil
	}

	if email := strings.TrimSpace(r.URL.Query().Get("email")); email != "" {
		return strings.ToLower(email), nil
	}

	return "", ErrUnableToFindSession
}

func (s *ActivityStream) serve(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	key, err := s.subscriptionKey(conn.Request())
	if err != nil {
		return
	}

	sub := s.hub.Subscribe(key)
	defer sub.Close()

	// Drain client frames so we notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		buf := make([]byte, 512)
		for {
			if _, err := conn.Read(buf); err != nil {
				if err != io.EOF {
					s.logger.Debug("activity stream read: key=%s err=%v", key, err)
				}
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, event); err != nil {
				s.logger.Debug("activity stream send: key=%s err=%v", key, err)
				return
			}
		case <-closed:
			return
		}
	}
}
