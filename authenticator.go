package auth

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore persists the live refresh token per user. The concrete
// implementation is RefreshSessions, tests swap in fakes.
type RefreshTokenStore interface {
	Replace(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*RefreshSession, error)
	Match(ctx context.Context, userID uuid.UUID, token string) (bool, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
}

type Auther struct {
	provider       IdentityProvider
	refreshTTL     time.Duration
	logger         Logger
	tokenService   TokenService
	tokenValidator TokenValidator
	refreshStore   RefreshTokenStore
	activitySink   ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	return &Auther{
		provider:     provider,
		refreshTTL:   opts.GetRefreshTokenDuration(),
		logger:       defLogger{},
		tokenService: NewTokenService(opts, defLogger{}),
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// WithRefreshSessionStore wires the store that backs refresh token revocation.
// Without one, refresh tokens are honored on signature alone.
func (s *Auther) WithRefreshSessionStore(store RefreshTokenStore) *Auther {
	s.refreshStore = store
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and mints a token pair. Credential failures win
// over the verification gate so an unverified account with a wrong password
// still reports invalid credentials.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.VerifyIdentity(ctx, identifier, password); err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return nil, ErrIdentityNotFound
	}

	if !identity.Verified() {
		s.logger.Info("Login blocked, email not verified: %s", identity.Email())
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      ErrEmailNotVerified.Error(),
		})
		return nil, ErrEmailNotVerified
	}

	pair, err := s.tokenService.IssuePair(identity)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	if err := s.persistRefreshSession(ctx, identity, pair.RefreshToken); err != nil {
		s.logger.Error("Login failed to persist refresh session: %v", err)
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return pair, nil
}

// RotateAccess exchanges a refresh token for a fresh access token. The token
// must verify cryptographically and still match the persisted session, a
// mismatch means a later login replaced it.
func (s *Auther) RotateAccess(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokenService.ValidateRefresh(refreshToken)
	if err != nil {
		s.logger.Error("RotateAccess refresh validation failed: %v", err)
		return "", err
	}

	userID := claims.UserID()

	if s.refreshStore != nil {
		uid, err := uuid.Parse(userID)
		if err != nil {
			return "", ErrTokenMalformed
		}

		match, err := s.refreshStore.Match(ctx, uid, refreshToken)
		if err != nil {
			return "", err
		}

		if !match {
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{ID: userID, Type: "user"}, userID, map[string]any{
				"error": ErrTokenRevoked.Error(),
			})
			return "", ErrTokenRevoked
		}
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, userID)
	if err != nil {
		s.logger.Error("RotateAccess find identity error: %v", err)
		return "", err
	}

	access, err := s.tokenService.IssueAccess(identity)
	if err != nil {
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefresh, s.actorFromIdentity(identity), identity.ID(), nil)

	return access, nil
}

// Logout revokes the persisted refresh session. A token that no longer
// validates still logs the caller out, there is nothing left to revoke.
func (s *Auther) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokenService.ValidateRefresh(refreshToken)
	if err != nil {
		s.logger.Debug("Logout with invalid refresh token: %v", err)
		return nil
	}

	userID := claims.UserID()

	if s.refreshStore != nil {
		uid, err := uuid.Parse(userID)
		if err != nil {
			return nil
		}

		if err := s.refreshStore.Revoke(ctx, uid); err != nil {
			s.logger.Error("Logout failed to revoke refresh session: %v", err)
			return err
		}
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{ID: userID, Type: "user"}, userID, nil)

	return nil
}

func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())

	if err != nil {
		s.logger.Error("IdentityFromSession findidentity by identifier: %s", err)
		return nil, err
	}

	return identity, nil
}

func (s Auther) SessionFromToken(raw string) (Session, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed: %v", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims: %v", err)
		return nil, err
	}

	return session, nil
}

func (s *Auther) persistRefreshSession(ctx context.Context, identity Identity, refreshToken string) error {
	if s.refreshStore == nil {
		return nil
	}

	uid, err := uuid.Parse(identity.ID())
	if err != nil {
		return err
	}

	_, err = s.refreshStore.Replace(ctx, uid, refreshToken, time.Now().Add(s.refreshTTL))
	return err
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Error("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}

var _ Authenticator = (*Auther)(nil)
