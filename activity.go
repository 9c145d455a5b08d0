package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess  ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure  ActivityEventType = "auth.login.failure"
	ActivityEventLogout        ActivityEventType = "auth.logout"
	ActivityEventTokenRefresh  ActivityEventType = "auth.token.refresh"
	ActivityEventSignup        ActivityEventType = "auth.signup"
	ActivityEventEmailVerified ActivityEventType = "auth.email.verified"
	ActivityEventMovieSaved    ActivityEventType = "movie.saved"
	ActivityEventMovieRemoved  ActivityEventType = "movie.removed"
	ActivityEventMovieRated    ActivityEventType = "movie.rated"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action. Movie
// fields are only set for catalog events, auth events leave them empty.
type ActivityEvent struct {
	EventType  ActivityEventType `json:"event_type"`
	Actor      ActorRef          `json:"-"`
	UserID     string            `json:"user_id,omitempty"`
	MovieID    string            `json:"movie_id,omitempty"`
	MovieTitle string            `json:"movie_title,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// HubSink routes activity events into a Hub so connected clients see them in
// real time. Events with a UserID go to that user's subscriptions, the rest
// fan out to everyone.
type HubSink struct {
	hub *Hub
}

// NewHubSink creates an ActivitySink backed by the given Hub.
func NewHubSink(hub *Hub) *HubSink {
	return &HubSink{hub: hub}
}

// Record implements ActivitySink.
func (s *HubSink) Record(_ context.Context, event ActivityEvent) error {
	if s.hub == nil {
		return nil
	}

	if event.UserID != "" {
		s.hub.Publish(event.UserID, event)
		return nil
	}

	s.hub.Broadcast(event)
	return nil
}

var _ ActivitySink = (*HubSink)(nil)
