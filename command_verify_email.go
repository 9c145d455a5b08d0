package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Token      string `json:"token"`
	OnResponse func(r *VerifyEmailResponse)
}

func (e VerifyEmailMessage) Type() string { return "auth.email.verify" }

type VerifyEmailResponse struct {
	Found           bool   `json:"found"`
	AlreadyVerified bool   `json:"already_verified"`
	Verified        bool   `json:"verified"`
	Email           string `json:"email,omitempty"`
	UserID          string `json:"user_id,omitempty"`
}

type VerifyEmailHandler struct {
	repo   RepositoryManager
	hub    *Hub
	sink   ActivitySink
	logger Logger
}

func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:   repo,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

// WithHub wires the realtime hub so clients waiting on the signup page hear
// about the verification without polling.
func (h *VerifyEmailHandler) WithHub(hub *Hub) *VerifyEmailHandler {
	h.hub = hub
	return h
}

func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	resp := &VerifyEmailResponse{}
	var user *User

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByVerificationTokenTx(ctx, tx, event.Token)
		if err != nil {
			// token unknown or already consumed, expected flow
			if goerrors.Is(err, ErrVerificationTokenNotFound) || isNotFoundError(err) {
				resp.Found = false
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification token")
		}

		resp.Found = true

		if user.EmailVerified {
			resp.AlreadyVerified = true
			return nil
		}

		user, err = h.repo.Users().MarkVerifiedTx(ctx, tx, event.Token)
		if err != nil {
			// a concurrent verify consumed the token between lookup and update
			if goerrors.Is(err, ErrVerificationTokenNotFound) {
				resp.AlreadyVerified = true
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify email")
		}

		resp.Verified = true
		resp.Email = user.Email
		resp.UserID = user.ID.String()

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification failed")
	}

	if resp.Verified && user != nil {
		h.announce(ctx, user)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// announce pushes the verified event to waiters keyed by email (the signup
// page never had a user ID to subscribe with) and records the activity.
func (h *VerifyEmailHandler) announce(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventEmailVerified,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
		Metadata: map[string]any{
			"email": user.Email,
		},
	}

	if h.hub != nil {
		h.hub.Publish(user.Email, event)
	}

	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("activity sink record error: %v", err)
	}
}
