package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// MailTimeout bounds how long command handlers wait on email delivery.
var MailTimeout = 5 * time.Second

type SignupMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(r *SignupResponse)
}

func (e SignupMessage) Type() string { return "auth.signup" }

type SignupResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type SignupHandler struct {
	repo   RepositoryManager
	mailer Mailer
	sink   ActivitySink
	logger Logger
}

func NewSignupHandler(repo RepositoryManager, mailer Mailer) *SignupHandler {
	return &SignupHandler{
		repo:   repo,
		mailer: mailer,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (h *SignupHandler) WithActivitySink(sink ActivitySink) *SignupHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		token, err := NewVerificationToken()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification token")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Name = event.Name
		user.EmailVerified = false
		user.VerificationToken = &token

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	h.sendVerification(ctx, user)

	h.recordSignup(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&SignupResponse{
			UserID: user.ID.String(),
			Email:  user.Email,
		})
	}

	return nil
}

// sendVerification delivers the verification email best effort. The account
// exists either way, the user can re-request delivery.
func (h *SignupHandler) sendVerification(ctx context.Context, user *User) {
	if h.mailer == nil || user.VerificationToken == nil {
		return
	}

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), MailTimeout)
	defer cancel()

	if err := h.mailer.SendVerificationEmail(mailCtx, user.Email, user.Name, *user.VerificationToken); err != nil {
		h.logger.Error("failed to send verification email to %s: %v", user.Email, err)
	}
}

func (h *SignupHandler) recordSignup(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventSignup,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("activity sink record error: %v", err)
	}
}
