package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RequestVerificationMessage struct {
	Email      string `json:"email"`
	OnResponse func(r *RequestVerificationResponse)
}

func (e RequestVerificationMessage) Type() string { return "auth.email.verification_request" }

type RequestVerificationResponse struct {
	Found           bool `json:"found"`
	AlreadyVerified bool `json:"already_verified"`
	Sent            bool `json:"sent"`
}

// RequestVerificationHandler regenerates the verification token and re-sends
// the email. The previous token stops working as soon as the new one lands.
type RequestVerificationHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
}

func NewRequestVerificationHandler(repo RepositoryManager, mailer Mailer) *RequestVerificationHandler {
	return &RequestVerificationHandler{
		repo:   repo,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (h *RequestVerificationHandler) WithLogger(logger Logger) *RequestVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestVerificationHandler) Execute(ctx context.Context, event RequestVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during verification request")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestVerificationHandler) execute(ctx context.Context, event RequestVerificationMessage) error {
	resp := &RequestVerificationResponse{}
	var user *User
	var token string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if isNotFoundError(err) {
				resp.Found = false
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for verification request")
		}

		resp.Found = true

		if user.EmailVerified {
			resp.AlreadyVerified = true
			return nil
		}

		token, err = NewVerificationToken()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification token")
		}

		if err := h.repo.Users().SetVerificationTokenTx(ctx, tx, user.ID, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification request failed")
	}

	if resp.Found && !resp.AlreadyVerified && token != "" {
		resp.Sent = h.send(ctx, user, token)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RequestVerificationHandler) send(ctx context.Context, user *User, token string) bool {
	if h.mailer == nil {
		return false
	}

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), MailTimeout)
	defer cancel()

	if err := h.mailer.SendVerificationEmail(mailCtx, user.Email, user.Name, token); err != nil {
		h.logger.Error("failed to re-send verification email to %s: %v", user.Email, err)
		return false
	}

	return true
}
