package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

const verifiedEmailPage = `<html>
  <body>
    <h1>Email verified successfully!</h1>
    <p>You can now log in to your account.</p>
  </body>
</html>`

func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	val := c.Locals(key)
	if val == nil {
		return nil, ErrUnableToFindSession
	}

	switch v := val.(type) {
	case AuthClaims:
		return sessionFromAuthClaims(v)
	case *jwt.Token:
		claims, ok := v.Claims.(jwt.MapClaims)
		if claims == nil || !ok {
			return nil, ErrUnableToMapClaims
		}
		return sessionFromClaims(claims)
	}

	return nil, ErrUnableToDecodeSession
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Post(controller.Routes.Signup, controller.SignupPost).
		SetName("signup.post")

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("login.post")

	app.
		Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("refresh.post")

	app.
		Get(fmt.Sprintf("%s/:token", controller.Routes.VerifyEmail), controller.VerifyEmailGet).
		SetName("verify-email.get")

	app.
		Get(fmt.Sprintf("%s/:email", controller.Routes.CheckVerification), controller.CheckVerificationGet).
		SetName("check-verification.get")

	app.
		Get(controller.Routes.Check, controller.CheckGet).
		SetName("check.get")

	app.
		Post(controller.Routes.Signout, controller.SignoutPost).
		SetName("signout.post")
}

type AuthControllerRoutes struct {
	Signup            string
	Login             string
	Refresh           string
	VerifyEmail       string
	CheckVerification string
	Check             string
	Signout           string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Transport    *SessionTransport
	Auther       Authenticator
	Mailer       Mailer
	Hub          *Hub
	Sink         ActivitySink
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Signup:            "/signup",
			Login:             "/login",
			Refresh:           "/refresh",
			VerifyEmail:       "/verify-email",
			CheckVerification: "/check-verification",
			Check:             "/check",
			Signout:           "/signout",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Transport == nil {
		panic("Missing SessionTransport in auth controller...")
	}

	return c
}

// WithControllerRepo sets the repository manager.
func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

// WithControllerAuther sets the authenticator.
func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

// WithControllerTransport sets the cookie transport.
func WithControllerTransport(transport *SessionTransport) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Transport = transport
		return c
	}
}

// WithControllerMailer sets the verification mailer.
func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

// WithControllerHub sets the realtime hub.
func WithControllerHub(hub *Hub) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Hub = hub
		return c
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// SignupPayload is the signup request body
type SignupPayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AuthController) SignupPost(ctx router.Context) error {
	payload := new(SignupPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]string{
			"message": "Error parsing body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("signup validate payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH SIGNUP ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("==========================")
	}

	req := SignupMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	}

	signup := NewSignupHandler(a.Repo, a.Mailer).
		WithActivitySink(a.Sink).
		WithLogger(a.Logger)

	if err := signup.Execute(ctx.Context(), req); err != nil {
		if goerrors.Is(err, ErrDuplicateUser) {
			return ctx.JSON(fiber.StatusBadRequest, map[string]string{
				"message": "User already exists",
			})
		}

		a.Logger.Error("signup execute error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]string{
		"message": "Signup successful. Please check your email for verification.",
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]string{
			"message": "Error parsing body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, map[string]string{
			"message": "Invalid email or password",
		})
	}

	if err := a.Transport.Login(ctx, payload); err != nil {
		if goerrors.Is(err, ErrEmailNotVerified) {
			a.resendVerification(ctx, payload.Email)
			return ctx.JSON(fiber.StatusForbidden, map[string]string{
				"message": "Email not verified. A verification email has been sent to you.",
			})
		}

		if goerrors.Is(err, ErrInvalidCredentials) || goerrors.Is(err, ErrIdentityNotFound) {
			return ctx.JSON(fiber.StatusBadRequest, map[string]string{
				"message": "Invalid email or password",
			})
		}

		a.Logger.Error("login error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]string{
		"message": "Login successful",
	})
}

// resendVerification regenerates the token and re-sends the email after a
// login attempt on an unverified account. Failures are logged, the 403 goes
// out either way.
func (a *AuthController) resendVerification(ctx router.Context, email string) {
	req := RequestVerificationMessage{Email: email}

	handler := NewRequestVerificationHandler(a.Repo, a.Mailer).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("failed to re-send verification for %s: %v", email, err)
	}
}

func (a *AuthController) RefreshPost(ctx router.Context) error {
	if ctx.Cookies(RefreshTokenCookie) == "" {
		return ctx.JSON(fiber.StatusUnauthorized, map[string]string{
			"message": "Refresh token not found",
		})
	}

	if err := a.Transport.Refresh(ctx); err != nil {
		if goerrors.Is(err, ErrIdentityNotFound) || goerrors.Is(err, ErrUserNotFound) {
			return ctx.JSON(fiber.StatusForbidden, map[string]string{
				"message": "User not found",
			})
		}

		return ctx.JSON(fiber.StatusForbidden, map[string]string{
			"message": "Invalid refresh token",
		})
	}

	return ctx.JSON(fiber.StatusOK, map[string]string{
		"message": "Access token refreshed",
	})
}

func (a *AuthController) VerifyEmailGet(ctx router.Context) error {
	token := ctx.Param("token", "")

	var resp *VerifyEmailResponse
	req := VerifyEmailMessage{
		Token: token,
		OnResponse: func(r *VerifyEmailResponse) {
			resp = r
		},
	}

	verify := NewVerifyEmailHandler(a.Repo).
		WithHub(a.Hub).
		WithActivitySink(a.Sink).
		WithLogger(a.Logger)

	if err := verify.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("verify email error: %v", err)
		return ctx.JSON(fiber.StatusInternalServerError, map[string]string{
			"message": "Internal Server Error",
		})
	}

	if !resp.Found {
		return ctx.JSON(fiber.StatusNotFound, map[string]string{
			"message": "Invalid or expired verification token",
		})
	}

	if resp.AlreadyVerified {
		return ctx.JSON(fiber.StatusBadRequest, map[string]string{
			"message": "Email is already verified",
		})
	}

	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	return ctx.Status(fiber.StatusOK).SendString(verifiedEmailPage)
}

func (a *AuthController) CheckVerificationGet(ctx router.Context) error {
	email := ctx.Param("email", "")

	checker := NewVerificationChecker(a.Repo.Users())
	status, err := checker.CheckStatus(ctx.Context(), email)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return ctx.JSON(fiber.StatusNotFound, map[string]string{
				"message": "User not found",
			})
		}

		a.Logger.Error("check verification error: %v", err)
		return ctx.JSON(fiber.StatusInternalServerError, map[string]string{
			"message": "Internal Server Error",
		})
	}

	return ctx.JSON(fiber.StatusOK, status)
}

func (a *AuthController) CheckGet(ctx router.Context) error {
	token := ctx.Cookies(AccessTokenCookie)
	if token == "" {
		return ctx.JSON(fiber.StatusUnauthorized, map[string]string{
			"message": "Access token not found",
		})
	}

	session, err := a.Auther.SessionFromToken(token)
	if err != nil {
		if IsTokenExpiredError(err) {
			return ctx.JSON(fiber.StatusUnauthorized, map[string]string{
				"message": "Access token expired",
			})
		}
		return ctx.JSON(fiber.StatusForbidden, map[string]string{
			"message": "Invalid access token",
		})
	}

	identity, err := a.Auther.IdentityFromSession(ctx.Context(), session)
	if err != nil {
		return ctx.JSON(fiber.StatusForbidden, map[string]string{
			"message": "User not found",
		})
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"message": "Authenticated",
		"user": map[string]string{
			"id":    identity.ID(),
			"name":  identity.Name(),
			"email": identity.Email(),
		},
	})
}

func (a *AuthController) SignoutPost(ctx router.Context) error {
	a.Transport.Logout(ctx)

	return ctx.JSON(fiber.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	if errs, ok := err.(validation.Errors); ok {
		for field, ferr := range errs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	if err != nil {
		out["error"] = err.Error()
	}

	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.JSON(fiber.StatusInternalServerError, map[string]string{
		"message": err.Error(),
	})
}
