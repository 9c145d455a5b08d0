package auth

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/filmhub/go-auth/middleware/jwtware"
)

// Cookie names the browser app expects.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// SessionTransport moves token pairs in and out of HTTP cookies. Cookies are
// httpOnly and SameSite strict, the Secure flag follows config so local
// development over plain HTTP still works.
type SessionTransport struct {
	auth             Authenticator
	cfg              Config
	accessDuration   time.Duration
	refreshDuration  time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewSessionTransport(auther Authenticator, cfg Config) (*SessionTransport, error) {
	a := &SessionTransport{
		cfg:             cfg,
		auth:            auther,
		Logger:          defLogger{},
		accessDuration:  cfg.GetAccessTokenDuration(),
		refreshDuration: cfg.GetRefreshTokenDuration(),
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a SessionTransport) GetAccessCookieDuration() time.Duration {
	return a.accessDuration
}

func (a SessionTransport) GetRefreshCookieDuration() time.Duration {
	return a.refreshDuration
}

// ProtectedRoute guards a route with the access-token cookie.
func (a *SessionTransport) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	var validator jwtware.TokenValidator
	if provider, ok := a.auth.(interface{ TokenService() TokenService }); ok {
		validator = routeClaimsValidator{service: provider.TokenService()}
	}

	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: validator,
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetAccessSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:  cfg.GetAuthScheme(),
		ContextKey:  cfg.GetContextKey(),
		TokenLookup: cfg.GetTokenLookup(),
	})
}

// routeClaimsValidator bridges the token service into the middleware
// without an import cycle.
type routeClaimsValidator struct {
	service TokenService
}

func (v routeClaimsValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Login authenticates the payload and, on success, installs the session
// cookie pair.
func (a *SessionTransport) Login(ctx router.Context, payload LoginPayload) error {
	pair, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	a.SetSessionCookies(ctx, pair)
	return nil
}

// Refresh exchanges the refresh cookie for a new access cookie.
func (a *SessionTransport) Refresh(ctx router.Context) error {
	refresh := ctx.Cookies(RefreshTokenCookie)
	if refresh == "" {
		return ErrUnableToFindSession
	}

	access, err := a.auth.RotateAccess(ctx.Context(), refresh)
	if err != nil {
		a.Logger.Error("Refresh error: %s", err)
		return err
	}

	a.setCookie(ctx, AccessTokenCookie, access, a.accessDuration)
	return nil
}

// Logout revokes the persisted refresh session and clears both cookies.
func (a *SessionTransport) Logout(ctx router.Context) {
	if refresh := ctx.Cookies(RefreshTokenCookie); refresh != "" {
		if err := a.auth.Logout(ctx.Context(), refresh); err != nil {
			a.Logger.Error("Logout revoke error: %s", err)
		}
	}

	a.ClearSessionCookies(ctx)
}

// SetSessionCookies installs both token cookies.
func (a *SessionTransport) SetSessionCookies(ctx router.Context, pair *TokenPair) {
	a.setCookie(ctx, AccessTokenCookie, pair.AccessToken, a.accessDuration)
	a.setCookie(ctx, RefreshTokenCookie, pair.RefreshToken, a.refreshDuration)
}

// ClearSessionCookies expires both token cookies.
func (a *SessionTransport) ClearSessionCookies(ctx router.Context) {
	a.cookieDel(ctx, AccessTokenCookie)
	a.cookieDel(ctx, RefreshTokenCookie)
}

func (a *SessionTransport) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding: %s", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *SessionTransport) setCookie(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.cfg.GetSecureCookies(),
		SameSite: "Strict",
	})
}

func (a *SessionTransport) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetSecureCookies(),
		SameSite: "Strict",
	})
}

func (a *SessionTransport) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error: %s text_code=%s path=%s",
		richErr.Message,
		richErr.TextCode,
		c.OriginalURL(),
	)

	return c.JSON(richErr.Code, map[string]string{
		"message": richErr.Message,
	})
}

func (a *SessionTransport) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler: %s category=%s details=%s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.JSON(richErr.Code, map[string]string{
			"message": richErr.Message,
		})
	}
}
