package auth

import "time"

// SimpleConfig is a plain struct implementation of Config. Zero values fall
// back to defaults via the getters so callers only set what they need.
type SimpleConfig struct {
	AccessSigningKey     string
	RefreshSigningKey    string
	SigningMethod        string
	ContextKey           string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	TokenLookup          string
	AuthScheme           string
	Issuer               string
	Audience             []string
	SecureCookies        bool
	BaseURL              string
}

func (c *SimpleConfig) GetAccessSigningKey() string  { return c.AccessSigningKey }
func (c *SimpleConfig) GetRefreshSigningKey() string { return c.RefreshSigningKey }

func (c *SimpleConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return "HS256"
	}
	return c.SigningMethod
}

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c *SimpleConfig) GetAccessTokenDuration() time.Duration {
	if c.AccessTokenDuration == 0 {
		return 15 * time.Minute
	}
	return c.AccessTokenDuration
}

func (c *SimpleConfig) GetRefreshTokenDuration() time.Duration {
	if c.RefreshTokenDuration == 0 {
		return 7 * 24 * time.Hour
	}
	return c.RefreshTokenDuration
}

func (c *SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "cookie:" + AccessTokenCookie
	}
	return c.TokenLookup
}

func (c *SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c *SimpleConfig) GetIssuer() string {
	if c.Issuer == "" {
		return "filmhub"
	}
	return c.Issuer
}

func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetSecureCookies() bool { return c.SecureCookies }

func (c *SimpleConfig) GetBaseURL() string {
	if c.BaseURL == "" {
		return "http://localhost:3000"
	}
	return c.BaseURL
}
