package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService mints and validates the two token classes. Access and refresh
// tokens are signed with independent keys so neither can stand in for the
// other even if the kind claim were stripped.
type TokenService interface {
	IssuePair(identity Identity) (*TokenPair, error)
	IssueAccess(identity Identity) (string, error)
	SignClaims(claims *JWTClaims, kind TokenKind) (string, error)
	Validate(tokenString string) (AuthClaims, error)
	ValidateRefresh(tokenString string) (AuthClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(config Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		accessKey:  []byte(config.GetAccessSigningKey()),
		refreshKey: []byte(config.GetRefreshSigningKey()),
		accessTTL:  config.GetAccessTokenDuration(),
		refreshTTL: config.GetRefreshTokenDuration(),
		issuer:     config.GetIssuer(),
		audience:   config.GetAudience(),
		logger:     logger,
	}
}

// IssuePair mints an access/refresh token pair for the identity
func (ts *TokenServiceImpl) IssuePair(identity Identity) (*TokenPair, error) {
	access, err := ts.IssueAccess(identity)
	if err != nil {
		return nil, err
	}

	refresh, err := ts.SignClaims(ts.newClaims(identity, TokenKindRefresh, ts.refreshTTL), TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess mints a short lived access token for the identity
func (ts *TokenServiceImpl) IssueAccess(identity Identity) (string, error) {
	return ts.SignClaims(ts.newClaims(identity, TokenKindAccess, ts.accessTTL), TokenKindAccess)
}

func (ts *TokenServiceImpl) newClaims(identity Identity, kind TokenKind, ttl time.Duration) *JWTClaims {
	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:       identity.ID(),
		TokenKind: kind,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

// SignClaims signs arbitrary JWT claims using the key for the given kind.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims, kind TokenKind) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	key, err := ts.keyFor(kind)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates an access token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	return ts.validate(tokenString, TokenKindAccess)
}

// ValidateRefresh parses and validates a refresh token string. Callers still
// need to check the token against the persisted refresh session before
// honoring it.
func (ts *TokenServiceImpl) ValidateRefresh(tokenString string) (AuthClaims, error) {
	return ts.validate(tokenString, TokenKindRefresh)
}

func (ts *TokenServiceImpl) validate(tokenString string, kind TokenKind) (AuthClaims, error) {
	key, err := ts.keyFor(kind)
	if err != nil {
		return nil, err
	}

	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrUnableToDecodeSession
	}

	if claims.TokenKind != kind {
		return nil, errors.New("unexpected token kind", errors.CategoryAuth).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithMetadata(map[string]any{"expected": kind, "got": claims.TokenKind})
	}

	return claims, nil
}

func (ts *TokenServiceImpl) keyFor(kind TokenKind) ([]byte, error) {
	switch kind {
	case TokenKindAccess:
		return ts.accessKey, nil
	case TokenKindRefresh:
		return ts.refreshKey, nil
	default:
		return nil, errors.New("unknown token kind: "+string(kind), errors.CategoryBadInput)
	}
}

func (ts *TokenServiceImpl) tokenDefaults() tokenDefaults {
	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	return tokenDefaults{
		issuer:   ts.issuer,
		audience: aud,
		ttl:      ts.accessTTL,
	}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims == nil || claims.ID != "" {
		return
	}
	claims.ID = uuid.NewString()
}
