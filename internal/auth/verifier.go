package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/Odiabackend099/voxanne-console/internal/core/errors"
)

// Claims is the verified identity the console works with.
// OrgID comes exclusively from the admin-controlled app_metadata claim;
// user_metadata is writable by the end user and is never consulted.
type Claims struct {
	UserID string
	Email  string
	OrgID  string
	Token  string
}

// sessionClaims mirrors the auth provider's token layout. The provider
// signs both metadata namespaces, but only app_metadata is admin-set.
type sessionClaims struct {
	Email        string         `json:"email"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Config selects the verification mode: a static HS256 secret for
// self-issued tokens, or the provider's published JWK set.
type Config struct {
	Secret  string
	JWKSURL string
	Issuer  string
}

// Verifier validates bearer tokens and extracts console claims.
type Verifier struct {
	secret []byte
	jwks   *keyfunc.JWKS
	issuer string
}

// NewVerifier builds a Verifier for the configured mode. In JWKS mode the
// key set is fetched eagerly and refreshed in the background until Close.
func NewVerifier(cfg Config, logger *slog.Logger) (*Verifier, error) {
	v := &Verifier{issuer: cfg.Issuer}

	switch {
	case cfg.Secret != "":
		v.secret = []byte(cfg.Secret)
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshErrorHandler: func(err error) {
				logger.Warn("jwks background refresh failed", "error", err)
			},
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching jwk set: %w", err)
		}
		v.jwks = jwks
	default:
		return nil, errors.New("either a secret or a jwks url is required")
	}

	return v, nil
}

// Close stops the background JWKS refresh, if any.
func (v *Verifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Verify parses and validates the token string and extracts claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &sessionClaims{}

	var opts []jwt.ParserOption
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var token *jwt.Token
	var err error
	if v.secret != nil {
		token, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		}, opts...)
	} else {
		token, err = jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc, opts...)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	out := &Claims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Token:  tokenString,
	}
	if orgID, ok := claims.AppMetadata["org_id"].(string); ok {
		out.OrgID = orgID
	}

	return out, nil
}
