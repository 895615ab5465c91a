package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	apierrors "github.com/zwrong/Calendar-Agent/server/internal/errors"
)

const (
	// TokenIssuer is the issuer of API access tokens.
	TokenIssuer = "calendar-agent"
	// SubjectContextKey holds the authenticated token subject in the echo context.
	SubjectContextKey = "auth.subject"
)

// TokenAuth issues and verifies HS256 bearer tokens for the API.
type TokenAuth struct {
	secret []byte
	now    func() time.Time
}

func NewTokenAuth(secret string) *TokenAuth {
	return &TokenAuth{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for subject. A non-positive ttl issues a token that never expires.
func (a *TokenAuth) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Issuer:   TokenIssuer,
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of a token and returns its subject.
func (a *TokenAuth) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid "Authorization: Bearer" token with 401.
func (a *TokenAuth) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return unauthenticated(c, apierrors.Unauthenticated("missing bearer token", nil))
			}
			subject, err := a.Verify(strings.TrimSpace(token))
			if err != nil {
				return unauthenticated(c, apierrors.Unauthenticated("invalid bearer token", err))
			}
			c.Set(SubjectContextKey, subject)
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, err *apierrors.APIError) error {
	return c.JSON(http.StatusUnauthorized, map[string]any{
		"success": false,
		"code":    err.Code,
		"message": err.Message,
	})
}
