package middleware

import (
	"context"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	adapter "github.com/gwatts/gin-adapter"

	"github.com/berizaryad/maintenance-backend/internal/identity"
)

// JWTAuth validates the identity gateway's HS256 tokens on protected routes.
func JWTAuth(issuer, audience string, secret []byte) (gin.HandlerFunc, error) {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	v, err := validator.New(
		keyFunc,
		validator.HS256,
		issuer,
		[]string{audience},
		validator.WithAllowedClockSkew(30*time.Second),
	)
	if err != nil {
		return nil, err
	}

	mw := jwtmiddleware.New(v.ValidateToken)
	return adapter.Wrap(mw.CheckJWT), nil
}

// GetAccountID extracts the account identifier (sub claim) from the validated
// token in the request context.
func GetAccountID(c *gin.Context) (string, bool) {
	claims, ok := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok {
		return "", false
	}
	return claims.RegisteredClaims.Subject, true
}

// GetPhone derives the caller's phone key from the account identifier.
func GetPhone(c *gin.Context) (string, bool) {
	accountID, ok := GetAccountID(c)
	if !ok {
		return "", false
	}
	return identity.PhoneFromIdentifier(accountID), true
}
