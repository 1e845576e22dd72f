// Package middleware holds the gin middleware of the dashboard API.
package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	headerAuth        = "Authorization"
	bearerPrefix      = "Bearer "
	unauthorizedError = "Unauthorized"
)

// CronSecretAuth rejects requests whose bearer token does not match secret.
// An empty secret disables the check.
func CronSecretAuth(secret string) gin.HandlerFunc {
	log := logger.Named("auth")

	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		token := extractBearer(c.Request)
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			log.Warn("Unauthorized cron request",
				zap.String("path", c.Request.URL.Path),
				zap.String("remote_addr", c.ClientIP()),
			)
			abortUnauthorized(c)
			return
		}

		c.Next()
	}
}

// SignedRequestAuth requires an HS256 JWT signed with signingKey on mutating
// requests. Reads pass through. An empty key disables the check.
func SignedRequestAuth(signingKey string) gin.HandlerFunc {
	log := logger.Named("auth")
	key := []byte(signingKey)

	return func(c *gin.Context) {
		if signingKey == "" || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		claims, err := ParseSignedToken(extractBearer(c.Request), key)
		if err != nil {
			log.Warn("Rejected orchestrator request",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			abortUnauthorized(c)
			return
		}

		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			c.Set("orchestrator_subject", sub)
		}
		c.Next()
	}
}

// ParseSignedToken verifies an HS256 token and returns its claims.
func ParseSignedToken(token string, key []byte) (jwt.MapClaims, error) {
	if token == "" {
		return nil, errors.New("missing token")
	}

	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("could not parse token: %w", err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !tok.Valid || !ok {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// SignToken signs claims with key using HS256.
func SignToken(claims jwt.MapClaims, key []byte) (string, error) {
	if len(key) == 0 {
		return "", errors.New("missing signing key")
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return signed, nil
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	}
	return ""
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Success: false,
		Error:   unauthorizedError,
	})
}
