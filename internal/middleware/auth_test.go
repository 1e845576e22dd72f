package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) }
	r.GET("/api/cron", ok)
	r.GET("/api/inngest", ok)
	r.PUT("/api/inngest", ok)
	r.POST("/api/inngest", ok)
	return r
}

func serve(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCronSecretAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		secret     string
		auth       string
		wantStatus int
	}{
		{name: "no secret configured", secret: "", auth: "", wantStatus: http.StatusOK},
		{name: "matching bearer", secret: "s3cret", auth: "Bearer s3cret", wantStatus: http.StatusOK},
		{name: "missing header", secret: "s3cret", auth: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", secret: "s3cret", auth: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", secret: "s3cret", auth: "Basic s3cret", wantStatus: http.StatusUnauthorized},
		{name: "prefix of secret", secret: "s3cret", auth: "Bearer s3c", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(newRouter(CronSecretAuth(tt.secret)), http.MethodGet, "/api/cron", tt.auth)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusUnauthorized {
				var resp models.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.False(t, resp.Success)
				assert.Equal(t, "Unauthorized", resp.Error)
			}
		})
	}
}

func TestSignedRequestAuth(t *testing.T) {
	t.Parallel()

	key := []byte("signkey-test")
	valid, err := SignToken(jwt.MapClaims{"sub": "orchestrator", "exp": time.Now().Add(time.Hour).Unix()}, key)
	require.NoError(t, err)
	expired, err := SignToken(jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}, key)
	require.NoError(t, err)
	otherKey, err := SignToken(jwt.MapClaims{"sub": "x"}, []byte("other"))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name       string
		key        string
		method     string
		auth       string
		wantStatus int
	}{
		{name: "no key configured", key: "", method: http.MethodPost, wantStatus: http.StatusOK},
		{name: "get is open", key: string(key), method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "valid post", key: string(key), method: http.MethodPost, auth: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "valid put", key: string(key), method: http.MethodPut, auth: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "missing token", key: string(key), method: http.MethodPost, wantStatus: http.StatusUnauthorized},
		{name: "expired", key: string(key), method: http.MethodPost, auth: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "wrong key", key: string(key), method: http.MethodPut, auth: "Bearer " + otherKey, wantStatus: http.StatusUnauthorized},
		{name: "alg none", key: string(key), method: http.MethodPost, auth: "Bearer " + unsigned, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(newRouter(SignedRequestAuth(tt.key)), tt.method, "/api/inngest", tt.auth)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestSignToken_MissingKey(t *testing.T) {
	t.Parallel()

	_, err := SignToken(jwt.MapClaims{}, nil)
	assert.Error(t, err)
}

func TestParseSignedToken(t *testing.T) {
	t.Parallel()

	key := []byte("k")
	token, err := SignToken(jwt.MapClaims{"sub": "worker"}, key)
	require.NoError(t, err)

	claims, err := ParseSignedToken(token, key)
	require.NoError(t, err)
	assert.Equal(t, "worker", claims["sub"])

	_, err = ParseSignedToken("", key)
	assert.Error(t, err)

	_, err = ParseSignedToken("not.a.token", key)
	assert.Error(t, err)
}
