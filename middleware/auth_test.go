package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitloop/checkin-api/utils"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/whoami", AuthRequired(), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "%d", CurrentUserID(ctx))
	})
	return r
}

func doGet(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredMissingHeader(t *testing.T) {
	r := newAuthRouter(t)
	w := doGet(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredMalformedHeader(t *testing.T) {
	r := newAuthRouter(t)

	for _, header := range []string{"Bearer", "Token abc", "Bearer "} {
		w := doGet(r, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuthRequiredInvalidToken(t *testing.T) {
	r := newAuthRouter(t)
	w := doGet(r, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredValidToken(t *testing.T) {
	r := newAuthRouter(t)

	token, err := utils.GenerateToken(42, "wechat", time.Hour)
	require.NoError(t, err)

	w := doGet(r, fmt.Sprintf("Bearer %s", token))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())
}

func TestAuthRequiredRevokedToken(t *testing.T) {
	r := newAuthRouter(t)

	token, err := utils.GenerateToken(7, "local", time.Hour)
	require.NoError(t, err)

	utils.BlacklistToken(token, time.Hour)
	w := doGet(r, fmt.Sprintf("Bearer %s", token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
