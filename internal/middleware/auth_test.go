package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"byokchat/config"
	"byokchat/internal/core"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecretKey = "unit-test-secret"

func newTestAuth(t *testing.T) *Auth {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conf := &config.Configuration{}
	conf.App.SecretKey = testSecretKey
	trace, err := telemetry.NewTrace(nil)
	require.NoError(t, err)
	return NewAuth(zap.NewNop(), trace, conf)
}

func signToken(t *testing.T, secret string, claims *core.SessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func runAuth(auth *Auth, authorization string) *gin.Context {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/keys", nil)
	if authorization != "" {
		c.Request.Header.Set("Authorization", authorization)
	}
	auth.Handler()(c)
	return c
}

func TestAuth_ValidTokenSetsPrincipal(t *testing.T) {
	auth := newTestAuth(t)
	token := signToken(t, testSecretKey, &core.SessionClaims{
		Email: "dev@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	c := runAuth(auth, "Bearer "+token)

	assert.False(t, c.IsAborted())
	principal, ok := PrincipalFromContext(c)
	require.True(t, ok)
	assert.Equal(t, "user-42", principal.UserID)
}

func TestAuth_MissingHeaderAborts(t *testing.T) {
	auth := newTestAuth(t)

	c := runAuth(auth, "")

	assert.True(t, c.IsAborted())
	_, ok := PrincipalFromContext(c)
	assert.False(t, ok)
	require.NotEmpty(t, c.Errors)
	assert.Equal(t, cErr.UNAUTHENTICATED, cErr.From(c.Errors.Last().Err).ErrorCode())
}

func TestAuth_WrongSchemeAborts(t *testing.T) {
	auth := newTestAuth(t)

	c := runAuth(auth, "Basic dXNlcjpwYXNz")

	assert.True(t, c.IsAborted())
}

func TestAuth_WrongSecretRejected(t *testing.T) {
	auth := newTestAuth(t)
	token := signToken(t, "some-other-secret", &core.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	c := runAuth(auth, "Bearer "+token)

	assert.True(t, c.IsAborted())
	_, ok := PrincipalFromContext(c)
	assert.False(t, ok)
}

func TestAuth_ExpiredTokenRejected(t *testing.T) {
	auth := newTestAuth(t)
	token := signToken(t, testSecretKey, &core.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	c := runAuth(auth, "Bearer "+token)

	assert.True(t, c.IsAborted())
}

func TestAuth_MissingSubjectRejected(t *testing.T) {
	auth := newTestAuth(t)
	token := signToken(t, testSecretKey, &core.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	c := runAuth(auth, "Bearer "+token)

	assert.True(t, c.IsAborted())
}
