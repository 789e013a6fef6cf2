package middleware

import (
	"strings"

	"byokchat/config"
	"byokchat/internal/core"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/pkg/response"
	"byokchat/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// Auth 驗證 session token（Bearer JWT，HS256）。
// 通過後把 core.Principal 放進 gin.Context，handler 顯式取出再傳給 service。
type Auth struct {
	logger *zap.Logger
	trace  *telemetry.Trace
	config *config.Configuration
}

func NewAuth(
	logger *zap.Logger,
	trace *telemetry.Trace,
	config *config.Configuration,
) *Auth {
	return &Auth{
		logger: logger,
		trace:  trace,
		config: config,
	}
}

func (m *Auth) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanAuthMiddleware))

		authorization := c.GetHeader("Authorization")
		if authorization == "" || !strings.HasPrefix(authorization, "Bearer ") {
			m.trace.ApplyTraceAttributes(span, core.TraceAuthMeta{Status: "missing_token"})
			cause := cErr.Unauthenticated("missing bearer token")
			response.AbortWithError(c, cause)
			end(cause)
			return
		}
		rawToken := strings.TrimPrefix(authorization, "Bearer ")

		claims := &core.SessionClaims{}
		token, parseError := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, cErr.Unauthenticated("unexpected signing method")
			}
			return []byte(m.config.App.SecretKey), nil
		})
		if parseError != nil || !token.Valid {
			m.trace.ApplyTraceAttributes(span, core.TraceAuthMeta{Status: "invalid_token"})
			cause := cErr.Unauthenticated("invalid session token")
			response.AbortWithError(c, cause)
			end(cause)
			return
		}
		if claims.Subject == "" {
			m.trace.ApplyTraceAttributes(span, core.TraceAuthMeta{Status: "missing_subject"})
			cause := cErr.Unauthenticated("session token missing subject")
			response.AbortWithError(c, cause)
			end(cause)
			return
		}

		principal := core.Principal{UserID: claims.Subject}
		c.Set(core.ContextPrincipalKey, principal)

		m.trace.ApplyTraceAttributes(span, core.TraceAuthMeta{
			Status: "ok",
			UserID: principal.UserID,
		})
		end(nil)
		c.Next()
	}
}

// PrincipalFromContext handler 取出已驗證主體；auth middleware 沒跑到就回 false
func PrincipalFromContext(c *gin.Context) (core.Principal, bool) {
	raw, exists := c.Get(core.ContextPrincipalKey)
	if !exists {
		return core.Principal{}, false
	}
	principal, ok := raw.(core.Principal)
	return principal, ok
}
