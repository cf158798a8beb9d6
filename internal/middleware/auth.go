package middleware

import (
	"context"

	"go-gin-event-management/internal/auth"
	"go-gin-event-management/internal/model"
	"go-gin-event-management/internal/response"
	apperrors "go-gin-event-management/pkg/app_errors"

	"github.com/gin-gonic/gin"
)

const (
	userKey   = "auth.user"
	claimsKey = "auth.claims"
)

// Authenticator 驗證 access token 並回傳對應的使用者
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, *auth.Claims, error)
}

// Authenticate 先讀 cookie，沒有才看 Authorization: Bearer
func Authenticate(authenticator Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			response.Fail(c, apperrors.ErrUnauthorized)
			return
		}

		user, claims, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Fail(c, err)
			return
		}

		c.Set(userKey, user)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}
	token, err := auth.TokenFromHeader(c.GetHeader("Authorization"))
	if err != nil {
		return ""
	}
	return token
}

// RequireAdmin 必須掛在 Authenticate 之後
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Fail(c, apperrors.ErrUnauthorized)
			return
		}
		if !user.IsAdmin() {
			response.Fail(c, apperrors.ErrAdminRequired)
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}

func CurrentClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// SetCurrentUser 測試與內部流程使用
func SetCurrentUser(c *gin.Context, user *model.User, claims *auth.Claims) {
	c.Set(userKey, user)
	if claims != nil {
		c.Set(claimsKey, claims)
	}
}
