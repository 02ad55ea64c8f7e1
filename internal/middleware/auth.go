package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jayg2309/bingekaro/internal/apperr"
	"github.com/jayg2309/bingekaro/internal/model"
	"github.com/jayg2309/bingekaro/internal/token"
	"github.com/jayg2309/bingekaro/internal/utils"
)

const userIDKey = "user_id"

// TokenValidator 校验访问令牌
type TokenValidator interface {
	Validate(tokenString string) (uint, error)
}

// UserResolver 确认令牌对应的账号仍然有效
type UserResolver interface {
	ActiveUser(ctx context.Context, userID uint) (*model.User, error)
}

// Authenticator 基于 Bearer 令牌的认证中间件
type Authenticator struct {
	tokens TokenValidator
	users  UserResolver
	logger *slog.Logger
}

// NewAuthenticator 创建认证中间件
func NewAuthenticator(tokens TokenValidator, users UserResolver, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{tokens: tokens, users: users, logger: logger}
}

// Required 必须登录中间件
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			utils.Unauthorized(c, "Not authorized, no token")
			return
		}
		userID, err := a.tokens.Validate(raw)
		if err != nil {
			msg := "Not authorized, token failed"
			if errors.Is(err, token.ErrExpired) {
				msg = "Not authorized, token expired"
			}
			utils.Unauthorized(c, msg)
			return
		}
		if _, err := a.users.ActiveUser(c.Request.Context(), userID); err != nil {
			utils.FromError(c, err)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// Optional 可选登录中间件，令牌无效时按匿名用户处理
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.Next()
			return
		}
		userID, err := a.tokens.Validate(raw)
		if err != nil {
			c.Next()
			return
		}
		if _, err := a.users.ActiveUser(c.Request.Context(), userID); err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				a.logger.Warn("可选认证查询用户失败", "user_id", userID, "error", err)
			}
			c.Next()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// bearerToken 只接受 Authorization 头
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// GetUserID 从上下文获取用户 ID（未登录返回 0）
func GetUserID(c *gin.Context) uint {
	if userID, exists := c.Get(userIDKey); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}
