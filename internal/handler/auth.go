package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jayg2309/bingekaro/internal/middleware"
	"github.com/jayg2309/bingekaro/internal/service"
	"github.com/jayg2309/bingekaro/internal/utils"
)

func (h *Handler) sessionData(s *service.Session) gin.H {
	return gin.H{
		"user":      s.User.Profile(h.resolve()),
		"token":     s.Token,
		"expiresAt": s.ExpiresAt,
	}
}

// Register 注册
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.Users.Register(c.Request.Context(), req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "User registered successfully", h.sessionData(s))
}

// Login 登录
func (h *Handler) Login(c *gin.Context) {
	var req service.LoginInput
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.Users.Login(c.Request.Context(), req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Login successful", h.sessionData(s))
}

// Logout 令牌无状态，客户端丢弃即可
func (h *Handler) Logout(c *gin.Context) {
	utils.SuccessWithMessage(c, "Logout successful", nil)
}

// Me 当前用户
func (h *Handler) Me(c *gin.Context) {
	user, err := h.Users.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, gin.H{"user": user.Profile(h.resolve())})
}

// Refresh 签发新令牌
func (h *Handler) Refresh(c *gin.Context) {
	s, err := h.Users.Refresh(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Token refreshed successfully", gin.H{
		"token":     s.Token,
		"expiresAt": s.ExpiresAt,
	})
}

// CheckUsername 用户名是否可用
func (h *Handler) CheckUsername(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ok, err := h.Users.UsernameAvailable(c.Request.Context(), req.Username)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, gin.H{"available": ok})
}

// CheckEmail 邮箱是否可用
func (h *Handler) CheckEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ok, err := h.Users.EmailAvailable(c.Request.Context(), req.Email)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, gin.H{"available": ok})
}
