package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jayg2309/bingekaro/internal/middleware"
	"github.com/jayg2309/bingekaro/internal/model"
	"github.com/jayg2309/bingekaro/internal/service"
	"github.com/jayg2309/bingekaro/internal/utils"
)

// Profile 本人资料
func (h *Handler) Profile(c *gin.Context) {
	h.Me(c)
}

// UpdateProfile 更新资料
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Users.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Profile updated successfully", gin.H{"user": user.Profile(h.resolve())})
}

// ChangePassword 修改密码
func (h *Handler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordInput
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Users.ChangePassword(c.Request.Context(), middleware.GetUserID(c), req); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Password updated successfully", nil)
}

// UploadAvatar 上传头像（multipart 字段 profilePicture）
func (h *Handler) UploadAvatar(c *gin.Context) {
	// 多读 1KB 给 multipart 头
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Config.MaxUploadBytes+1<<10)

	fh, err := c.FormFile("profilePicture")
	if err != nil {
		utils.BadRequest(c, "No file uploaded")
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.BadRequest(c, "No file uploaded")
		return
	}
	defer f.Close()

	user, err := h.Users.SetAvatar(c.Request.Context(), middleware.GetUserID(c), service.AvatarUpload{
		Body:        f,
		ContentType: strings.TrimSpace(strings.SplitN(fh.Header.Get("Content-Type"), ";", 2)[0]),
		Size:        fh.Size,
	})
	if err != nil {
		utils.FromError(c, err)
		return
	}
	profile := user.Profile(h.resolve())
	utils.SuccessWithMessage(c, "Profile picture uploaded successfully", gin.H{
		"profilePicture": profile.ProfilePicture,
		"user":           profile,
	})
}

// RemoveAvatar 移除头像
func (h *Handler) RemoveAvatar(c *gin.Context) {
	user, err := h.Users.RemoveAvatar(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Profile picture removed successfully", gin.H{"user": user.Profile(h.resolve())})
}

// DeactivateAccount 停用本人账号
func (h *Handler) DeactivateAccount(c *gin.Context) {
	if err := h.Users.Deactivate(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Account deactivated", nil)
}

// Favorites 全部收藏
func (h *Handler) Favorites(c *gin.Context) {
	favs, err := h.Users.Favorites(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, gin.H{"favorites": favs})
}

// favoriteKind 路由中的收藏分类
func favoriteKind(c *gin.Context) (model.FavoriteKind, bool) {
	kind, ok := model.ParseFavoriteKind(c.Param("kind"))
	if !ok {
		utils.NotFound(c, "Favorite category not found")
	}
	return kind, ok
}

// AddFavorite 添加收藏
func (h *Handler) AddFavorite(c *gin.Context) {
	kind, ok := favoriteKind(c)
	if !ok {
		return
	}
	var req service.FavoriteInput
	if !bindJSON(c, &req) {
		return
	}
	favs, err := h.Users.AddFavorite(c.Request.Context(), middleware.GetUserID(c), kind, req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Added to favorites", gin.H{"favorites": favs})
}

// RemoveFavorite 取消收藏
func (h *Handler) RemoveFavorite(c *gin.Context) {
	kind, ok := favoriteKind(c)
	if !ok {
		return
	}
	favs, err := h.Users.RemoveFavorite(c.Request.Context(), middleware.GetUserID(c), kind, c.Param("imdbId"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Removed from favorites", gin.H{"favorites": favs})
}
