package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jayg2309/bingekaro/internal/middleware"
	"github.com/jayg2309/bingekaro/internal/model"
	"github.com/jayg2309/bingekaro/internal/service"
	"github.com/jayg2309/bingekaro/internal/utils"
)

func (h *Handler) listData(l *model.RecommendationList, requester uint) gin.H {
	return gin.H{"list": l.View(requester, h.resolve())}
}

// CreateList 创建列表
func (h *Handler) CreateList(c *gin.Context) {
	var req service.CreateListInput
	if !bindJSON(c, &req) {
		return
	}
	userID := middleware.GetUserID(c)
	list, err := h.Lists.Create(c.Request.Context(), userID, req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "Recommendation list created successfully", h.listData(list, userID))
}

// MyLists 本人的列表
func (h *Handler) MyLists(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, err := h.Lists.MyLists(c.Request.Context(), userID, queryInt(c, "page", 1), queryInt(c, "limit", 0))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"lists":      h.summaries(page.Lists, userID),
		"pagination": pagination(page.Page, page.Limit, page.Total),
	})
}

// PublicLists 浏览公开列表
func (h *Handler) PublicLists(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, err := h.Lists.Public(c.Request.Context(), userID, queryInt(c, "page", 1), queryInt(c, "limit", 0))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"lists":      h.summaries(page.Lists, userID),
		"pagination": pagination(page.Page, page.Limit, page.Total),
	})
}

// SearchLists 关键字搜索公开列表
func (h *Handler) SearchLists(c *gin.Context) {
	userID := middleware.GetUserID(c)
	lists, err := h.Lists.Search(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, gin.H{"lists": h.summaries(lists, userID)})
}

// UserLists 用户主页上的列表
func (h *Handler) UserLists(c *gin.Context) {
	profile, err := h.Lists.ByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"user":  profile.User.Summary(h.resolve()),
		"lists": h.summaries(profile.Lists, middleware.GetUserID(c)),
	})
}

// GetList 读取单个列表；私有列表的密码通过 ?password= 传入
func (h *Handler) GetList(c *gin.Context) {
	id, ok := listID(c)
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)
	opened, err := h.Access.Open(c.Request.Context(), service.OpenRequest{
		Requester: userID,
		ListID:    id,
		Secret:    c.Query("password"),
		Client:    c.ClientIP(),
	})
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, h.listData(opened.List, userID))
}

// UpdateList 修改列表
func (h *Handler) UpdateList(c *gin.Context) {
	id, ok := listID(c)
	if !ok {
		return
	}
	var req service.UpdateListInput
	if !bindJSON(c, &req) {
		return
	}
	userID := middleware.GetUserID(c)
	list, err := h.Lists.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Recommendation list updated successfully", h.listData(list, userID))
}

// DeleteList 删除列表
func (h *Handler) DeleteList(c *gin.Context) {
	id, ok := listID(c)
	if !ok {
		return
	}
	if err := h.Lists.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Recommendation list deleted successfully", nil)
}

// AddListItem 添加条目
func (h *Handler) AddListItem(c *gin.Context) {
	id, ok := listID(c)
	if !ok {
		return
	}
	var req service.AddItemInput
	if !bindJSON(c, &req) {
		return
	}
	userID := middleware.GetUserID(c)
	list, err := h.Lists.AddItem(c.Request.Context(), userID, id, req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Item added to recommendation list", h.listData(list, userID))
}

// RemoveListItem 删除条目
func (h *Handler) RemoveListItem(c *gin.Context) {
	id, ok := listID(c)
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)
	list, err := h.Lists.RemoveItem(c.Request.Context(), userID, id, c.Param("itemId"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Item removed from recommendation list", h.listData(list, userID))
}

// LikeList 点赞
func (h *Handler) LikeList(c *gin.Context) {
	id, ok := listID(c)
	if !ok {
		return
	}
	count, err := h.Lists.Like(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "List liked successfully", gin.H{"likeCount": count})
}
