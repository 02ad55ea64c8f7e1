package handler

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jayg2309/bingekaro/internal/config"
	"github.com/jayg2309/bingekaro/internal/middleware"
	"github.com/jayg2309/bingekaro/internal/model"
	"github.com/jayg2309/bingekaro/internal/service"
	"github.com/jayg2309/bingekaro/internal/storage"
	"github.com/jayg2309/bingekaro/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Config  *config.Config
	Auth    *middleware.Authenticator
	Users   *service.UserService
	Lists   *service.ListService
	Access  *service.AccessEvaluator
	Search  *service.SearchService
	Avatars *storage.LocalAvatars
	Logger  *slog.Logger
}

// Deps 处理器依赖
type Deps struct {
	Config  *config.Config
	Auth    *middleware.Authenticator
	Users   *service.UserService
	Lists   *service.ListService
	Access  *service.AccessEvaluator
	Search  *service.SearchService
	Avatars *storage.LocalAvatars
	Logger  *slog.Logger
}

// NewHandler 创建处理器
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Config:  d.Config,
		Auth:    d.Auth,
		Users:   d.Users,
		Lists:   d.Lists,
		Access:  d.Access,
		Search:  d.Search,
		Avatars: d.Avatars,
		Logger:  logger,
	}
}

// resolve 头像文件名转 URL
func (h *Handler) resolve() model.URLResolver {
	return h.Users.ResolveAvatar
}

// bindJSON 解析请求体；只负责形状，字段规则由服务层校验
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return false
	}
	return true
}

// listID 解析路由中的列表 ID；格式不对按不存在处理
func listID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.NotFound(c, "Recommendation list not found")
		return 0, false
	}
	return uint(id), true
}

// queryInt 读取整数查询参数，缺省或非法时返回默认值
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// pagination 分页信息
func pagination(page, limit int, total int64) gin.H {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return gin.H{
		"page":  page,
		"limit": limit,
		"total": total,
		"pages": pages,
	}
}

// summaries 列表摘要
func (h *Handler) summaries(lists []model.RecommendationList, requester uint) []model.ListSummary {
	out := make([]model.ListSummary, 0, len(lists))
	for i := range lists {
		out = append(out, lists[i].Summary(requester, h.resolve()))
	}
	return out
}
