package router

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/jayg2309/bingekaro/internal/handler"
	"github.com/jayg2309/bingekaro/internal/middleware"
	"github.com/jayg2309/bingekaro/internal/utils"
)

// New 创建 Gin 引擎并挂载中间件和路由
func New(h *handler.Handler, limiter middleware.Limiter) *gin.Engine {
	if h.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	// 只信任配置的代理转发的 X-Forwarded-For，默认一个都不信任
	if err := r.SetTrustedProxies(h.Config.TrustedProxies); err != nil {
		h.Logger.Warn("可信代理配置无效，忽略转发头", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.Use(middleware.Logger(h.Logger))
	r.Use(middleware.Security())
	r.Use(middleware.CORS(h.Config.CORSOrigins))

	// 头像静态文件
	if h.Avatars != nil {
		r.Static(h.Avatars.Prefix(), h.Avatars.Dir())
	}

	RegisterRoutes(r, h, limiter)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler, limiter middleware.Limiter) {
	r.NoRoute(func(c *gin.Context) {
		utils.NotFound(c, "Route not found")
	})

	api := r.Group("/api")

	// 健康检查
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if limiter != nil {
		api.Use(middleware.RateLimit(limiter, h.Config.RateLimitMax, "api", "", h.Logger))
	}

	required := h.Auth.Required()
	optional := h.Auth.Optional()

	// ==================== 认证 ====================
	auth := api.Group("/auth")
	{
		register := []gin.HandlerFunc{h.Register}
		login := []gin.HandlerFunc{h.Login}
		if limiter != nil {
			strict := middleware.RateLimit(limiter, h.Config.LoginRateLimitMax, "auth", "Too many login attempts, please try again later.", h.Logger)
			register = append([]gin.HandlerFunc{strict}, register...)
			login = append([]gin.HandlerFunc{strict}, login...)
		}
		auth.POST("/register", register...)
		auth.POST("/login", login...)
		auth.POST("/logout", required, h.Logout)
		auth.GET("/me", required, h.Me)
		auth.POST("/refresh", required, h.Refresh)
		auth.POST("/check-username", h.CheckUsername)
		auth.POST("/check-email", h.CheckEmail)
	}

	// ==================== 用户（需要登录）====================
	users := api.Group("/users")
	users.Use(required)
	{
		users.GET("/profile", h.Profile)
		users.PUT("/profile", h.UpdateProfile)
		users.PUT("/password", h.ChangePassword)
		users.POST("/profile-picture", h.UploadAvatar)
		users.DELETE("/profile-picture", h.RemoveAvatar)
		users.DELETE("/account", h.DeactivateAccount)
		users.GET("/favorites", h.Favorites)
		users.POST("/favorites/:kind", h.AddFavorite)
		users.DELETE("/favorites/:kind/:imdbId", h.RemoveFavorite)
	}

	// ==================== 媒体搜索 ====================
	search := api.Group("/search")
	search.Use(optional)
	{
		search.GET("", h.SearchMedia)
		search.GET("/movies/:id", h.MovieDetail)
		search.GET("/tv/:id", h.SeriesDetail)
		search.GET("/popular/movies", h.PopularMovies)
		search.GET("/popular/tv", h.PopularSeries)
		search.GET("/anime", h.Anime)
		search.GET("/trending", h.Trending)
		search.GET("/genres/:type", h.Genres)
		search.GET("/recommendations/:type/:id", h.MediaRecommendations)
	}

	// ==================== 推荐列表 ====================
	lists := api.Group("/recommendations")
	{
		lists.POST("", required, h.CreateList)
		lists.GET("", required, h.MyLists)
		lists.GET("/public", optional, h.PublicLists)
		lists.GET("/search", optional, h.SearchLists)
		lists.GET("/user/:username", optional, h.UserLists)
		lists.GET("/:id", optional, h.GetList)
		lists.PUT("/:id", required, h.UpdateList)
		lists.DELETE("/:id", required, h.DeleteList)
		lists.POST("/:id/items", required, h.AddListItem)
		lists.DELETE("/:id/items/:itemId", required, h.RemoveListItem)
		lists.POST("/:id/like", required, h.LikeList)
	}
}
