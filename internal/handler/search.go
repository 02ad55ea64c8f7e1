package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jayg2309/bingekaro/internal/service"
	"github.com/jayg2309/bingekaro/internal/utils"
)

// SearchMedia 按标题搜索
func (h *Handler) SearchMedia(c *gin.Context) {
	page, err := h.Search.Search(c.Request.Context(), service.SearchQuery{
		Query: c.Query("q"),
		Type:  c.Query("type"),
		Page:  queryInt(c, "page", 1),
	})
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, page)
}

// MovieDetail 电影详情
func (h *Handler) MovieDetail(c *gin.Context) {
	m, err := h.Search.Movie(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, m)
}

// SeriesDetail 剧集详情
func (h *Handler) SeriesDetail(c *gin.Context) {
	m, err := h.Search.Series(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, m)
}

// PopularMovies 热门电影
func (h *Handler) PopularMovies(c *gin.Context) {
	h.mediaPage(c, h.Search.PopularMovies)
}

// PopularSeries 热门剧集
func (h *Handler) PopularSeries(c *gin.Context) {
	h.mediaPage(c, h.Search.PopularSeries)
}

// Anime 动画
func (h *Handler) Anime(c *gin.Context) {
	h.mediaPage(c, h.Search.Anime)
}

// Trending 趋势
func (h *Handler) Trending(c *gin.Context) {
	page, err := h.Search.Trending(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, page)
}

// Genres 类型目录
func (h *Handler) Genres(c *gin.Context) {
	genres, err := h.Search.Genres(c.Param("type"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, gin.H{"genres": genres})
}

// MediaRecommendations 按类型推荐相似条目
func (h *Handler) MediaRecommendations(c *gin.Context) {
	page, err := h.Search.Recommendations(c.Request.Context(), c.Param("type"), c.Param("id"), queryInt(c, "page", 1))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *Handler) mediaPage(c *gin.Context, fetch func(ctx context.Context, page int) (*service.MediaPage, error)) {
	page, err := fetch(c.Request.Context(), queryInt(c, "page", 1))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, page)
}
