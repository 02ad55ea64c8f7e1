package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jayg2309/bingekaro/internal/apperr"
	"github.com/jayg2309/bingekaro/internal/omdb"
)

// Catalog 媒体元数据提供方
type Catalog interface {
	SearchByTitle(ctx context.Context, query, mediaType string, page int) (*omdb.SearchPage, error)
	GetByID(ctx context.Context, imdbID string) (*omdb.Detail, error)
}

// Media 统一的媒体条目输出
type Media struct {
	ImdbID       string   `json:"imdbId"`
	Title        string   `json:"title"`
	Year         string   `json:"year,omitempty"`
	MediaType    string   `json:"mediaType"`
	Type         string   `json:"type,omitempty"`
	PosterPath   string   `json:"posterPath,omitempty"`
	Overview     string   `json:"overview,omitempty"`
	Genre        []string `json:"genre"`
	Rating       *float64 `json:"rating,omitempty"`
	Runtime      string   `json:"runtime,omitempty"`
	Director     string   `json:"director,omitempty"`
	Actors       []string `json:"actors,omitempty"`
	Language     string   `json:"language,omitempty"`
	Country      string   `json:"country,omitempty"`
	Awards       string   `json:"awards,omitempty"`
	Metascore    string   `json:"metascore,omitempty"`
	TotalSeasons string   `json:"totalSeasons,omitempty"`
	BoxOffice    string   `json:"boxOffice,omitempty"`
	Production   string   `json:"production,omitempty"`
	Website      string   `json:"website,omitempty"`
}

// MediaPage 一页媒体结果
type MediaPage struct {
	Results      []Media `json:"results"`
	Page         int     `json:"page"`
	TotalPages   int     `json:"totalPages"`
	TotalResults int     `json:"totalResults"`
}

// Genre 类型目录条目
type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OMDb 没有类型目录接口，使用固定列表
var genreNames = []string{
	"Action", "Adventure", "Animation", "Biography", "Comedy", "Crime",
	"Documentary", "Drama", "Family", "Fantasy", "Film-Noir", "Game-Show",
	"History", "Horror", "Music", "Musical", "Mystery", "News", "Reality-TV",
	"Romance", "Sci-Fi", "Sport", "Talk-Show", "Thriller", "War", "Western",
}

// SearchService 媒体搜索网关
type SearchService struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewSearchService 创建搜索服务；catalog 为 nil 时所有查询返回 UpstreamUnavailable
func NewSearchService(catalog Catalog, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{catalog: catalog, logger: logger}
}

// SearchQuery 搜索参数
type SearchQuery struct {
	Query string `json:"q" validate:"required,max=200"`
	Type  string `json:"type" validate:"omitempty,oneof=movie series episode"`
	Page  int    `json:"page" validate:"min=1,max=100"`
}

// Search 按标题搜索
func (s *SearchService) Search(ctx context.Context, q SearchQuery) (*MediaPage, error) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Page == 0 {
		q.Page = 1
	}
	if err := validateStruct(q); err != nil {
		return nil, err
	}
	return s.search(ctx, q.Query, q.Type, q.Page, "")
}

// Movie 电影详情
func (s *SearchService) Movie(ctx context.Context, imdbID string) (*Media, error) {
	return s.detail(ctx, imdbID, "movie")
}

// Series 剧集详情
func (s *SearchService) Series(ctx context.Context, imdbID string) (*Media, error) {
	return s.detail(ctx, imdbID, "series")
}

// PopularMovies 热门电影（固定关键字搜索）
func (s *SearchService) PopularMovies(ctx context.Context, page int) (*MediaPage, error) {
	return s.fixed(ctx, "movie", "movie", page, "movie")
}

// PopularSeries 热门剧集
func (s *SearchService) PopularSeries(ctx context.Context, page int) (*MediaPage, error) {
	return s.fixed(ctx, "series", "series", page, "series")
}

// Anime 动画
func (s *SearchService) Anime(ctx context.Context, page int) (*MediaPage, error) {
	return s.fixed(ctx, "anime", "series", page, "anime")
}

// Trending 趋势（OMDb 无趋势数据，固定关键字，只取第一页）
func (s *SearchService) Trending(ctx context.Context) (*MediaPage, error) {
	return s.search(ctx, "popular", "", 1, "")
}

// Genres 类型目录
func (s *SearchService) Genres(mediaType string) ([]Genre, error) {
	if mediaType != "movie" && mediaType != "series" {
		return nil, apperr.Validation("type", "Type must be movie or series")
	}
	genres := make([]Genre, 0, len(genreNames))
	for _, name := range genreNames {
		// 剧集没有 Film-Noir
		if mediaType == "series" && name == "Film-Noir" {
			continue
		}
		genres = append(genres, Genre{ID: strings.ToLower(name), Name: name})
	}
	return genres, nil
}

// Recommendations 简单推荐：用条目的第一个类型作为搜索词
func (s *SearchService) Recommendations(ctx context.Context, mediaType, imdbID string, page int) (*MediaPage, error) {
	if mediaType != "movie" && mediaType != "series" {
		return nil, apperr.Validation("type", "Type must be movie or series")
	}
	detail, err := s.detail(ctx, imdbID, mediaType)
	if err != nil {
		return nil, err
	}
	if len(detail.Genre) == 0 {
		return &MediaPage{Results: []Media{}, Page: 1}, nil
	}
	return s.fixed(ctx, detail.Genre[0], mediaType, page, mediaType)
}

func (s *SearchService) fixed(ctx context.Context, term, omdbType string, page int, label string) (*MediaPage, error) {
	if page < 1 {
		page = 1
	}
	if page > 100 {
		return nil, apperr.Validation("page", "Page must be a positive integer between 1 and 100")
	}
	return s.search(ctx, term, omdbType, page, label)
}

// search label 为空时按条目自身类型标注
func (s *SearchService) search(ctx context.Context, query, omdbType string, page int, label string) (*MediaPage, error) {
	if s.catalog == nil {
		return nil, apperr.Upstream("Media search is not configured", nil)
	}
	res, err := s.catalog.SearchByTitle(ctx, query, omdbType, page)
	if err != nil {
		return nil, s.upstream("search", err)
	}
	out := &MediaPage{
		Results:      make([]Media, 0, len(res.Results)),
		Page:         res.Page,
		TotalPages:   res.TotalPages,
		TotalResults: res.TotalResults,
	}
	for _, r := range res.Results {
		mt := label
		if mt == "" {
			mt = mediaTypeOf(r.Type)
		}
		out.Results = append(out.Results, Media{
			ImdbID:     r.ImdbID,
			Title:      r.Title,
			Year:       r.Year,
			MediaType:  mt,
			Type:       r.Type,
			PosterPath: poster(r.Poster),
			Genre:      []string{},
		})
	}
	return out, nil
}

func (s *SearchService) detail(ctx context.Context, imdbID, label string) (*Media, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, apperr.Validation("id", "IMDB ID is required")
	}
	if s.catalog == nil {
		return nil, apperr.Upstream("Media search is not configured", nil)
	}
	d, err := s.catalog.GetByID(ctx, imdbID)
	if err != nil {
		if errors.Is(err, omdb.ErrNotFound) {
			return nil, apperr.NotFound("Title not found")
		}
		return nil, s.upstream("detail", err)
	}
	return &Media{
		ImdbID:       d.ImdbID,
		Title:        d.Title,
		Year:         d.Year,
		MediaType:    label,
		Type:         d.Type,
		PosterPath:   poster(d.Poster),
		Overview:     na(d.Plot),
		Genre:        splitList(d.Genre),
		Rating:       parseRating(d.ImdbRating),
		Runtime:      na(d.Runtime),
		Director:     na(d.Director),
		Actors:       splitList(d.Actors),
		Language:     na(d.Language),
		Country:      na(d.Country),
		Awards:       na(d.Awards),
		Metascore:    na(d.Metascore),
		TotalSeasons: na(d.TotalSeasons),
		BoxOffice:    na(d.BoxOffice),
		Production:   na(d.Production),
		Website:      na(d.Website),
	}, nil
}

func (s *SearchService) upstream(op string, err error) error {
	s.logger.Warn("媒体接口调用失败", "op", op, "error", err)
	return apperr.Upstream("Media provider is unavailable, please try again", fmt.Errorf("%s: %w", op, err))
}

func mediaTypeOf(t string) string {
	if t == "movie" {
		return "movie"
	}
	return "series"
}

func na(v string) string {
	if v == "N/A" {
		return ""
	}
	return v
}

func poster(v string) string {
	return na(v)
}

func splitList(v string) []string {
	v = na(v)
	if v == "" {
		return []string{}
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseRating(v string) *float64 {
	f, err := strconv.ParseFloat(na(v), 64)
	if err != nil {
		return nil
	}
	return &f
}
