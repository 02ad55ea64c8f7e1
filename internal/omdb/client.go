// Package omdb 是 OMDb 元数据接口的客户端。没有缓存也不重试，
// 上游失败统一返回 ErrUnavailable。
package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const pageSize = 10

var (
	// ErrUnavailable 网络错误、非 200、响应无法解析或上游报错
	ErrUnavailable = errors.New("omdb unavailable")
	// ErrNotFound 按 ID 查询时条目不存在
	ErrNotFound = errors.New("omdb title not found")
)

// Summary 搜索结果条目
type Summary struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// SearchPage 一页搜索结果
type SearchPage struct {
	Results      []Summary
	Page         int
	TotalResults int
	TotalPages   int
}

// Detail 条目详情
type Detail struct {
	Title        string `json:"Title"`
	Year         string `json:"Year"`
	Rated        string `json:"Rated"`
	Released     string `json:"Released"`
	Runtime      string `json:"Runtime"`
	Genre        string `json:"Genre"`
	Director     string `json:"Director"`
	Writer       string `json:"Writer"`
	Actors       string `json:"Actors"`
	Plot         string `json:"Plot"`
	Language     string `json:"Language"`
	Country      string `json:"Country"`
	Awards       string `json:"Awards"`
	Poster       string `json:"Poster"`
	Metascore    string `json:"Metascore"`
	ImdbRating   string `json:"imdbRating"`
	ImdbVotes    string `json:"imdbVotes"`
	ImdbID       string `json:"imdbID"`
	Type         string `json:"Type"`
	TotalSeasons string `json:"totalSeasons"`
	BoxOffice    string `json:"BoxOffice"`
	Production   string `json:"Production"`
	Website      string `json:"Website"`
}

type searchResponse struct {
	Search       []Summary `json:"Search"`
	TotalResults string    `json:"totalResults"`
	Response     string    `json:"Response"`
	Error        string    `json:"Error"`
}

type detailResponse struct {
	Detail
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// Client OMDb 客户端
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// Option 客户端配置项
type Option func(*Client)

// WithHTTPClient 替换默认的 HTTP 客户端
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New 创建客户端
func New(apiKey, baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("omdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = "https://www.omdbapi.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SearchByTitle 按标题搜索；mediaType 为空或 movie/series/episode。
// 上游返回“无结果”时得到空页而不是错误。
func (c *Client) SearchByTitle(ctx context.Context, query, mediaType string, page int) (*SearchPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("s", query)
	params.Set("page", strconv.Itoa(page))
	if mediaType != "" {
		params.Set("type", mediaType)
	}

	var payload searchResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, err
	}
	result := &SearchPage{Results: []Summary{}, Page: page}
	if !strings.EqualFold(payload.Response, "True") {
		if isNoResults(payload.Error) {
			return result, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, payload.Error)
	}

	total, _ := strconv.Atoi(payload.TotalResults)
	result.Results = append(result.Results, payload.Search...)
	result.TotalResults = total
	result.TotalPages = int(math.Ceil(float64(total) / pageSize))
	return result, nil
}

// GetByID 按 IMDb ID 获取完整详情；并发的相同请求共享一次上游调用。
// 共享调用不随某个调用方取消，由 HTTP 客户端超时兜底；每个调用方只等待自己的 ctx。
func (c *Client) GetByID(ctx context.Context, imdbID string) (*Detail, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, errors.New("imdb id must not be empty")
	}
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan("id:"+imdbID, func() (interface{}, error) {
		params := url.Values{}
		params.Set("i", imdbID)
		params.Set("plot", "full")

		var payload detailResponse
		if err := c.get(shared, params, &payload); err != nil {
			return nil, err
		}
		if !strings.EqualFold(payload.Response, "True") {
			if isNotFound(payload.Error) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, payload.Error)
		}
		detail := payload.Detail
		return &detail, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Detail), nil
	}
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("apikey", c.apiKey)
	endpoint := c.baseURL + "/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 不把带 apikey 的 URL 带进错误信息
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// isNoResults OMDb 的“没有结果”类回答，例如 "Movie not found!"
func isNoResults(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not found")
}

// isNotFound 按 ID 查询的“不存在”回答，例如 "Incorrect IMDb ID."
func isNotFound(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not found") || strings.Contains(m, "incorrect imdb id")
}
