package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jayg2309/bingekaro/internal/apperr"
	"github.com/jayg2309/bingekaro/internal/credential"
	"github.com/jayg2309/bingekaro/internal/model"
	"github.com/jayg2309/bingekaro/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	searchLimit     = 20
)

// SecretHasher 私有列表密码哈希
type SecretHasher interface {
	Hash(ctx context.Context, secret string) (string, error)
}

// ListService 列表的创建、修改和发现
type ListService struct {
	lists  *repository.ListRepository
	users  *repository.UserRepository
	hasher SecretHasher
	logger *slog.Logger
	now    func() time.Time
}

// NewListService 创建列表服务
func NewListService(lists *repository.ListRepository, users *repository.UserRepository, hasher SecretHasher, logger *slog.Logger) *ListService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListService{lists: lists, users: users, hasher: hasher, logger: logger, now: time.Now}
}

// CreateListInput 创建列表参数
type CreateListInput struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	IsPrivate   bool     `json:"isPrivate"`
	Password    string   `json:"password" validate:"omitempty,min=4"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=20"`
}

// UpdateListInput 部分更新，nil 表示不修改
type UpdateListInput struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	IsPrivate   *bool     `json:"isPrivate"`
	Password    *string   `json:"password" validate:"omitempty,min=4"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,max=20"`
}

// AddItemInput 添加条目参数
type AddItemInput struct {
	ImdbID     string   `json:"imdbId" validate:"required,max=20"`
	Title      string   `json:"title" validate:"required,max=255"`
	Type       string   `json:"type" validate:"omitempty,oneof=movie series episode anime"`
	Poster     string   `json:"poster" validate:"max=500"`
	Year       string   `json:"year" validate:"max=20"`
	Plot       string   `json:"plot"`
	Genre      string   `json:"genre" validate:"max=255"`
	ImdbRating *float64 `json:"imdbRating" validate:"omitempty,min=0,max=10"`
	Notes      string   `json:"notes" validate:"max=200"`
}

// ListPage 分页结果
type ListPage struct {
	Lists []model.RecommendationList
	Page  int
	Limit int
	Total int64
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}

// Create 创建列表；私有列表必须在创建时提供密码
func (s *ListService) Create(ctx context.Context, requester uint, in CreateListInput) (*model.RecommendationList, error) {
	if requester == 0 {
		return nil, apperr.Unauthenticated("Not authorized, no token")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.IsPrivate && in.Password == "" {
		return nil, apperr.Validation("password", "Password is required for private lists")
	}

	list := &model.RecommendationList{
		CreatorID:   requester,
		Name:        in.Name,
		Description: in.Description,
		Tags:        cleanTags(in.Tags),
	}
	if in.IsPrivate {
		hash, err := s.hashSecret(ctx, in.Password)
		if err != nil {
			return nil, err
		}
		if err := list.ApplyPrivacy(true, hash); err != nil {
			return nil, err
		}
	}
	if err := s.lists.Create(ctx, list); err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	s.logger.Info("创建列表", "list_id", list.ID, "creator_id", requester, "private", list.IsPrivate)
	return s.reload(ctx, list.ID)
}

// Update 部分更新，仅限创建者
func (s *ListService) Update(ctx context.Context, requester, listID uint, in UpdateListInput) (*model.RecommendationList, error) {
	list, err := s.ownedList(ctx, requester, listID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Password != nil && *in.Password == "" {
		in.Password = nil
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if in.Name != nil {
		list.Name = *in.Name
	}
	if in.Description != nil {
		list.Description = strings.TrimSpace(*in.Description)
	}
	if in.Tags != nil {
		list.Tags = cleanTags(*in.Tags)
	}

	private := list.IsPrivate
	if in.IsPrivate != nil {
		private = *in.IsPrivate
	}
	newHash := ""
	// 公开列表附带的密码直接忽略
	if private && in.Password != nil {
		if newHash, err = s.hashSecret(ctx, *in.Password); err != nil {
			return nil, err
		}
	}
	if err := list.ApplyPrivacy(private, newHash); err != nil {
		if errors.Is(err, model.ErrSecretRequired) {
			return nil, apperr.Validation("password", "Password is required for private lists")
		}
		return nil, err
	}

	if err := s.lists.Update(ctx, list); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Recommendation list not found")
		}
		return nil, fmt.Errorf("update list %d: %w", listID, err)
	}
	return s.reload(ctx, listID)
}

// Delete 软删除，仅限创建者
func (s *ListService) Delete(ctx context.Context, requester, listID uint) error {
	if _, err := s.ownedList(ctx, requester, listID); err != nil {
		return err
	}
	if err := s.lists.SoftDelete(ctx, listID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Recommendation list not found")
		}
		return fmt.Errorf("delete list %d: %w", listID, err)
	}
	s.logger.Info("删除列表", "list_id", listID, "creator_id", requester)
	return nil
}

// AddItem 添加条目，同一 catalog id 不能重复
func (s *ListService) AddItem(ctx context.Context, requester, listID uint, in AddItemInput) (*model.RecommendationList, error) {
	list, err := s.ownedList(ctx, requester, listID)
	if err != nil {
		return nil, err
	}
	in.ImdbID = strings.TrimSpace(in.ImdbID)
	in.Title = strings.TrimSpace(in.Title)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	item, err := list.AddItem(model.ListItem{
		ID:        uuid.NewString(),
		CatalogID: in.ImdbID,
		Title:     in.Title,
		Year:      in.Year,
		Type:      model.MediaType(in.Type),
		Poster:    in.Poster,
		Genre:     in.Genre,
		Plot:      in.Plot,
		Rating:    in.ImdbRating,
		AddedByID: requester,
		Notes:     in.Notes,
		AddedAt:   s.now(),
	})
	if errors.Is(err, model.ErrDuplicateItem) {
		return nil, apperr.Conflict("imdbId", "Item already in list")
	}
	if err != nil {
		return nil, err
	}
	if err := s.lists.AddItem(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("imdbId", "Item already in list")
		}
		return nil, fmt.Errorf("add item to list %d: %w", listID, err)
	}
	return s.reload(ctx, listID)
}

// RemoveItem 删除条目；条目不存在时视为成功
func (s *ListService) RemoveItem(ctx context.Context, requester, listID uint, itemID string) (*model.RecommendationList, error) {
	list, err := s.ownedList(ctx, requester, listID)
	if err != nil {
		return nil, err
	}
	if !list.RemoveItem(itemID) {
		return list, nil
	}
	if _, err := s.lists.RemoveItem(ctx, listID, itemID); err != nil {
		return nil, fmt.Errorf("remove item from list %d: %w", listID, err)
	}
	return s.reload(ctx, listID)
}

// Like 点赞；创建者不能给自己点赞，同一用户可以重复点赞
func (s *ListService) Like(ctx context.Context, requester, listID uint) (int64, error) {
	if requester == 0 {
		return 0, apperr.Unauthenticated("Not authorized, no token")
	}
	list, err := s.lists.FindByID(ctx, listID)
	if err != nil {
		return 0, fmt.Errorf("load list %d: %w", listID, err)
	}
	if list == nil || !list.IsActive {
		return 0, apperr.NotFound("Recommendation list not found")
	}
	if list.IsOwnedBy(requester) {
		return 0, apperr.Forbidden("Cannot like your own list")
	}
	count, err := s.lists.IncrementLikes(ctx, listID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, apperr.NotFound("Recommendation list not found")
	}
	if err != nil {
		return 0, fmt.Errorf("like list %d: %w", listID, err)
	}
	return count, nil
}

// MyLists 本人的全部列表（含私有）
func (s *ListService) MyLists(ctx context.Context, requester uint, page, limit int) (*ListPage, error) {
	if requester == 0 {
		return nil, apperr.Unauthenticated("Not authorized, no token")
	}
	page, limit = normalizePage(page, limit)
	lists, total, err := s.lists.ListByCreator(ctx, requester, true, repository.Page{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, fmt.Errorf("list my lists: %w", err)
	}
	lists = filterLists(lists, func(l *model.RecommendationList) bool { return VisibleInMyLists(l, requester) })
	return &ListPage{Lists: lists, Page: page, Limit: limit, Total: total}, nil
}

// Public 浏览其他用户的公开列表
func (s *ListService) Public(ctx context.Context, requester uint, page, limit int) (*ListPage, error) {
	page, limit = normalizePage(page, limit)
	lists, total, err := s.lists.ListPublic(ctx, requester, repository.Page{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, fmt.Errorf("list public lists: %w", err)
	}
	lists = filterLists(lists, func(l *model.RecommendationList) bool { return Discoverable(l, requester) })
	return &ListPage{Lists: lists, Page: page, Limit: limit, Total: total}, nil
}

// Search 关键字搜索：列表内容匹配和创建者匹配并发查询后合并去重
func (s *ListService) Search(ctx context.Context, requester uint, query string) ([]model.RecommendationList, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("q", "Search query is required")
	}

	var byText, byCreator []model.RecommendationList
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byText, err = s.lists.SearchText(gctx, query, requester, searchLimit)
		return err
	})
	g.Go(func() error {
		var err error
		byCreator, err = s.lists.SearchByCreator(gctx, query, requester, searchLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search lists: %w", err)
	}

	seen := make(map[uint]bool, len(byText)+len(byCreator))
	merged := make([]model.RecommendationList, 0, len(byText)+len(byCreator))
	for _, group := range [][]model.RecommendationList{byText, byCreator} {
		for _, l := range group {
			if seen[l.ID] {
				continue
			}
			seen[l.ID] = true
			merged = append(merged, l)
		}
	}
	return filterLists(merged, func(l *model.RecommendationList) bool { return Discoverable(l, requester) }), nil
}

// ProfileLists 用户主页的列表
type ProfileLists struct {
	User  *model.User
	Lists []model.RecommendationList
}

// ByUsername 某个用户主页上的全部有效列表（含私有，但只有摘要）
func (s *ListService) ByUsername(ctx context.Context, username string) (*ProfileLists, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	if user == nil || !user.IsActive {
		return nil, apperr.NotFound("User not found")
	}
	lists, _, err := s.lists.ListByCreator(ctx, user.ID, true, repository.Page{})
	if err != nil {
		return nil, fmt.Errorf("list lists of %q: %w", username, err)
	}
	lists = filterLists(lists, func(l *model.RecommendationList) bool { return VisibleOnProfile(l, user.ID) })
	return &ProfileLists{User: user, Lists: lists}, nil
}

// ownedList 加载列表并检查所有权；停用的列表视为不存在
func (s *ListService) ownedList(ctx context.Context, requester, listID uint) (*model.RecommendationList, error) {
	if requester == 0 {
		return nil, apperr.Unauthenticated("Not authorized, no token")
	}
	list, err := s.lists.FindByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("load list %d: %w", listID, err)
	}
	if list == nil || !list.IsActive {
		return nil, apperr.NotFound("Recommendation list not found")
	}
	if !list.IsOwnedBy(requester) {
		return nil, apperr.Forbidden("Not authorized to modify this list")
	}
	return list, nil
}

func (s *ListService) reload(ctx context.Context, listID uint) (*model.RecommendationList, error) {
	list, err := s.lists.FindByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("reload list %d: %w", listID, err)
	}
	if list == nil {
		return nil, apperr.NotFound("Recommendation list not found")
	}
	return list, nil
}

func (s *ListService) hashSecret(ctx context.Context, secret string) (string, error) {
	hash, err := s.hasher.Hash(ctx, secret)
	if errors.Is(err, credential.ErrInvalidInput) {
		return "", apperr.Validation("password", "Password is invalid")
	}
	if err != nil {
		return "", fmt.Errorf("hash list secret: %w", err)
	}
	return hash, nil
}
