package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jayg2309/bingekaro/internal/model"
)

type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *ListRepository {
	return &ListRepository{db: db}
}

// itemsInOrder 按位置预加载条目
func itemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, added_at ASC")
}

// itemIDsOnly 摘要场景只需要条目数量
func itemIDsOnly(db *gorm.DB) *gorm.DB {
	return db.Select("id", "list_id")
}

// FindByID 根据 ID 加载完整聚合（含条目和创建者），不过滤停用状态
func (r *ListRepository) FindByID(ctx context.Context, id uint) (*model.RecommendationList, error) {
	var list model.RecommendationList
	err := r.db.WithContext(ctx).
		Preload("Items", itemsInOrder).
		Preload("Creator").
		First(&list, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// Create 创建列表
func (r *ListRepository) Create(ctx context.Context, list *model.RecommendationList) error {
	list.IsActive = true
	return r.db.WithContext(ctx).Omit("Creator", "Items").Create(list).Error
}

// Update 按 ID 覆盖可编辑字段，计数器不在此更新
func (r *ListRepository) Update(ctx context.Context, list *model.RecommendationList) error {
	res := r.db.WithContext(ctx).
		Model(&model.RecommendationList{ID: list.ID}).
		Where("is_active = ?", true).
		Select("name", "description", "is_private", "secret_hash", "tags").
		Updates(list)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete 软删除：只标记 is_active=false
func (r *ListRepository) SoftDelete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&model.RecommendationList{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeInactive 物理删除 before 之前停用的列表及其条目，返回删除的列表数
func (r *ListRepository) PurgeInactive(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&model.RecommendationList{}).
			Select("id").
			Where("is_active = ? AND updated_at < ?", false, before)
		if err := tx.Where("list_id IN (?)", stale).Delete(&model.ListItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("is_active = ? AND updated_at < ?", false, before).Delete(&model.RecommendationList{})
		if res.Error != nil {
			return res.Error
		}
		purged = res.RowsAffected
		return nil
	})
	return purged, err
}

// IncrementViews 原子地把浏览数加一
func (r *ListRepository) IncrementViews(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&model.RecommendationList{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementLikes 原子地把点赞数加一并返回最新值
func (r *ListRepository) IncrementLikes(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.RecommendationList{}).
			Where("id = ? AND is_active = ?", id, true).
			UpdateColumn("like_count", gorm.Expr("like_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&model.RecommendationList{}).
			Where("id = ?", id).
			Pluck("like_count", &count).Error
	})
	return count, err
}

// AddItem 写入条目；(list_id, catalog_id) 唯一索引兜底并发重复添加
func (r *ListRepository) AddItem(ctx context.Context, item *model.ListItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return translate(err)
		}
		return tx.Model(&model.RecommendationList{}).
			Where("id = ?", item.ListID).
			UpdateColumn("updated_at", time.Now()).Error
	})
}

// RemoveItem 删除条目，返回是否真的删除了记录
func (r *ListRepository) RemoveItem(ctx context.Context, listID uint, itemID string) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND list_id = ?", itemID, listID).Delete(&model.ListItem{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0
		if !removed {
			return nil
		}
		return tx.Model(&model.RecommendationList{}).
			Where("id = ?", listID).
			UpdateColumn("updated_at", time.Now()).Error
	})
	return removed, err
}

// Page 分页参数
type Page struct {
	Limit  int
	Offset int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	return db
}

// ListByCreator 某个用户的有效列表；includePrivate=false 时只返回公开列表
func (r *ListRepository) ListByCreator(ctx context.Context, creatorID uint, includePrivate bool, page Page) ([]model.RecommendationList, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.RecommendationList{}).
		Where("creator_id = ? AND is_active = ?", creatorID, true)
	if !includePrivate {
		q = q.Where("is_private = ?", false)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var lists []model.RecommendationList
	err := page.apply(q).
		Preload("Items", itemIDsOnly).
		Preload("Creator").
		Order("created_at DESC, id DESC").
		Find(&lists).Error
	return lists, total, err
}

// discoverable 公开发现范围：有效、公开、非请求者本人、创建者账号有效
func discoverable(db *gorm.DB, excludeCreator uint) *gorm.DB {
	return db.Model(&model.RecommendationList{}).
		Joins("JOIN users ON users.id = recommendation_lists.creator_id AND users.is_active = ?", true).
		Where("recommendation_lists.is_active = ? AND recommendation_lists.is_private = ?", true, false).
		Where("recommendation_lists.creator_id <> ?", excludeCreator)
}

// ListPublic 浏览其他用户的公开列表
func (r *ListRepository) ListPublic(ctx context.Context, excludeCreator uint, page Page) ([]model.RecommendationList, int64, error) {
	q := discoverable(r.db.WithContext(ctx), excludeCreator).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var lists []model.RecommendationList
	err := page.apply(q).
		Preload("Items", itemIDsOnly).
		Preload("Creator").
		Order("recommendation_lists.created_at DESC, recommendation_lists.id DESC").
		Find(&lists).Error
	return lists, total, err
}

// likePattern 构造大小写不敏感的子串匹配模式并转义通配符
func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + q + "%"
}

// tagSyntax 标签列以 JSON 数组存储，含这些字符的关键字会匹配到数组结构本身
const tagSyntax = `"[],\`

// SearchText 在名称、描述、标签和条目标题中做子串匹配
func (r *ListRepository) SearchText(ctx context.Context, text string, excludeCreator uint, limit int) ([]model.RecommendationList, error) {
	pattern := likePattern(text)
	clause := `(LOWER(recommendation_lists.name) LIKE ? ESCAPE '\'
			OR LOWER(recommendation_lists.description) LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM list_items li WHERE li.list_id = recommendation_lists.id AND LOWER(li.title) LIKE ? ESCAPE '\')`
	args := []interface{}{pattern, pattern, pattern}
	if !strings.ContainsAny(strings.TrimSpace(text), tagSyntax) {
		clause += ` OR LOWER(recommendation_lists.tags) LIKE ? ESCAPE '\'`
		args = append(args, pattern)
	}
	clause += ")"

	var lists []model.RecommendationList
	err := discoverable(r.db.WithContext(ctx), excludeCreator).
		Where(clause, args...).
		Preload("Items", itemIDsOnly).
		Preload("Creator").
		Order("recommendation_lists.view_count DESC, recommendation_lists.id DESC").
		Limit(limit).
		Find(&lists).Error
	return lists, err
}

// SearchByCreator 创建者姓名或用户名匹配的公开列表
func (r *ListRepository) SearchByCreator(ctx context.Context, text string, excludeCreator uint, limit int) ([]model.RecommendationList, error) {
	pattern := likePattern(text)
	var lists []model.RecommendationList
	err := discoverable(r.db.WithContext(ctx), excludeCreator).
		Where(`(LOWER(users.name) LIKE ? ESCAPE '\' OR LOWER(users.username) LIKE ? ESCAPE '\')`, pattern, pattern).
		Preload("Items", itemIDsOnly).
		Preload("Creator").
		Order("recommendation_lists.view_count DESC, recommendation_lists.id DESC").
		Limit(limit).
		Find(&lists).Error
	return lists, err
}
