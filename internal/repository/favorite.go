package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jayg2309/bingekaro/internal/model"
)

type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add 添加收藏；同一分类下重复的 catalog id 返回 ErrDuplicate
func (r *FavoriteRepository) Add(ctx context.Context, fav *model.Favorite) error {
	if fav.AddedAt.IsZero() {
		fav.AddedAt = time.Now()
	}
	return translate(r.db.WithContext(ctx).Create(fav).Error)
}

// Remove 取消收藏，返回是否真的删除了记录
func (r *FavoriteRepository) Remove(ctx context.Context, userID uint, kind model.FavoriteKind, catalogID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND catalog_id = ?", userID, kind, catalogID).
		Delete(&model.Favorite{})
	return res.RowsAffected > 0, res.Error
}

// ListByUser 获取用户全部收藏，按加入顺序
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID uint) ([]model.Favorite, error) {
	var favorites []model.Favorite
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at ASC, id ASC").
		Find(&favorites).Error
	return favorites, err
}
