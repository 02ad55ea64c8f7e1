package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jayg2309/bingekaro/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户，用户名和邮箱统一小写存储
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	user.Username = strings.ToLower(user.Username)
	user.Email = strings.ToLower(user.Email)
	user.IsActive = true
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// FindByID 根据 ID 查找用户
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername 根据用户名查找用户（大小写不敏感）
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "username = ?", strings.ToLower(username))
}

// FindByLogin 登录标识可以是用户名或邮箱
func (r *UserRepository) FindByLogin(ctx context.Context, identifier string) (*model.User, error) {
	id := strings.ToLower(strings.TrimSpace(identifier))
	return r.findOne(ctx, "username = ? OR email = ?", id, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UsernameTaken 用户名是否已被其他用户占用
func (r *UserRepository) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	return r.exists(ctx, "username = ? AND id <> ?", strings.ToLower(username), exceptID)
}

// EmailTaken 邮箱是否已被其他用户占用
func (r *UserRepository) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	return r.exists(ctx, "email = ? AND id <> ?", strings.ToLower(email), exceptID)
}

func (r *UserRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where(query, args...).Count(&count).Error
	return count > 0, err
}

// UpdateProfile 更新资料字段（name / username / bio）
func (r *UserRepository) UpdateProfile(ctx context.Context, userID uint, name, username, bio string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"name":     name,
		"username": strings.ToLower(username),
		"bio":      bio,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword 更新密码哈希
func (r *UserRepository) UpdatePassword(ctx context.Context, userID uint, hash string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("password_hash", hash).Error
}

// UpdateAvatar 更新头像文件名，空字符串表示移除
func (r *UserRepository) UpdateAvatar(ctx context.Context, userID uint, filename string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("avatar", filename).Error
}

// TouchLastLogin 记录最后登录时间
func (r *UserRepository) TouchLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).UpdateColumn("last_login_at", at).Error
}

// Deactivate 停用账号（软删除）
func (r *UserRepository) Deactivate(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("is_active", false).Error
}
