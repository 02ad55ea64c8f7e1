package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jayg2309/bingekaro/internal/apperr"
	"github.com/jayg2309/bingekaro/internal/credential"
	"github.com/jayg2309/bingekaro/internal/model"
	"github.com/jayg2309/bingekaro/internal/repository"
	"github.com/jayg2309/bingekaro/internal/storage"
)

// PasswordHasher 账号密码哈希与校验
type PasswordHasher interface {
	Hash(ctx context.Context, secret string) (string, error)
	Verify(ctx context.Context, secret, hash string) (bool, error)
}

// TokenIssuer 签发访问令牌
type TokenIssuer interface {
	Issue(userID uint) (string, time.Time, error)
}

// AvatarStore 头像文件存储
type AvatarStore interface {
	Save(ctx context.Context, r io.Reader, ext string) (string, error)
	Delete(filename string) error
	URL(filename string) string
}

// avatarTypes 允许上传的头像类型
var avatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UserService 账号、资料、头像与收藏
type UserService struct {
	users     *repository.UserRepository
	favorites *repository.FavoriteRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	avatars   AvatarStore
	maxAvatar int64
	logger    *slog.Logger
	now       func() time.Time
}

// NewUserService 创建用户服务；maxAvatarBytes<=0 时默认 5MB
func NewUserService(users *repository.UserRepository, favorites *repository.FavoriteRepository, hasher PasswordHasher, tokens TokenIssuer, avatars AvatarStore, maxAvatarBytes int64, logger *slog.Logger) *UserService {
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = 5 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		users:     users,
		favorites: favorites,
		hasher:    hasher,
		tokens:    tokens,
		avatars:   avatars,
		maxAvatar: maxAvatarBytes,
		logger:    logger,
		now:       time.Now,
	}
}

// ResolveAvatar 头像文件名转 URL
func (s *UserService) ResolveAvatar(filename string) string {
	if s.avatars == nil || filename == "" {
		return ""
	}
	return s.avatars.URL(filename)
}

// RegisterInput 注册参数
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput 登录参数，identifier 可以是用户名或邮箱
type LoginInput struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// UpdateProfileInput 资料更新，nil 表示不修改
type UpdateProfileInput struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=50"`
	Username *string `json:"username" validate:"omitempty,min=3,max=30,username"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
}

// ChangePasswordInput 修改密码参数
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// FavoriteInput 收藏参数
type FavoriteInput struct {
	ImdbID     string   `json:"imdbId" validate:"required,max=20"`
	Title      string   `json:"title" validate:"required,max=255"`
	Year       string   `json:"year" validate:"max=20"`
	Poster     string   `json:"poster" validate:"max=500"`
	Genre      string   `json:"genre" validate:"max=255"`
	ImdbRating *float64 `json:"imdbRating" validate:"omitempty,min=0,max=10"`
}

// AvatarUpload 头像上传
type AvatarUpload struct {
	Body        io.Reader
	ContentType string
	Size        int64
}

// Session 登录结果
type Session struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Register 注册并直接登录
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if taken, err := s.users.UsernameTaken(ctx, in.Username, 0); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if taken {
		return nil, apperr.Conflict("username", "Username is already taken")
	}
	if taken, err := s.users.EmailTaken(ctx, in.Email, 0); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, apperr.Conflict("email", "Email is already registered")
	}

	hash, err := s.hashPassword(ctx, "password", in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &model.User{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		LastLoginAt:  &now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("username", "User with this username or email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("用户注册", "user_id", user.ID)
	return s.issue(user)
}

// Login 使用用户名或邮箱登录
func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.users.FindByLogin(ctx, in.Identifier)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	if !user.IsActive {
		return nil, apperr.Unauthenticated("Account is deactivated")
	}
	ok, err := s.hasher.Verify(ctx, in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("更新最后登录时间失败", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now
	return s.issue(user)
}

// Refresh 签发新令牌；旧令牌在过期前仍然有效
func (s *UserService) Refresh(ctx context.Context, userID uint) (*Session, error) {
	user, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Me 当前用户
func (s *UserService) Me(ctx context.Context, userID uint) (*model.User, error) {
	return s.ActiveUser(ctx, userID)
}

// ActiveUser 令牌对应的有效用户；不存在或已停用都按未登录处理
func (s *UserService) ActiveUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", userID, err)
	}
	if user == nil || !user.IsActive {
		return nil, apperr.Unauthenticated("Not authorized, user not found")
	}
	return user, nil
}

// UsernameAvailable 用户名是否可用
func (s *UserService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	in := struct {
		Username string `json:"username" validate:"required,min=3,max=30,username"`
	}{Username: strings.TrimSpace(username)}
	if err := validateStruct(in); err != nil {
		return false, err
	}
	taken, err := s.users.UsernameTaken(ctx, in.Username, 0)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return !taken, nil
}

// EmailAvailable 邮箱是否可用
func (s *UserService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	in := struct {
		Email string `json:"email" validate:"required,email"`
	}{Email: strings.TrimSpace(email)}
	if err := validateStruct(in); err != nil {
		return false, err
	}
	taken, err := s.users.EmailTaken(ctx, in.Email, 0)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return !taken, nil
}

// UpdateProfile 更新资料；修改用户名时重新检查唯一性
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*model.User, error) {
	user, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
	}
	if in.Username != nil {
		v := strings.ToLower(strings.TrimSpace(*in.Username))
		in.Username = &v
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	name, username, bio := user.Name, user.Username, user.Bio
	if in.Name != nil {
		name = *in.Name
	}
	if in.Bio != nil {
		bio = strings.TrimSpace(*in.Bio)
	}
	if in.Username != nil && *in.Username != user.Username {
		taken, err := s.users.UsernameTaken(ctx, *in.Username, user.ID)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken {
			return nil, apperr.Conflict("username", "Username is already taken")
		}
		username = *in.Username
	}

	if err := s.users.UpdateProfile(ctx, user.ID, name, username, bio); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("username", "Username is already taken")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.ActiveUser(ctx, user.ID)
}

// ChangePassword 校验当前密码后重新哈希
func (s *UserService) ChangePassword(ctx context.Context, userID uint, in ChangePasswordInput) error {
	user, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	ok, err := s.hasher.Verify(ctx, in.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return apperr.Validation("currentPassword", "Current password is incorrect")
	}
	hash, err := s.hashPassword(ctx, "newPassword", in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info("修改密码", "user_id", user.ID)
	return nil
}

// SetAvatar 保存新头像并删除旧文件
func (s *UserService) SetAvatar(ctx context.Context, userID uint, up AvatarUpload) (*model.User, error) {
	user, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ext, ok := avatarTypes[strings.ToLower(up.ContentType)]
	if !ok {
		return nil, apperr.Validation("profilePicture", "Only image files are allowed")
	}
	if up.Size > s.maxAvatar {
		return nil, apperr.Validation("profilePicture", fmt.Sprintf("File too large, maximum size is %dMB", s.maxAvatar>>20))
	}

	filename, err := s.avatars.Save(ctx, up.Body, ext)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, apperr.Validation("profilePicture", fmt.Sprintf("File too large, maximum size is %dMB", s.maxAvatar>>20))
	}
	if err != nil {
		return nil, fmt.Errorf("save avatar: %w", err)
	}
	if err := s.users.UpdateAvatar(ctx, user.ID, filename); err != nil {
		_ = s.avatars.Delete(filename)
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	s.deleteAvatar(user.Avatar)
	user.Avatar = filename
	return user, nil
}

// RemoveAvatar 移除头像
func (s *UserService) RemoveAvatar(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.ActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Avatar == "" {
		return user, nil
	}
	if err := s.users.UpdateAvatar(ctx, user.ID, ""); err != nil {
		return nil, fmt.Errorf("clear avatar: %w", err)
	}
	s.deleteAvatar(user.Avatar)
	user.Avatar = ""
	return user, nil
}

// Deactivate 停用本人账号
func (s *UserService) Deactivate(ctx context.Context, userID uint) error {
	if _, err := s.ActiveUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return fmt.Errorf("deactivate user %d: %w", userID, err)
	}
	s.logger.Info("账号已停用", "user_id", userID)
	return nil
}

// Favorites 三类收藏
func (s *UserService) Favorites(ctx context.Context, userID uint) (model.Favorites, error) {
	all, err := s.favorites.ListByUser(ctx, userID)
	if err != nil {
		return model.Favorites{}, fmt.Errorf("list favorites: %w", err)
	}
	return model.GroupFavorites(all), nil
}

// AddFavorite 添加收藏，同一分类不允许重复
func (s *UserService) AddFavorite(ctx context.Context, userID uint, kind model.FavoriteKind, in FavoriteInput) (model.Favorites, error) {
	in.ImdbID = strings.TrimSpace(in.ImdbID)
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return model.Favorites{}, err
	}
	fav := &model.Favorite{
		UserID:    userID,
		Kind:      kind,
		CatalogID: in.ImdbID,
		Title:     in.Title,
		Year:      in.Year,
		Poster:    in.Poster,
		Genre:     in.Genre,
		Rating:    in.ImdbRating,
		AddedAt:   s.now(),
	}
	if err := s.favorites.Add(ctx, fav); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Favorites{}, apperr.Conflict("imdbId", "Already in favorites")
		}
		return model.Favorites{}, fmt.Errorf("add favorite: %w", err)
	}
	return s.Favorites(ctx, userID)
}

// RemoveFavorite 取消收藏，不存在时返回 NotFound
func (s *UserService) RemoveFavorite(ctx context.Context, userID uint, kind model.FavoriteKind, catalogID string) (model.Favorites, error) {
	removed, err := s.favorites.Remove(ctx, userID, kind, catalogID)
	if err != nil {
		return model.Favorites{}, fmt.Errorf("remove favorite: %w", err)
	}
	if !removed {
		return model.Favorites{}, apperr.NotFound("Favorite not found")
	}
	return s.Favorites(ctx, userID)
}

func (s *UserService) issue(user *model.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *UserService) hashPassword(ctx context.Context, field, password string) (string, error) {
	hash, err := s.hasher.Hash(ctx, password)
	if errors.Is(err, credential.ErrInvalidInput) {
		return "", apperr.Validation(field, "Password is invalid")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *UserService) deleteAvatar(filename string) {
	if filename == "" || s.avatars == nil {
		return
	}
	if err := s.avatars.Delete(filename); err != nil {
		s.logger.Warn("删除旧头像失败", "file", filename, "error", err)
	}
}
