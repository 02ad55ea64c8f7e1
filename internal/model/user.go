package model

import (
	"time"
)

// User 用户模型
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Name         string     `json:"name" gorm:"size:50;not null"`
	Username     string     `json:"username" gorm:"size:30;not null;uniqueIndex"`
	Email        string     `json:"email" gorm:"size:254;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"not null"`
	Bio          string     `json:"bio" gorm:"size:500"`
	Avatar       string     `json:"-" gorm:"size:255"`
	IsActive     bool       `json:"-" gorm:"not null;default:true;index"`
	LastLoginAt  *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"-"`
	UpdatedAt    time.Time  `json:"-"`
}

// URLResolver 把头像文件名转换为可访问的 URL
type URLResolver func(filename string) string

// UserSummary 对外展示的用户摘要（列表创建者、条目贡献者）
type UserSummary struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// UserProfile 本人可见的完整资料，不含密码哈希
type UserProfile struct {
	ID             uint       `json:"id"`
	Name           string     `json:"name"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Bio            string     `json:"bio"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	IsActive       bool       `json:"isActive"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func avatarURL(filename string, resolve URLResolver) string {
	if filename == "" || resolve == nil {
		return ""
	}
	return resolve(filename)
}

// Summary 构造用户摘要
func (u *User) Summary(resolve URLResolver) UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{
		ID:             u.ID,
		Name:           u.Name,
		Username:       u.Username,
		ProfilePicture: avatarURL(u.Avatar, resolve),
	}
}

// Profile 构造本人资料
func (u *User) Profile(resolve URLResolver) UserProfile {
	return UserProfile{
		ID:             u.ID,
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		Bio:            u.Bio,
		ProfilePicture: avatarURL(u.Avatar, resolve),
		IsActive:       u.IsActive,
		LastLogin:      u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
