package model

import (
	"errors"
	"strings"
	"time"
)

// MediaType 条目媒体类型
type MediaType string

const (
	MediaMovie   MediaType = "movie"
	MediaSeries  MediaType = "series"
	MediaAnime   MediaType = "anime"
	MediaEpisode MediaType = "episode"
)

var (
	// ErrDuplicateItem 同一列表内 catalog_id 重复
	ErrDuplicateItem = errors.New("item already in list")
	// ErrSecretRequired 公开列表转为私有时必须提供新密码
	ErrSecretRequired = errors.New("password is required for private lists")
)

// RecommendationList 推荐列表（聚合根），条目只能通过聚合方法增删
type RecommendationList struct {
	ID          uint       `gorm:"primaryKey"`
	CreatorID   uint       `gorm:"not null;index"`
	Creator     *User      `gorm:"foreignKey:CreatorID"`
	Name        string     `gorm:"size:100;not null"`
	Description string     `gorm:"size:500"`
	IsPrivate   bool       `gorm:"not null;default:false;index"`
	SecretHash  string     `gorm:"size:100"`
	Items       []ListItem `gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
	Tags        []string   `gorm:"serializer:json;type:text"`
	ViewCount   int64      `gorm:"not null;default:0"`
	LikeCount   int64      `gorm:"not null;default:0"`
	IsActive    bool       `gorm:"not null;default:true;index"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time
}

// ListItem 列表条目。AddedByID 只是署名，不是外键
type ListItem struct {
	ID        string    `gorm:"primaryKey;size:36"`
	ListID    uint      `gorm:"not null;uniqueIndex:idx_list_item_catalog"`
	CatalogID string    `gorm:"size:20;not null;uniqueIndex:idx_list_item_catalog"`
	Title     string    `gorm:"size:255;not null"`
	Year      string    `gorm:"size:20"`
	Type      MediaType `gorm:"size:10"`
	Poster    string    `gorm:"size:500"`
	Genre     string    `gorm:"size:255"`
	Plot      string    `gorm:"type:text"`
	Rating    *float64
	AddedByID uint   `gorm:"not null"`
	Notes     string `gorm:"size:200"`
	Position  int    `gorm:"not null;default:0"`
	AddedAt   time.Time
}

// IsOwnedBy 判断是否为创建者；匿名（0）永远不是
func (l *RecommendationList) IsOwnedBy(userID uint) bool {
	return userID != 0 && l.CreatorID == userID
}

// HasItem 判断 catalog id 是否已在列表中
func (l *RecommendationList) HasItem(catalogID string) bool {
	for i := range l.Items {
		if strings.EqualFold(l.Items[i].CatalogID, catalogID) {
			return true
		}
	}
	return false
}

// AddItem 追加条目，拒绝重复的 catalog id
func (l *RecommendationList) AddItem(item ListItem) (*ListItem, error) {
	if l.HasItem(item.CatalogID) {
		return nil, ErrDuplicateItem
	}
	next := 0
	for i := range l.Items {
		if l.Items[i].Position >= next {
			next = l.Items[i].Position + 1
		}
	}
	item.ListID = l.ID
	item.Position = next
	l.Items = append(l.Items, item)
	return &l.Items[len(l.Items)-1], nil
}

// RemoveItem 按条目 ID 移除，不存在时返回 false
func (l *RecommendationList) RemoveItem(itemID string) bool {
	for i := range l.Items {
		if l.Items[i].ID == itemID {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyPrivacy 切换可见性。newHash 为空表示调用方没有提供新密码：
// 已是私有则沿用旧哈希，公开转私有则报错；转为公开时清除哈希
func (l *RecommendationList) ApplyPrivacy(private bool, newHash string) error {
	if !private {
		l.IsPrivate = false
		l.SecretHash = ""
		return nil
	}
	switch {
	case newHash != "":
		l.SecretHash = newHash
	case l.IsPrivate && l.SecretHash != "":
	default:
		return ErrSecretRequired
	}
	l.IsPrivate = true
	return nil
}

// ListItemView 条目对外视图
type ListItemView struct {
	ID         string      `json:"id"`
	ImdbID     string      `json:"imdbId"`
	Title      string      `json:"title"`
	Year       string      `json:"year,omitempty"`
	Type       MediaType   `json:"type,omitempty"`
	Poster     string      `json:"poster,omitempty"`
	Genre      string      `json:"genre,omitempty"`
	Plot       string      `json:"plot,omitempty"`
	ImdbRating *float64    `json:"imdbRating,omitempty"`
	AddedBy    UserSummary `json:"addedBy"`
	Notes      string      `json:"notes,omitempty"`
	AddedAt    time.Time   `json:"addedAt"`
}

// ListSummary 发现/浏览场景使用的摘要，不含条目内容
type ListSummary struct {
	ID          uint        `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Creator     UserSummary `json:"creator"`
	IsPrivate   bool        `json:"isPrivate"`
	Tags        []string    `json:"tags"`
	ItemCount   int         `json:"itemCount"`
	ViewCount   int64       `json:"viewCount"`
	LikeCount   int64       `json:"likeCount"`
	IsOwner     bool        `json:"isOwner"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ListView 通过访问控制后的完整视图。密码哈希永不输出
type ListView struct {
	ListSummary
	Items []ListItemView `json:"items"`
}

// Summary 构造摘要
func (l *RecommendationList) Summary(requester uint, resolve URLResolver) ListSummary {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	return ListSummary{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		Creator:     l.creatorSummary(resolve),
		IsPrivate:   l.IsPrivate,
		Tags:        tags,
		ItemCount:   len(l.Items),
		ViewCount:   l.ViewCount,
		LikeCount:   l.LikeCount,
		IsOwner:     l.IsOwnedBy(requester),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// View 构造完整视图
func (l *RecommendationList) View(requester uint, resolve URLResolver) ListView {
	creator := l.creatorSummary(resolve)
	items := make([]ListItemView, 0, len(l.Items))
	for _, it := range l.Items {
		addedBy := UserSummary{ID: it.AddedByID}
		if it.AddedByID == l.CreatorID {
			addedBy = creator
		}
		items = append(items, ListItemView{
			ID:         it.ID,
			ImdbID:     it.CatalogID,
			Title:      it.Title,
			Year:       it.Year,
			Type:       it.Type,
			Poster:     it.Poster,
			Genre:      it.Genre,
			Plot:       it.Plot,
			ImdbRating: it.Rating,
			AddedBy:    addedBy,
			Notes:      it.Notes,
			AddedAt:    it.AddedAt,
		})
	}
	return ListView{ListSummary: l.Summary(requester, resolve), Items: items}
}

func (l *RecommendationList) creatorSummary(resolve URLResolver) UserSummary {
	if l.Creator != nil {
		return l.Creator.Summary(resolve)
	}
	return UserSummary{ID: l.CreatorID}
}
