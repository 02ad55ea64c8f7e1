package model

import "time"

// FavoriteKind 收藏分类
type FavoriteKind string

const (
	FavoriteMovies FavoriteKind = "movies"
	FavoriteSeries FavoriteKind = "series"
	FavoriteAnime  FavoriteKind = "anime"
)

// ParseFavoriteKind 解析路由中的收藏分类
func ParseFavoriteKind(s string) (FavoriteKind, bool) {
	switch FavoriteKind(s) {
	case FavoriteMovies, FavoriteSeries, FavoriteAnime:
		return FavoriteKind(s), true
	}
	return "", false
}

// Favorite 收藏条目，同一用户同一分类下 catalog_id 唯一
type Favorite struct {
	ID        uint         `json:"-" gorm:"primaryKey"`
	UserID    uint         `json:"-" gorm:"not null;uniqueIndex:idx_favorite_user_kind_catalog"`
	Kind      FavoriteKind `json:"-" gorm:"size:10;not null;uniqueIndex:idx_favorite_user_kind_catalog"`
	CatalogID string       `json:"imdbId" gorm:"size:20;not null;uniqueIndex:idx_favorite_user_kind_catalog"`
	Title     string       `json:"title" gorm:"size:255;not null"`
	Year      string       `json:"year,omitempty" gorm:"size:20"`
	Poster    string       `json:"poster,omitempty" gorm:"size:500"`
	Genre     string       `json:"genre,omitempty" gorm:"size:255"`
	Rating    *float64     `json:"imdbRating,omitempty"`
	AddedAt   time.Time    `json:"addedAt"`
}

// Favorites 三类收藏
type Favorites struct {
	Movies []Favorite `json:"movies"`
	Series []Favorite `json:"series"`
	Anime  []Favorite `json:"anime"`
}

// GroupFavorites 按分类分组，保持输入顺序
func GroupFavorites(all []Favorite) Favorites {
	out := Favorites{Movies: []Favorite{}, Series: []Favorite{}, Anime: []Favorite{}}
	for _, f := range all {
		switch f.Kind {
		case FavoriteMovies:
			out.Movies = append(out.Movies, f)
		case FavoriteSeries:
			out.Series = append(out.Series, f)
		case FavoriteAnime:
			out.Anime = append(out.Anime, f)
		}
	}
	return out
}
