package service

import "github.com/jayg2309/bingekaro/internal/model"

// 以下可见性规则与单个列表的访问控制相互独立：
// 发现类接口只返回摘要，且从不暴露其他用户的私有列表。

// Discoverable 公开浏览/搜索：有效、公开、不是请求者自己的、创建者账号有效
func Discoverable(l *model.RecommendationList, requester uint) bool {
	if l == nil || !l.IsActive || l.IsPrivate || l.IsOwnedBy(requester) {
		return false
	}
	return l.Creator == nil || l.Creator.IsActive
}

// VisibleInMyLists 我的列表：本人的有效列表，包括私有
func VisibleInMyLists(l *model.RecommendationList, requester uint) bool {
	return l != nil && l.IsActive && l.IsOwnedBy(requester)
}

// VisibleOnProfile 用户主页：该用户的全部有效列表（私有列表只出摘要）
func VisibleOnProfile(l *model.RecommendationList, profileUserID uint) bool {
	return l != nil && l.IsActive && l.CreatorID == profileUserID
}

func filterLists(lists []model.RecommendationList, keep func(*model.RecommendationList) bool) []model.RecommendationList {
	out := lists[:0]
	for i := range lists {
		if keep(&lists[i]) {
			out = append(out, lists[i])
		}
	}
	return out
}
