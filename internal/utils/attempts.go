package utils

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// AttemptGuard 记录密码错误次数，窗口内达到上限后拒绝继续尝试。
// 条目数量有上限，超出时淘汰最久未使用的 key。
type AttemptGuard struct {
	mu       sync.Mutex
	failures *expirable.LRU[string, int]
	limit    int
}

// NewAttemptGuard size 最大记录数，limit 窗口内允许的失败次数，window 窗口时长
func NewAttemptGuard(size, limit int, window time.Duration) *AttemptGuard {
	if size <= 0 {
		size = 10000
	}
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &AttemptGuard{
		failures: expirable.NewLRU[string, int](size, nil, window),
		limit:    limit,
	}
}

// Blocked 是否已达到上限
func (g *AttemptGuard) Blocked(key string) bool {
	n, ok := g.failures.Peek(key)
	return ok && n >= g.limit
}

// Fail 记录一次失败；窗口从最近一次失败起算
func (g *AttemptGuard) Fail(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.failures.Peek(key)
	if !ok {
		g.failures.Add(key, 1)
		return
	}
	g.failures.Add(key, n+1)
}

// Reset 成功后清除记录
func (g *AttemptGuard) Reset(key string) {
	g.failures.Remove(key)
}

// Len 当前记录数
func (g *AttemptGuard) Len() int {
	return g.failures.Len()
}
