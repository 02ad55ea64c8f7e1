package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/jayg2309/bingekaro/internal/utils"
)

// Limiter 固定窗口计数器
type Limiter interface {
	// Hit 计数 +1，返回窗口内的次数和窗口剩余时间
	Hit(ctx context.Context, key string) (int64, time.Duration, error)
}

// RedisLimiter 多实例共享的计数器
type RedisLimiter struct {
	rdb    *redis.Client
	window time.Duration
}

// NewRedisClient 连接 Redis 并检查可用性
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisLimiter 创建 Redis 计数器
func NewRedisLimiter(rdb *redis.Client, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, window: window}
}

// Hit INCR 后在首次计数时设置过期
func (l *RedisLimiter) Hit(ctx context.Context, key string) (int64, time.Duration, error) {
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return count, l.window, err
		}
		return count, l.window, nil
	}
	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil {
		return count, l.window, nil
	}
	if ttl < 0 {
		// 过期设置丢失时补上，避免计数永久有效
		_ = l.rdb.Expire(ctx, key, l.window).Err()
		ttl = l.window
	}
	return count, ttl, nil
}

// MemoryLimiter 单实例内存计数器
type MemoryLimiter struct {
	store  *cache.Cache
	window time.Duration
}

// NewMemoryLimiter 创建内存计数器
func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		store:  cache.New(window, 2*window),
		window: window,
	}
}

// Hit 窗口从第一次计数开始，到期后重新计数
func (l *MemoryLimiter) Hit(_ context.Context, key string) (int64, time.Duration, error) {
	if err := l.store.Add(key, int64(1), l.window); err == nil {
		return 1, l.window, nil
	}
	count, err := l.store.IncrementInt64(key, 1)
	if err != nil {
		// 刚好过期，重新开一个窗口
		l.store.Set(key, int64(1), l.window)
		return 1, l.window, nil
	}
	_, expires, ok := l.store.GetWithExpiration(key)
	if !ok {
		return count, l.window, nil
	}
	return count, time.Until(expires), nil
}

// RateLimit 按客户端 IP 限流；计数器出错时放行
func RateLimit(limiter Limiter, max int, keyPrefix, message string, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	if message == "" {
		message = "Too many requests from this IP, please try again later."
	}
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, c.ClientIP())
		count, reset, err := limiter.Hit(c.Request.Context(), key)
		if err != nil {
			logger.Warn("限流计数失败，放行请求", "key", keyPrefix, "error", err)
			c.Next()
			return
		}

		remaining := int64(max) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(reset.Seconds())))

		if count > int64(max) {
			c.Header("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
			utils.Error(c, http.StatusTooManyRequests, message)
			return
		}
		c.Next()
	}
}
