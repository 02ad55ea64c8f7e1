// Package credential 负责用户密码与私有列表密码的单向哈希与校验。
// 两类密码共用同一哈希原语，但互相独立，调用方不得混用。
package credential

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost 生产环境最低成本因子
const DefaultCost = 12

// ErrInvalidInput 空密码或存储的哈希格式损坏
var ErrInvalidInput = errors.New("credential: invalid input")

// Hasher bcrypt 哈希器
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher 创建哈希器；maxConcurrent<=0 时按 CPU 数限制并发哈希数量，
// 避免大量登录请求占满所有 CPU 拖慢其他请求
func NewHasher(cost int, maxConcurrent int64) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = int64(runtime.GOMAXPROCS(0))
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(maxConcurrent)}
}

// Cost 当前成本因子
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash 生成加盐哈希，同一明文每次结果不同
func (h *Hasher) Hash(ctx context.Context, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", ErrInvalidInput)
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: secret too long", ErrInvalidInput)
		}
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// Verify 校验明文与哈希是否匹配。不匹配只返回 false，
// 仅在存储的哈希本身无法解析时返回 ErrInvalidInput
func (h *Hasher) Verify(ctx context.Context, secret, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
