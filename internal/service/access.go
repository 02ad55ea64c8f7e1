package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jayg2309/bingekaro/internal/apperr"
	"github.com/jayg2309/bingekaro/internal/model"
	"github.com/jayg2309/bingekaro/internal/repository"
)

// Outcome 单个列表的访问判定结果
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeAllow
	OutcomeRequireSecret
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeRequireSecret:
		return "require_secret"
	default:
		return "not_found"
	}
}

// Decision 判定结果；只有 Allow 且非本人时才需要计一次浏览
type Decision struct {
	Outcome Outcome
	IsOwner bool
}

// CountsView 是否需要浏览数 +1
func (d Decision) CountsView() bool {
	return d.Outcome == OutcomeAllow && !d.IsOwner
}

// ListStore 访问控制依赖的存储能力
type ListStore interface {
	FindByID(ctx context.Context, id uint) (*model.RecommendationList, error)
	IncrementViews(ctx context.Context, id uint) error
}

// SecretVerifier 私有列表密码校验
type SecretVerifier interface {
	Verify(ctx context.Context, secret, hash string) (bool, error)
}

// AttemptLimiter 按 key 统计密码错误次数
type AttemptLimiter interface {
	Blocked(key string) bool
	Fail(key string)
	Reset(key string)
}

// AccessEvaluator 单个列表读取的访问控制
type AccessEvaluator struct {
	store    ListStore
	verifier SecretVerifier
	attempts AttemptLimiter
	logger   *slog.Logger
}

// NewAccessEvaluator attempts 可以为 nil（不限制尝试次数）
func NewAccessEvaluator(store ListStore, verifier SecretVerifier, attempts AttemptLimiter, logger *slog.Logger) *AccessEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessEvaluator{store: store, verifier: verifier, attempts: attempts, logger: logger}
}

// Evaluate 按顺序判定：停用 -> 本人 -> 公开 -> 私有密码。
// secret 为空串视为未提供；错误密码与未提供密码返回同一结果。
// 存储/校验错误原样返回，不做掩盖。
func (e *AccessEvaluator) Evaluate(ctx context.Context, requester uint, list *model.RecommendationList, secret string) (Decision, error) {
	if list == nil || !list.IsActive {
		return Decision{Outcome: OutcomeNotFound}, nil
	}
	if list.IsOwnedBy(requester) {
		return Decision{Outcome: OutcomeAllow, IsOwner: true}, nil
	}
	if !list.IsPrivate {
		return Decision{Outcome: OutcomeAllow}, nil
	}
	if secret == "" {
		return Decision{Outcome: OutcomeRequireSecret}, nil
	}
	ok, err := e.verifier.Verify(ctx, secret, list.SecretHash)
	if err != nil {
		return Decision{}, fmt.Errorf("verify list secret: %w", err)
	}
	if !ok {
		return Decision{Outcome: OutcomeRequireSecret}, nil
	}
	return Decision{Outcome: OutcomeAllow}, nil
}

// OpenRequest 读取单个列表的请求
type OpenRequest struct {
	Requester uint   // 0 表示匿名
	ListID    uint
	Secret    string // 来自 ?password=
	Client    string // 客户端标识（IP），用于统计密码错误次数
}

// Opened 通过访问控制的列表
type Opened struct {
	List    *model.RecommendationList
	IsOwner bool
}

// Open 加载列表、判定访问并在非本人访问时原子地增加浏览数
func (e *AccessEvaluator) Open(ctx context.Context, req OpenRequest) (*Opened, error) {
	list, err := e.store.FindByID(ctx, req.ListID)
	if err != nil {
		return nil, fmt.Errorf("load list %d: %w", req.ListID, err)
	}

	attemptKey := fmt.Sprintf("%s:%d", req.Client, req.ListID)
	guarded := e.attempts != nil && req.Secret != "" && list != nil && list.IsPrivate && !list.IsOwnedBy(req.Requester)
	if guarded && e.attempts.Blocked(attemptKey) {
		return nil, apperr.New(apperr.KindTooManyRequests, "Too many password attempts, please try again later")
	}

	decision, err := e.Evaluate(ctx, req.Requester, list, req.Secret)
	if err != nil {
		return nil, err
	}

	switch decision.Outcome {
	case OutcomeNotFound:
		return nil, apperr.NotFound("Recommendation list not found")
	case OutcomeRequireSecret:
		if guarded {
			e.attempts.Fail(attemptKey)
		}
		e.logger.Info("私有列表需要密码", "list_id", req.ListID, "secret_supplied", req.Secret != "")
		return nil, apperr.RequireSecret()
	}

	if guarded {
		e.attempts.Reset(attemptKey)
	}
	if decision.CountsView() {
		if err := e.store.IncrementViews(ctx, list.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.NotFound("Recommendation list not found")
			}
			return nil, fmt.Errorf("increment views %d: %w", list.ID, err)
		}
		list.ViewCount++
	}
	return &Opened{List: list, IsOwner: decision.IsOwner}, nil
}
