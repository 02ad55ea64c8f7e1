package service

import (
	"context"
	"log/slog"
	"time"
)

// ListPurger 清理任务依赖的存储能力
type ListPurger interface {
	PurgeInactive(ctx context.Context, before time.Time) (int64, error)
}

// CleanupService 定时物理删除停用超过保留期的列表
type CleanupService struct {
	lists     ListPurger
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewCleanupService 创建清理服务
func NewCleanupService(lists ListPurger, retention, interval time.Duration, logger *slog.Logger) *CleanupService {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CleanupService{lists: lists, retention: retention, interval: interval, logger: logger, now: time.Now}
}

// Start 启动定时清理任务，ctx 取消后退出
func (s *CleanupService) Start(ctx context.Context) {
	go func() {
		// 启动时先运行一次
		s.RunOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce 执行一次清理，返回删除的列表数
func (s *CleanupService) RunOnce(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.retention)
	purged, err := s.lists.PurgeInactive(ctx, cutoff)
	if err != nil {
		s.logger.Error("清理停用列表失败", "error", err)
		return 0
	}
	if purged > 0 {
		s.logger.Info("已清理停用列表", "count", purged, "before", cutoff)
	}
	return purged
}
