package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/jayg2309/bingekaro/internal/credential"
	"github.com/jayg2309/bingekaro/internal/handler"
	"github.com/jayg2309/bingekaro/internal/middleware"
	"github.com/jayg2309/bingekaro/internal/omdb"
	"github.com/jayg2309/bingekaro/internal/repository"
	"github.com/jayg2309/bingekaro/internal/router"
	"github.com/jayg2309/bingekaro/internal/service"
	"github.com/jayg2309/bingekaro/internal/storage"
	"github.com/jayg2309/bingekaro/internal/token"
	"github.com/jayg2309/bingekaro/internal/utils"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// openDB 连接数据库并同步表结构
func (a *app) openDB() (*gorm.DB, error) {
	db, err := repository.InitDB(repository.Options{Driver: a.cfg.DBDriver, DSN: a.cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newLimiter 配置了 REDIS_ADDR 时使用 Redis，否则（或连接失败时）退回进程内计数
func (a *app) newLimiter(ctx context.Context) middleware.Limiter {
	if a.cfg.RedisAddr != "" {
		rdb, err := middleware.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		if err == nil {
			a.logger.Info("限流使用 Redis", "addr", a.cfg.RedisAddr)
			return middleware.NewRedisLimiter(rdb, a.cfg.RateLimitWindow)
		}
		a.logger.Warn("Redis 不可用，限流退回内存", "addr", a.cfg.RedisAddr, "error", err)
	}
	return middleware.NewMemoryLimiter(a.cfg.RateLimitWindow)
}

func (a *app) newCatalog() service.Catalog {
	if a.cfg.OMDbAPIKey == "" {
		a.logger.Warn("未配置 OMDB_API_KEY，媒体搜索不可用")
		return nil
	}
	client, err := omdb.New(a.cfg.OMDbAPIKey, a.cfg.OMDbBaseURL, a.cfg.OMDbTimeout)
	if err != nil {
		a.logger.Warn("OMDb 客户端初始化失败", "error", err)
		return nil
	}
	return client
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger := a.cfg, a.logger

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer closeDB(db)
	repos := repository.NewRepositories(db)

	hasher := credential.NewHasher(cfg.BcryptCost, int64(runtime.NumCPU()))
	tokens, err := token.NewIssuer(cfg.AppSecret, cfg.JWTExpiry)
	if err != nil {
		return err
	}
	avatars, err := storage.NewLocalAvatars(cfg.UploadDir, cfg.UploadURLPrefix, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	users := service.NewUserService(repos.User, repos.Favorite, hasher, tokens, avatars, cfg.MaxUploadBytes, logger)
	attempts := utils.NewAttemptGuard(10000, cfg.SecretAttemptLimit, cfg.SecretAttemptWindow)

	h := handler.NewHandler(handler.Deps{
		Config:  cfg,
		Auth:    middleware.NewAuthenticator(tokens, users, logger),
		Users:   users,
		Lists:   service.NewListService(repos.List, repos.User, hasher, logger),
		Access:  service.NewAccessEvaluator(repos.List, hasher, attempts, logger),
		Search:  service.NewSearchService(a.newCatalog(), logger),
		Avatars: avatars,
		Logger:  logger,
	})

	// 启动定时清理任务
	service.NewCleanupService(repos.List, cfg.ListRetention, cfg.CleanupInterval, logger).Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(h, a.newLimiter(ctx)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务器启动", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("服务器启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("正在关闭服务器...")

	// 5 秒超时上下文用于关闭过程
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}
	logger.Info("服务器已退出")
	return nil
}
