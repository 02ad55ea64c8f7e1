package main

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jayg2309/bingekaro/internal/config"
	"github.com/jayg2309/bingekaro/internal/logging"
)

// app 子命令共享的运行时
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	var envFile string
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "bingekaro",
		Short:         "BingeKaro recommendation list API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsConfig(cmd) {
				return nil
			}
			return a.load(envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an optional .env file")

	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newMigrateCommand(a))
	rootCmd.AddCommand(newCleanupCommand(a))

	return rootCmd
}

// skipsConfig help 和 completion 不需要配置
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion":
			return true
		}
	}
	return false
}

// load 加载环境变量、配置和日志
func (a *app) load(envFile string) error {
	envErr := godotenv.Load(envFile)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("未找到 .env 文件，使用系统环境变量", "path", envFile)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}
