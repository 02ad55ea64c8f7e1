package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jayg2309/bingekaro/internal/repository"
	"github.com/jayg2309/bingekaro/internal/service"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)
			a.logger.Info("数据库迁移完成", "driver", a.cfg.DBDriver)
			return nil
		},
	}
}

func newCleanupCommand(a *app) *cobra.Command {
	var retentionDays int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Permanently remove lists deleted longer ago than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			if retentionDays < 0 {
				return errors.New("--retention-days must not be negative")
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			retention := a.cfg.ListRetention
			if cmd.Flags().Changed("retention-days") {
				retention = time.Duration(retentionDays) * 24 * time.Hour
			}
			repos := repository.NewRepositories(db)
			purged := service.NewCleanupService(repos.List, retention, a.cfg.CleanupInterval, a.logger).RunOnce(context.Background())
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d lists\n", purged)
			return nil
		},
	}
	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "Override LIST_RETENTION_DAYS")
	return cmd
}
