// Package main is the operator CLI: schema migrations, admin bootstrap and audit purges.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kariyerai/backend/config"
	"github.com/kariyerai/backend/internal/adminlog"
	"github.com/kariyerai/backend/internal/auth"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/pkg/database"
	"github.com/kariyerai/backend/pkg/utils"
)

var rootCmd = &cobra.Command{
	Use:           "kariyerctl",
	Short:         "KariyerAI operator tools",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply embedded SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(pool *pgxpool.Pool, logger *zap.Logger) error {
			if err := database.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		})
	},
}

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an ADMIN account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateAdmin(adminEmail, adminPassword, adminName); err != nil {
			return err
		}
		return withPool(cmd.Context(), func(pool *pgxpool.Pool, logger *zap.Logger) error {
			hash, err := utils.HashPassword(adminPassword)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			u, err := auth.NewRepository(pool).Create(cmd.Context(), auth.CreateUserParams{
				Email: adminEmail, PasswordHash: hash, FullName: adminName, Role: models.RoleAdmin,
			})
			if err != nil {
				return err
			}
			logger.Info("admin created", zap.String("user_id", u.ID.String()), zap.String("email", u.Email))
			return nil
		})
	},
}

var (
	purgeDays int
	purgeBy   string
)

var purgeLogsCmd = &cobra.Command{
	Use:   "purge-logs",
	Short: "Delete admin audit entries older than N days",
	RunE: func(cmd *cobra.Command, args []string) error {
		if purgeDays < 1 {
			return errors.New("--older-than-days must be at least 1")
		}
		if strings.TrimSpace(purgeBy) == "" {
			return errors.New("--admin-email is required to attribute the purge")
		}
		return withPool(cmd.Context(), func(pool *pgxpool.Pool, logger *zap.Logger) error {
			ctx := cmd.Context()
			admin, err := auth.NewRepository(pool).GetByEmail(ctx, purgeBy)
			if err != nil {
				return fmt.Errorf("look up %s: %w", purgeBy, err)
			}
			if admin.Role != models.RoleAdmin {
				return fmt.Errorf("%s is not an admin", purgeBy)
			}
			store := adminlog.NewRepository(pool)
			cutoff := time.Now().AddDate(0, 0, -purgeDays)
			n, err := store.Purge(ctx, cutoff)
			if err != nil {
				return err
			}
			details := fmt.Sprintf(`{"olderThanDays":%d,"before":%q,"deleted":%d,"via":"cli"}`, purgeDays, cutoff.UTC().Format(time.RFC3339), n)
			err = adminlog.NewRecorder(store, logger).Append(ctx, &models.AdminLog{
				AdminID:    admin.ID,
				Action:     models.ActionDelete,
				TargetType: models.TargetAdminLog,
				Details:    []byte(details),
				IPAddress:  "127.0.0.1",
			})
			logger.Info("admin logs purged", zap.Int64("deleted", n), zap.Bool("audit_recorded", err == nil))
			return purgeResult(n, err)
		})
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (min 6 characters)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "Admin", "full name")
	purgeLogsCmd.Flags().IntVar(&purgeDays, "older-than-days", 30, "delete entries older than this many days")
	purgeLogsCmd.Flags().StringVar(&purgeBy, "admin-email", "", "admin the purge is recorded under")

	rootCmd.AddCommand(migrateCmd, createAdminCmd, purgeLogsCmd)
}

// purgeResult fails the command when the purge itself could not be audited.
func purgeResult(deleted int64, auditErr error) error {
	if auditErr != nil {
		return fmt.Errorf("purged %d entries but the audit entry was not recorded: %w", deleted, auditErr)
	}
	return nil
}

func validateAdmin(email, password, name string) error {
	if !strings.Contains(email, "@") {
		return errors.New("--email must be a valid address")
	}
	if err := utils.ValidatePassword(password); err != nil {
		return fmt.Errorf("--password: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("--name must not be empty")
	}
	return nil
}

func withPool(ctx context.Context, fn func(*pgxpool.Pool, *zap.Logger) error) error {
	logger := newLogger()
	defer logger.Sync()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool, logger)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
