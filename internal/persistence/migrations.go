package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/query-engine/internal/config"
	"github.com/spec-kit/query-engine/internal/domain"
)

const migrationsDir = "migrations"

// RunMigrations executes the SQL migrations located in the /migrations directory.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)

	for _, name := range filenames {
		path := filepath.Join(migrationsDir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		logger.Info("applying migration", zap.String("file", name))
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	logger.Info("migrations applied", zap.Int("count", len(filenames)))
	return nil
}

// EnsureBootstrapSuperadmin seeds one superadmin row when enabled and
// none exists, so a fresh deployment has an actor the middleware can
// resolve. Credentials still live with the external auth service.
func EnsureBootstrapSuperadmin(ctx context.Context, pool *pgxpool.Pool, cfg config.AuthConfig, logger *zap.Logger) error {
	if pool == nil || !cfg.EnableBootstrapSeed {
		return nil
	}
	if cfg.BootstrapEmail == "" || cfg.BootstrapPassword == "" {
		logger.Warn("bootstrap seed enabled but email/password not configured; skipping")
		return nil
	}

	var existing string
	err := pool.QueryRow(ctx,
		`SELECT id FROM staff_users WHERE role=$1 LIMIT 1`,
		domain.StaffRoleSuperadmin,
	).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check existing superadmin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapPassword), cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	_, err = pool.Exec(ctx, `
        INSERT INTO staff_users (name, email, password_hash, department, role, active_flag)
        VALUES ($1,$2,$3,$4,$5,TRUE)`,
		cfg.BootstrapName,
		cfg.BootstrapEmail,
		string(hash),
		"Administration",
		domain.StaffRoleSuperadmin,
	)
	if err != nil {
		return fmt.Errorf("seed superadmin: %w", err)
	}
	logger.Info("seeded bootstrap superadmin", zap.String("email", cfg.BootstrapEmail))
	return nil
}
