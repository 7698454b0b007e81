package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/file"
	"timed-quiz-service/internal/infra/postgres"
	redisinfra "timed-quiz-service/internal/infra/redis"
	"timed-quiz-service/internal/logger"
)

// NewValidateCmd checks catalog files without starting the server.
func NewValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [files...]",
		Short: "Validate quiz catalog files (defaults to catalog.dir)",
		RunE: func(cmd *cobra.Command, args []string) error {
			files := args
			if len(files) == 0 {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				if cfg.Catalog.Dir == "" {
					return errors.New("no files given and catalog.dir not configured")
				}
				files, err = file.NewLoader(cfg.Catalog.Dir).Files()
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			var failed int
			for _, f := range files {
				c, err := file.LoadFile(f)
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %v\n", err)
					continue
				}
				fmt.Fprintf(out, "ok   %s (%s, %d questions)\n", f, c.ID, c.Len())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d catalogs invalid: %w", failed, len(files), domain.ErrInvalidCatalog)
			}
			return nil
		},
	}
}

// NewSeedCmd loads catalogs from a directory into Postgres.
type cacheInvalidator interface {
	Invalidate(ctx context.Context, catalogID string) error
}

// invalidateCached drops cached copies of freshly seeded catalogs so running
// servers reload them.
func invalidateCached(ctx context.Context, cache cacheInvalidator, catalogs []domain.Catalog) error {
	for _, c := range catalogs {
		if err := cache.Invalidate(ctx, c.ID); err != nil {
			return fmt.Errorf("invalidate %q: %w", c.ID, err)
		}
	}
	return nil
}

// NewSeedCmd loads catalogs from a directory into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [dir]",
		Short: "Validate catalogs from a directory and upsert them into Postgres",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			dir := cfg.Catalog.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no directory given and catalog.dir not configured")
			}

			catalogs, err := file.NewLoader(dir).LoadAll()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}
			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Seed(ctx, db, catalogs...); err != nil {
				return err
			}
			log.Info("catalogs seeded", zap.Int("count", len(catalogs)), zap.String("dir", dir))

			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				cache := redisinfra.NewCatalogRepository(client, nil, config.ParseDuration(cfg.Catalog.TTL, 10*time.Minute))
				if err := invalidateCached(ctx, cache, catalogs); err != nil {
					return err
				}
				log.Info("cached catalogs invalidated", zap.Int("count", len(catalogs)))
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			ids, err := postgres.NewCatalogLoader(pool).ListCatalogIDs(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored catalogs: %s\n", strings.Join(ids, ", "))
			return nil
		},
	}
}
