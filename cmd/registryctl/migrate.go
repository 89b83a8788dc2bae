package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/versioning"
)

var migrateTimeout time.Duration

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the registry schema",
	Long: `Runs every store's schema migration under the migration lock, so
concurrent replicas racing to migrate serialize instead of corrupting each
other. PostgreSQL uses an advisory lock; other databases a lock table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRegistry()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
		defer cancel()

		locker := datastore.NewMigrationLocker(r.db)
		start := time.Now()
		err = locker.WithLock(ctx, func() error {
			migrations := []struct {
				name string
				run  func() error
			}{
				{"sources", r.sources.AutoMigrate},
				{"audit", r.audit.AutoMigrate},
				{"entities", func() error { return versioning.AutoMigrateEntities(r.db) }},
				{"brands", func() error { return versioning.AutoMigrateBrands(r.db) }},
				{"safety_info", r.safety.AutoMigrate},
				{"products", r.products.AutoMigrate},
				{"claims", r.claims.AutoMigrate},
				{"responsibilities", r.resp.AutoMigrate},
				{"identifiers", r.ids.AutoMigrate},
			}
			for _, m := range migrations {
				if err := m.run(); err != nil {
					return fmt.Errorf("migrate %s: %w", m.name, err)
				}
				slog.Info("migrated", "tables", m.name)
			}
			return nil
		})
		if err != nil {
			return err
		}

		slog.Info("migration complete", "took", time.Since(start))
		return nil
	},
}

func init() {
	migrateCmd.Flags().DurationVar(&migrateTimeout, "timeout", 5*time.Minute, "Abort if the migration lock is not acquired in time")
}
