// ABOUTME: Migration utility that copies prospects between the SQLite and Charm backends.
// ABOUTME: Keeps record ids, supports dry runs, and backs up a SQLite target first.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/harperreed/prospekt/charm"
	"github.com/harperreed/prospekt/config"
	"github.com/harperreed/prospekt/db"
	"github.com/harperreed/prospekt/models"
	"github.com/harperreed/prospekt/store"
)

const (
	toCharm  = "sqlite-to-charm"
	toSQLite = "charm-to-sqlite"
)

// backend is what both stores offer for bulk copies.
type backend interface {
	All(ctx context.Context, collection string) ([]models.Prospect, error)
	Import(ctx context.Context, collection string, p models.Prospect) error
}

func main() {
	dbPath := flag.String("db", "", "Path to the SQLite database (default: from config)")
	direction := flag.String("direction", toCharm, "Copy direction: "+toCharm+" or "+toSQLite)
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Back up a SQLite target before writing")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "migrate"})

	cfg, err := config.Load(config.LoadInput{})
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if err := migrate(context.Background(), cfg, logger, *direction, *dryRun, *backup); err != nil {
		logger.Fatal("migration failed", "err", err)
	}

	logger.Info("migration completed successfully")
}

func migrate(ctx context.Context, cfg *config.Config, logger *log.Logger, direction string, dryRun, createBackup bool) error {
	switch direction {
	case toCharm:
		if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
			return fmt.Errorf("database file does not exist: %s", cfg.DBPath)
		}
	case toSQLite:
		if createBackup && !dryRun {
			if err := backupFile(cfg.DBPath, logger); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}

	sqlite, err := db.Open(cfg.DBPath, db.StoreOptions{Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = sqlite.Close() }()

	if err := charm.InitClient(cfg.Charm(), logger); err != nil {
		return fmt.Errorf("failed to open charm: %w", err)
	}
	client, err := charm.GetClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	kv := charm.NewStore(client, charm.StoreOptions{Logger: logger})

	var src, dst backend = sqlite, kv
	if direction == toSQLite {
		if err := client.Sync(); err != nil {
			return fmt.Errorf("failed to sync before reading: %w", err)
		}
		src, dst = kv, sqlite
	}

	records, err := src.All(ctx, store.Collection)
	if err != nil {
		return fmt.Errorf("failed to read prospects: %w", err)
	}
	logger.Info("prospects to copy", "count", len(records), "direction", direction)

	if dryRun {
		for _, p := range records {
			logger.Info("would copy", "id", p.ID, "company", p.Company, "archived", p.Archived)
		}
		logger.Info("DRY RUN - no changes made")
		return nil
	}

	for i, p := range records {
		if err := dst.Import(ctx, store.Collection, p); err != nil {
			return fmt.Errorf("failed to copy %s after %d of %d: %w", p.ID, i, len(records), err)
		}
	}

	if direction == toCharm {
		if err := client.Sync(); err != nil {
			return fmt.Errorf("copied locally but sync failed: %w", err)
		}
	}
	logger.Info("copied prospects", "count", len(records))
	return nil
}

func backupFile(path string, logger *log.Logger) error {
	input, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read database: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, input, 0600); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	logger.Info("backup created", "path", backupPath)
	return nil
}
