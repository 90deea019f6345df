package app

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/Developmizer/Rental-Gates-sub002/internal/repositories"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

const migrateTimeout = 30 * time.Second

//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS

// Migrate applies every embedded migration in name order. Each file is
// written to be re-runnable, so start-up can apply them unconditionally.
func Migrate(ctx context.Context, db repositories.DB) error {
	names, err := fs.Glob(embeddedMigrations, "migrations/*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := embeddedMigrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		utils.Logger.Debugf("Applied migration %s", name)
	}
	return nil
}
