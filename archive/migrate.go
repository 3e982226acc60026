package archive

import (
	"embed"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vibecheck/vibegraph/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrate applies all pending migrations in filename order
func (a *Archive) migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return errors.Wrap(err, "reading migrations")
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, filename := range files {
		version := strings.Split(filename, "_")[0]

		// schema_migrations is created by 000, so the lookup fails exactly once
		var exists bool
		err := a.db.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version,
		).Scan(&exists)
		if err != nil {
			if version != "000" {
				return errors.Newf("schema_migrations table missing, but migration is not 000: %s", filename)
			}
		} else if exists {
			continue
		}

		sqlBytes, err := migrations.ReadFile(filepath.Join("migrations", filename))
		if err != nil {
			return errors.Wrapf(err, "reading %s", filename)
		}

		tx, err := a.db.Begin()
		if err != nil {
			return errors.Wrapf(err, "beginning tx for %s", filename)
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "executing %s", filename)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "recording %s", filename)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "committing %s", filename)
		}

		a.logger.Debugw("Applied migration", "migration", filename)
	}

	return nil
}
