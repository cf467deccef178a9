// Package sqlite — каталог товаров в SQLite. Эмбеддинги хранятся в текстовой форме (JSON-массив).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/DRSN-tech/shop-recommender/db/migrations"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jimlawless/whereami"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Open открывает (или создаёт) базу по пути path и применяет миграции.
func Open(ctx context.Context, path string, log logger.Logger) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	db, err := sql.Open(driverName, path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := runMigrations(db, log); err != nil {
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

func runMigrations(db *sql.DB, log logger.Logger) error {
	const op = "sqlite.runMigrations"

	source, err := iofs.New(migrations.FS, migrations.SQLiteDir)
	if err != nil {
		return e.Wrap(op, err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return e.Wrap(op, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return e.Wrap(op, err)
	}

	log.Infof("sqlite migrations applied successfully")
	return nil
}
