// Package database stores the history of benchmark runs in sqlite.
package database

import (
	"database/sql"

	"github.com/apex/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/upper/db/v4"
	"github.com/upper/db/v4/adapter/sqlite"
)

// migrations contains the schema migrations.
var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{{
		Id: "0001-runs",
		Up: []string{`CREATE TABLE runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL UNIQUE,
			start_time DATETIME NOT NULL,
			runtime REAL NOT NULL DEFAULT 0,
			network TEXT NOT NULL,
			domains TEXT NOT NULL,
			resolver_count INTEGER NOT NULL,
			is_done INTEGER NOT NULL DEFAULT 0,
			selection TEXT NOT NULL DEFAULT '',
			interface TEXT NOT NULL DEFAULT '',
			is_applied INTEGER NOT NULL DEFAULT 0
		)`, `CREATE TABLE resolver_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			resolver TEXT NOT NULL,
			rank INTEGER NOT NULL DEFAULT 0,
			success_count INTEGER NOT NULL,
			failure_count INTEGER NOT NULL,
			mean_latency_ms REAL NOT NULL,
			median_latency_ms REAL NOT NULL,
			stddev_latency_ms REAL NOT NULL
		)`, `CREATE INDEX resolver_results_run_id ON resolver_results(run_id)`},
		Down: []string{
			`DROP TABLE resolver_results`,
			`DROP TABLE runs`,
		},
	}},
}

// RunMigrations runs the database migrations.
func RunMigrations(sqldb *sql.DB) error {
	n, err := migrate.Exec(sqldb, "sqlite3", migrations, migrate.Up)
	if err != nil {
		return err
	}
	log.Debugf("performed %d migrations", n)
	return nil
}

// Connect opens the database at path, creating it if needed, and
// makes sure the schema is up to date.
func Connect(path string) (db.Session, error) {
	settings := sqlite.ConnectionURL{
		Database: path,
		Options:  map[string]string{"_foreign_keys": "1"},
	}
	sess, err := sqlite.Open(settings)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	sqldb, ok := sess.Driver().(*sql.DB)
	if !ok {
		sess.Close()
		return nil, errors.New("unexpected database driver")
	}
	if err := RunMigrations(sqldb); err != nil {
		sess.Close()
		return nil, errors.Wrap(err, "running migrations")
	}
	return sess, nil
}
