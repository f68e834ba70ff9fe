// Package database opens, creates and migrates the SQL database backing the sqlx repositories.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/storage/database/migrations"
)

// supported engines
const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
	Memory   = "memory" // served by the inmem repositories
)

func dsn(dbName string, admin bool, conf *core.Config) string {
	if conf.Database.Engine == SQLite {
		return dbName
	}

	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   Postgres,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	switch conf.Database.Engine {
	case Postgres:
		return sqlx.Open(Postgres, dsn(dbName, admin, conf))
	case SQLite:
		db, err := sqlx.Open(SQLite, dsn(dbName, admin, conf))
		if err != nil {
			return nil, err
		}
		// an in-memory database only lives as long as its connection
		db.SetMaxOpenConns(1)
		if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "enabling foreign keys")
		}
		return db, nil
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
}

// Open connects to the app database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(ctx context.Context, db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	err := db.GetContext(ctx, &found, db.Rebind(query), name)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}
	return found, nil
}

func createAppUser(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = ?", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = ?", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the app user and database on postgres. SQLite databases are created on open.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	if conf.Database.Engine != Postgres {
		return nil
	}

	// connect as admin
	admin, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()
	if err = ping(admin); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(ctx, admin, conf); err != nil {
		return err
	}

	// create DB as app user
	db, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	return createDB(ctx, db, conf)
}

// Migrate applies every pending migration.
func Migrate(db *sqlx.DB, conf *core.Config) error {
	return RunMigrations(goose.RunFS, db, conf, "up")
}

// RunMigrations runs a goose command against the embedded migrations using run.
func RunMigrations(
	run func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error,
	db *sqlx.DB,
	conf *core.Config,
	command string,
	args ...string,
) error {
	if err := goose.SetDialect(conf.Database.Engine); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	if err := run(command, db.DB, migrations.FS, ".", args...); err != nil {
		return errors.Wrapf(err, "running migrations %s", command)
	}
	return nil
}
