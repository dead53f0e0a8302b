package database

import (
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// NewTestDatabase opens a migrated in-memory SQLite database private to
// name. It is used by package tests across the module.
func NewTestDatabase(name string) (*Database, error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	dsn := DialectSQLite.prepareDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))

	db, err := sql.Open(DialectSQLite.driverName(), dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps the shared in-memory database alive and
	// serialises writers.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	d, err := newDatabase(db, DialectSQLite, 5*time.Second, logger)
	if err != nil {
		return nil, err
	}
	if err := d.RunMigrations(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}
