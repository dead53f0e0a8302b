package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lightbnb/server/config"
)

// OverlapConstraint names the storage-level guard against overlapping
// reservations.
const OverlapConstraint = "reservations_no_overlap"

// Database is the storage adapter shared by every service. Reads go through
// parameterized statements on the pool; writes use gorm on the same pool.
type Database struct {
	db           *sql.DB
	orm          *gorm.DB
	dialect      Dialect
	queryTimeout time.Duration
	logger       *logrus.Logger
}

// NewDatabase opens the configured pool and attaches gorm to it.
func NewDatabase(cfg *config.Config, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	dialect, err := ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.driverName(), dialect.prepareDSN(cfg.Database.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newDatabase(db, dialect, cfg.Database.QueryTimeout, logger)
}

func newDatabase(db *sql.DB, dialect Dialect, queryTimeout time.Duration, logger *logrus.Logger) (*Database, error) {
	orm, err := gorm.Open(dialect.gormDialector(db), &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}

	return &Database{
		db:           db,
		orm:          orm,
		dialect:      dialect,
		queryTimeout: queryTimeout,
		logger:       logger,
	}, nil
}

func (d *Database) Dialect() Dialect {
	return d.dialect
}

// WithTimeout bounds a single storage call by the configured query timeout.
func (d *Database) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.queryTimeout)
}

// QueryContext runs a statement written with '?' markers.
func (d *Database) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.dialect.Rebind(query), args...)
}

// QueryRowContext runs a single-row statement written with '?' markers.
func (d *Database) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return d.db.QueryRowContext(ctx, d.dialect.Rebind(query), args...)
}

// QueryRendered runs a statement whose placeholders were already rendered
// for this dialect.
func (d *Database) QueryRendered(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

// Gorm returns a gorm session bound to ctx.
func (d *Database) Gorm(ctx context.Context) *gorm.DB {
	return d.orm.WithContext(ctx)
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.db.Close()
}

// IsOverlapViolation reports whether err was raised by the reservation
// overlap guard.
func IsOverlapViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), OverlapConstraint)
}

// IsNoRows reports whether err is the "no result" outcome of a lookup.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation reports whether err was raised by a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
