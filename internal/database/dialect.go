package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	gomysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect identifies the SQL engine behind the storage adapter.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// ParseDialect maps a configured driver name onto a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3", "":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", name)
	}
}

func (d Dialect) driverName() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	default:
		return "sqlite3"
	}
}

// Placeholder returns the positional parameter marker for the n-th (1-based)
// argument of a statement.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rebind rewrites a statement written with '?' markers into the dialect's
// placeholder style.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// prepareDSN adds the connection options the adapter relies on.
func (d Dialect) prepareDSN(dsn string) string {
	switch d {
	case DialectSQLite:
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
			dsn += sep + "_foreign_keys=on"
			sep = "&"
		}
		if !strings.Contains(dsn, "mode=memory") && !strings.Contains(dsn, "_busy_timeout") {
			dsn += sep + "_busy_timeout=5000&_journal_mode=WAL"
		}
	case DialectMySQL:
		if !strings.Contains(dsn, "parseTime") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "parseTime=true&loc=UTC"
		}
	}
	return dsn
}

func (d Dialect) gormDialector(conn *sql.DB) gorm.Dialector {
	switch d {
	case DialectPostgres:
		return postgres.New(postgres.Config{Conn: conn})
	case DialectMySQL:
		return gomysql.New(gomysql.Config{Conn: conn})
	default:
		return sqlite.New(sqlite.Config{Conn: conn})
	}
}

// overlapGuard returns the DDL that rejects overlapping reservations of the
// same property at the storage level. Every variant raises an error whose
// text contains OverlapConstraint. The triggers skip the row's own id so a
// replayed insert reaches its ON CONFLICT clause.
func (d Dialect) overlapGuard() []string {
	switch d {
	case DialectPostgres:
		return []string{
			`CREATE EXTENSION IF NOT EXISTS btree_gist`,
			`DO $$
			BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '` + OverlapConstraint + `') THEN
					ALTER TABLE reservations ADD CONSTRAINT ` + OverlapConstraint + `
						EXCLUDE USING gist (property_id WITH =, tstzrange(start_date, end_date) WITH &&);
				END IF;
			END $$`,
		}
	case DialectMySQL:
		return []string{
			`DROP TRIGGER IF EXISTS ` + OverlapConstraint,
			`CREATE TRIGGER ` + OverlapConstraint + ` BEFORE INSERT ON reservations
			FOR EACH ROW
			BEGIN
				IF EXISTS (
					SELECT 1 FROM reservations
					WHERE property_id = NEW.property_id
					AND NOT (id <=> NEW.id)
					AND start_date < NEW.end_date
					AND NEW.start_date < end_date
				) THEN
					SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = '` + OverlapConstraint + `: reservation overlaps an existing reservation';
				END IF;
			END`,
		}
	default:
		return []string{
			`DROP TRIGGER IF EXISTS ` + OverlapConstraint,
			`CREATE TRIGGER ` + OverlapConstraint + `
			BEFORE INSERT ON reservations
			FOR EACH ROW
			WHEN EXISTS (
				SELECT 1 FROM reservations
				WHERE property_id = NEW.property_id
				AND id IS NOT NEW.id
				AND start_date < NEW.end_date
				AND NEW.start_date < end_date
			)
			BEGIN
				SELECT RAISE(ABORT, '` + OverlapConstraint + `: reservation overlaps an existing reservation');
			END`,
		}
	}
}

// resetSequences moves serial sequences past explicitly inserted ids.
func (d Dialect) resetSequences(tx *gorm.DB, tables ...string) error {
	if d != DialectPostgres {
		return nil
	}
	for _, table := range tables {
		stmt := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)`,
			table,
		)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to reset %s id sequence: %w", table, err)
		}
	}
	return nil
}
