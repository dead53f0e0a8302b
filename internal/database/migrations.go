package database

import (
	"fmt"

	"lightbnb/server/internal/models"
)

// RunMigrations creates or updates the schema and installs the reservation
// overlap guard.
func (d *Database) RunMigrations() error {
	err := d.orm.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.PropertyReview{},
		&models.Reservation{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	for _, stmt := range d.dialect.overlapGuard() {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to install reservation overlap guard: %w", err)
		}
	}

	d.logger.WithField("dialect", d.dialect).Info("Database migrations completed")
	return nil
}
