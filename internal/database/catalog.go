package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lightbnb/server/internal/models"
)

// UpsertCatalog writes a catalog batch in foreign-key order. Records whose
// id already exists are left untouched, so reloading fixtures is a no-op.
func UpsertCatalog(tx *gorm.DB, batch *models.CatalogBatch) error {
	// Each insert needs its own statement; a shared one stays bound to the
	// first table.
	onConflict := func() *gorm.DB {
		return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true})
	}

	if len(batch.Users) > 0 {
		if err := onConflict().Create(&batch.Users).Error; err != nil {
			return fmt.Errorf("failed to upsert users: %w", err)
		}
	}
	if len(batch.Properties) > 0 {
		if err := onConflict().Create(&batch.Properties).Error; err != nil {
			return fmt.Errorf("failed to upsert properties: %w", err)
		}
	}
	if len(batch.Reviews) > 0 {
		if err := onConflict().Create(&batch.Reviews).Error; err != nil {
			return fmt.Errorf("failed to upsert property reviews: %w", err)
		}
	}
	if len(batch.Reservations) > 0 {
		if err := onConflict().Create(&batch.Reservations).Error; err != nil {
			return fmt.Errorf("failed to upsert reservations: %w", err)
		}
	}

	dialect, err := ParseDialect(tx.Dialector.Name())
	if err != nil {
		return err
	}
	return dialect.resetSequences(tx, "users", "properties", "property_reviews", "reservations")
}
