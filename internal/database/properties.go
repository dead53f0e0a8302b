package database

import (
	"context"
	"database/sql"
	"fmt"

	"lightbnb/server/internal/models"
)

// PropertyColumns is the select list matched by ScanProperty.
const PropertyColumns = `
	properties.id,
	properties.owner_id,
	properties.title,
	properties.description,
	properties.thumbnail_photo_url,
	properties.cover_photo_url,
	properties.cost_per_night,
	properties.parking_spaces,
	properties.number_of_bathrooms,
	properties.number_of_bedrooms,
	properties.country,
	properties.street,
	properties.city,
	properties.province,
	properties.post_code,
	properties.active`

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...interface{}) error
}

// ScanProperty scans PropertyColumns into p followed by any extra
// destinations selected after them.
func ScanProperty(s Scanner, p *models.Property, extra ...interface{}) error {
	var description, thumbnail, cover, country, street, city, province, postCode sql.NullString

	dest := []interface{}{
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&description,
		&thumbnail,
		&cover,
		&p.CostPerNight,
		&p.ParkingSpaces,
		&p.NumberOfBathrooms,
		&p.NumberOfBedrooms,
		&country,
		&street,
		&city,
		&province,
		&postCode,
		&p.Active,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	p.Description = description.String
	p.ThumbnailPhotoURL = thumbnail.String
	p.CoverPhotoURL = cover.String
	p.Country = country.String
	p.Street = street.String
	p.City = city.String
	p.Province = province.String
	p.PostCode = postCode.String
	return nil
}

// NullableFloat converts an aggregate that may be NULL.
func NullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// GetPropertyByID returns nil when no property has the given id.
func (d *Database) GetPropertyByID(ctx context.Context, id int64) (*models.Property, error) {
	var p models.Property
	row := d.QueryRowContext(ctx, `SELECT `+PropertyColumns+` FROM properties WHERE properties.id = ?`, id)
	if err := ScanProperty(row, &p); err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query property: %w", err)
	}
	return &p, nil
}
