package search

import (
	"fmt"
	"math"

	"lightbnb/server/internal/models"
)

// MaxRating is the upper bound of a review rating.
const MaxRating = 5

// Criteria narrows a property search. A zero field places no constraint on
// its dimension. Prices are in major currency units.
type Criteria struct {
	City                 string  `form:"city" json:"city"`
	OwnerID              int64   `form:"owner_id" json:"owner_id"`
	MinimumPricePerNight float64 `form:"minimum_price_per_night" json:"minimum_price_per_night"`
	MaximumPricePerNight float64 `form:"maximum_price_per_night" json:"maximum_price_per_night"`
	MinimumRating        float64 `form:"minimum_rating" json:"minimum_rating"`
}

// Validate rejects criteria no property could sensibly match.
func (c Criteria) Validate() error {
	if _, err := models.ToCents("minimum_price_per_night", c.MinimumPricePerNight); err != nil {
		return err
	}
	if _, err := models.ToCents("maximum_price_per_night", c.MaximumPricePerNight); err != nil {
		return err
	}
	switch {
	case c.OwnerID < 0:
		return models.NewValidationError("owner_id", "must not be negative")
	case c.MinimumPricePerNight < 0:
		return models.NewValidationError("minimum_price_per_night", "must not be negative")
	case c.MaximumPricePerNight < 0:
		return models.NewValidationError("maximum_price_per_night", "must not be negative")
	case c.MaximumPricePerNight > 0 && c.MinimumPricePerNight > c.MaximumPricePerNight:
		return models.NewValidationError("minimum_price_per_night", "must not exceed maximum_price_per_night")
	case math.IsNaN(c.MinimumRating) || c.MinimumRating < 0 || c.MinimumRating > MaxRating:
		return models.NewValidationError("minimum_rating", fmt.Sprintf("must be between 0 and %d", MaxRating))
	}
	return nil
}

// fingerprint identifies the criteria and limit in cache keys.
func (c Criteria) fingerprint(limit int) string {
	return fmt.Sprintf("city=%s|owner=%d|min=%d|max=%d|rating=%g|limit=%d",
		c.City, c.OwnerID, toCents(c.MinimumPricePerNight), toCents(c.MaximumPricePerNight), c.MinimumRating, limit)
}

// toCents converts a major-unit amount of validated criteria into minor
// units.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
