package models

// Property is a rental listing. CostPerNight is stored in minor currency
// units (cents).
type Property struct {
	ID                int64  `json:"id" gorm:"primaryKey;index:idx_properties_cost_id,priority:2"`
	OwnerID           int64  `json:"owner_id" gorm:"not null;index"`
	Owner             *User  `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Title             string `json:"title" gorm:"not null"`
	Description       string `json:"description"`
	ThumbnailPhotoURL string `json:"thumbnail_photo_url"`
	CoverPhotoURL     string `json:"cover_photo_url"`
	CostPerNight      int64  `json:"cost_per_night" gorm:"not null;index:idx_properties_cost_id,priority:1"`
	ParkingSpaces     int    `json:"parking_spaces"`
	NumberOfBathrooms int    `json:"number_of_bathrooms"`
	NumberOfBedrooms  int    `json:"number_of_bedrooms"`
	Country           string `json:"country"`
	Street            string `json:"street"`
	City              string `json:"city" gorm:"index"`
	Province          string `json:"province"`
	PostCode          string `json:"post_code"`
	Active            bool   `json:"active" gorm:"not null"`
}

type PropertyReview struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	PropertyID int64     `json:"property_id" gorm:"not null;index"`
	Property   *Property `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	GuestID    *int64    `json:"guest_id"`
	Guest      *User     `json:"-" gorm:"foreignKey:GuestID;constraint:OnDelete:SET NULL"`
	Rating     int       `json:"rating" gorm:"not null;check:chk_property_reviews_rating,rating BETWEEN 1 AND 5"`
	Message    string    `json:"message"`
}

// PropertyListing is a search result row: a property annotated with the
// mean of its review ratings. AverageRating is nil when the property has
// no reviews.
type PropertyListing struct {
	Property
	AverageRating *float64 `json:"average_rating"`
}
