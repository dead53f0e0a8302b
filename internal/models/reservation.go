package models

import "time"

// Reservation books a property for the half-open date range
// [StartDate, EndDate). Dates are stored at UTC midnight.
type Reservation struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	StartDate  time.Time `json:"start_date" gorm:"not null"`
	EndDate    time.Time `json:"end_date" gorm:"not null;check:chk_reservations_dates,start_date < end_date"`
	PropertyID int64     `json:"property_id" gorm:"not null;index"`
	Property   *Property `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	GuestID    int64     `json:"guest_id" gorm:"not null;index"`
	Guest      *User     `json:"-" gorm:"foreignKey:GuestID;constraint:OnDelete:CASCADE"`
}

// GuestReservation is a reservation joined with the booked property and
// that property's average rating.
type GuestReservation struct {
	Reservation   Reservation `json:"reservation"`
	Property      Property    `json:"property"`
	AverageRating *float64    `json:"average_rating"`
}

// CatalogBatch is a unit of catalog fixtures written in one transaction.
type CatalogBatch struct {
	Users        []User
	Properties   []Property
	Reviews      []PropertyReview
	Reservations []Reservation
}

// Len returns the number of records in the batch.
func (b *CatalogBatch) Len() int {
	return len(b.Users) + len(b.Properties) + len(b.Reviews) + len(b.Reservations)
}
