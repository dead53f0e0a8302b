package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"lightbnb/server/internal/models"
	"lightbnb/server/internal/reservations"
	"lightbnb/server/internal/users"
)

// Catalog is the content of a fixture file. Costs are in cents, dates are
// formatted YYYY-MM-DD and passwords may be plaintext or bcrypt hashes.
type Catalog struct {
	Users        []User        `json:"users" yaml:"users"`
	Properties   []Property    `json:"properties" yaml:"properties"`
	Reviews      []Review      `json:"property_reviews" yaml:"property_reviews"`
	Reservations []Reservation `json:"reservations" yaml:"reservations"`
}

type User struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
}

type Property struct {
	ID                int64  `json:"id" yaml:"id"`
	OwnerID           int64  `json:"owner_id" yaml:"owner_id"`
	Title             string `json:"title" yaml:"title"`
	Description       string `json:"description" yaml:"description"`
	ThumbnailPhotoURL string `json:"thumbnail_photo_url" yaml:"thumbnail_photo_url"`
	CoverPhotoURL     string `json:"cover_photo_url" yaml:"cover_photo_url"`
	CostPerNight      int64  `json:"cost_per_night" yaml:"cost_per_night"`
	ParkingSpaces     int    `json:"parking_spaces" yaml:"parking_spaces"`
	NumberOfBathrooms int    `json:"number_of_bathrooms" yaml:"number_of_bathrooms"`
	NumberOfBedrooms  int    `json:"number_of_bedrooms" yaml:"number_of_bedrooms"`
	Country           string `json:"country" yaml:"country"`
	Street            string `json:"street" yaml:"street"`
	City              string `json:"city" yaml:"city"`
	Province          string `json:"province" yaml:"province"`
	PostCode          string `json:"post_code" yaml:"post_code"`
	// Active defaults to true
	Active *bool `json:"active" yaml:"active"`
}

type Review struct {
	ID         int64  `json:"id" yaml:"id"`
	PropertyID int64  `json:"property_id" yaml:"property_id"`
	GuestID    *int64 `json:"guest_id" yaml:"guest_id"`
	Rating     int    `json:"rating" yaml:"rating"`
	Message    string `json:"message" yaml:"message"`
}

type Reservation struct {
	ID         int64  `json:"id" yaml:"id"`
	PropertyID int64  `json:"property_id" yaml:"property_id"`
	GuestID    int64  `json:"guest_id" yaml:"guest_id"`
	StartDate  string `json:"start_date" yaml:"start_date"`
	EndDate    string `json:"end_date" yaml:"end_date"`
}

// LoadFile parses a JSON (.json) or YAML (.yaml, .yml) fixture.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var catalog Catalog
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &catalog)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &catalog)
	default:
		return nil, fmt.Errorf("unsupported fixture format: %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &catalog, nil
}

// Len returns the number of records in the catalog.
func (c *Catalog) Len() int {
	return len(c.Users) + len(c.Properties) + len(c.Reviews) + len(c.Reservations)
}

// Batches converts the catalog into batches of at most size records.
// Batches hold one kind of record and are returned in foreign-key order.
func (c *Catalog) Batches(size int) ([]*models.CatalogBatch, error) {
	if size <= 0 {
		size = 100
	}
	var batches []*models.CatalogBatch

	for start := 0; start < len(c.Users); start += size {
		batch := &models.CatalogBatch{}
		for _, u := range c.Users[start:min(start+size, len(c.Users))] {
			hash, err := users.EnsureHashed(u.Password)
			if err != nil {
				return nil, fmt.Errorf("user %d: %w", u.ID, err)
			}
			batch.Users = append(batch.Users, models.User{ID: u.ID, Name: u.Name, Email: u.Email, Password: hash})
		}
		batches = append(batches, batch)
	}

	for start := 0; start < len(c.Properties); start += size {
		batch := &models.CatalogBatch{}
		for _, p := range c.Properties[start:min(start+size, len(c.Properties))] {
			batch.Properties = append(batch.Properties, p.model())
		}
		batches = append(batches, batch)
	}

	for start := 0; start < len(c.Reviews); start += size {
		batch := &models.CatalogBatch{}
		for _, r := range c.Reviews[start:min(start+size, len(c.Reviews))] {
			if r.Rating < 1 || r.Rating > 5 {
				return nil, fmt.Errorf("review of property %d: rating %d is outside 1..5", r.PropertyID, r.Rating)
			}
			batch.Reviews = append(batch.Reviews, models.PropertyReview{
				ID:         r.ID,
				PropertyID: r.PropertyID,
				GuestID:    r.GuestID,
				Rating:     r.Rating,
				Message:    r.Message,
			})
		}
		batches = append(batches, batch)
	}

	for start := 0; start < len(c.Reservations); start += size {
		batch := &models.CatalogBatch{}
		for _, r := range c.Reservations[start:min(start+size, len(c.Reservations))] {
			reservation, err := r.model()
			if err != nil {
				return nil, fmt.Errorf("reservation %d: %w", r.ID, err)
			}
			batch.Reservations = append(batch.Reservations, reservation)
		}
		batches = append(batches, batch)
	}

	return batches, nil
}

func (p Property) model() models.Property {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return models.Property{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		Title:             p.Title,
		Description:       p.Description,
		ThumbnailPhotoURL: p.ThumbnailPhotoURL,
		CoverPhotoURL:     p.CoverPhotoURL,
		CostPerNight:      p.CostPerNight,
		ParkingSpaces:     p.ParkingSpaces,
		NumberOfBathrooms: p.NumberOfBathrooms,
		NumberOfBedrooms:  p.NumberOfBedrooms,
		Country:           p.Country,
		Street:            p.Street,
		City:              p.City,
		Province:          p.Province,
		PostCode:          p.PostCode,
		Active:            active,
	}
}

func (r Reservation) model() (models.Reservation, error) {
	start, err := reservations.ParseDate("start_date", r.StartDate)
	if err != nil {
		return models.Reservation{}, err
	}
	end, err := reservations.ParseDate("end_date", r.EndDate)
	if err != nil {
		return models.Reservation{}, err
	}
	if !start.Before(end) {
		return models.Reservation{}, fmt.Errorf("end_date %s is not after start_date %s", r.EndDate, r.StartDate)
	}
	return models.Reservation{
		ID:         r.ID,
		StartDate:  start,
		EndDate:    end,
		PropertyID: r.PropertyID,
		GuestID:    r.GuestID,
	}, nil
}
