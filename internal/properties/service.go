package properties

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"lightbnb/server/internal/database"
	"lightbnb/server/internal/models"
	"lightbnb/server/internal/validation"
)

// NewProperty is the input of Add. CostPerNight is in major currency units.
type NewProperty struct {
	OwnerID           int64   `json:"owner_id" validate:"required,gt=0"`
	Title             string  `json:"title" validate:"required,max=255"`
	Description       string  `json:"description"`
	ThumbnailPhotoURL string  `json:"thumbnail_photo_url" validate:"omitempty,url"`
	CoverPhotoURL     string  `json:"cover_photo_url" validate:"omitempty,url"`
	CostPerNight      float64 `json:"cost_per_night" validate:"gte=0"`
	ParkingSpaces     int     `json:"parking_spaces" validate:"gte=0"`
	NumberOfBathrooms int     `json:"number_of_bathrooms" validate:"gte=0"`
	NumberOfBedrooms  int     `json:"number_of_bedrooms" validate:"gte=0"`
	Country           string  `json:"country" validate:"required"`
	Street            string  `json:"street" validate:"required"`
	City              string  `json:"city" validate:"required"`
	Province          string  `json:"province" validate:"required"`
	PostCode          string  `json:"post_code" validate:"required"`
}

// Invalidator is notified when the catalog changes.
type Invalidator interface {
	Invalidate()
}

type Service struct {
	db          *database.Database
	invalidator Invalidator
	logger      *logrus.Logger
}

// NewService creates a property service. invalidator may be nil.
func NewService(db *database.Database, invalidator Invalidator, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Service{db: db, invalidator: invalidator, logger: logger}
}

// Add lists a new active property for an existing owner.
func (s *Service) Add(ctx context.Context, in NewProperty) (*models.Property, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.City = strings.TrimSpace(in.City)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	cost, err := models.ToCents("cost_per_night", in.CostPerNight)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	owner, err := s.db.GetUserByID(ctx, in.OwnerID)
	if err != nil {
		s.logger.WithError(err).WithField("owner_id", in.OwnerID).Error("Failed to look up property owner")
		return nil, models.NewStorageError("look up property owner", err)
	}
	if owner == nil {
		return nil, models.NewValidationError("owner_id", "does not reference an existing user")
	}

	property := &models.Property{
		OwnerID:           in.OwnerID,
		Title:             in.Title,
		Description:       in.Description,
		ThumbnailPhotoURL: in.ThumbnailPhotoURL,
		CoverPhotoURL:     in.CoverPhotoURL,
		CostPerNight:      cost,
		ParkingSpaces:     in.ParkingSpaces,
		NumberOfBathrooms: in.NumberOfBathrooms,
		NumberOfBedrooms:  in.NumberOfBedrooms,
		Country:           in.Country,
		Street:            in.Street,
		City:              in.City,
		Province:          in.Province,
		PostCode:          in.PostCode,
		Active:            true,
	}

	if err := s.db.Gorm(ctx).Create(property).Error; err != nil {
		s.logger.WithError(err).Error("Failed to create property")
		return nil, models.NewStorageError("create property", err)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}

	s.logger.WithFields(logrus.Fields{
		"property_id": property.ID,
		"owner_id":    property.OwnerID,
		"city":        property.City,
	}).Info("Property added")
	return property, nil
}

// Get returns the property with id, or nil.
func (s *Service) Get(ctx context.Context, id int64) (*models.Property, error) {
	if id <= 0 {
		return nil, models.NewValidationError("id", "must be greater than 0")
	}

	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	property, err := s.db.GetPropertyByID(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("property_id", id).Error("Failed to get property")
		return nil, models.NewStorageError("get property", err)
	}
	return property, nil
}
