package reservations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lightbnb/server/internal/database"
	"lightbnb/server/internal/events"
	"lightbnb/server/internal/models"
	"lightbnb/server/internal/validation"
)

const DefaultListLimit = 10

// BookingRequest asks for a property over the nights [StartDate, EndDate).
// Only the calendar date of each bound is kept.
type BookingRequest struct {
	PropertyID int64     `json:"property_id" validate:"required,gt=0"`
	GuestID    int64     `json:"guest_id" validate:"required,gt=0"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

type Service struct {
	db        *database.Database
	publisher events.Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService creates a reservation service. publisher may be nil.
func NewService(db *database.Database, publisher events.Publisher, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		db:        db,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Book stores a reservation. It fails with a *models.ValidationError for
// malformed requests or unknown references, models.ErrReservationConflict
// when the dates overlap an existing reservation of the property, and a
// *models.StorageError otherwise.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*models.Reservation, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.StartDate.IsZero() {
		return nil, models.NewValidationError("start_date", "is required")
	}
	if req.EndDate.IsZero() {
		return nil, models.NewValidationError("end_date", "is required")
	}

	start, end := normalizeDate(req.StartDate), normalizeDate(req.EndDate)
	if !start.Before(end) {
		return nil, models.NewValidationError("end_date", "must be after start_date")
	}

	reservation := &models.Reservation{
		StartDate:  start,
		EndDate:    end,
		PropertyID: req.PropertyID,
		GuestID:    req.GuestID,
	}

	txCtx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	err := s.db.Gorm(txCtx).Transaction(func(tx *gorm.DB) error {
		return insertReservation(tx, reservation)
	})

	var verr *models.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		return nil, verr
	case errors.Is(err, models.ErrReservationConflict), database.IsOverlapViolation(err):
		s.logger.WithFields(logrus.Fields{
			"property_id": req.PropertyID,
			"start_date":  start.Format(dateLayout),
			"end_date":    end.Format(dateLayout),
		}).Info("Rejected overlapping reservation")
		return nil, models.ErrReservationConflict
	default:
		s.logger.WithError(err).WithField("property_id", req.PropertyID).Error("Failed to book reservation")
		return nil, models.NewStorageError("book reservation", err)
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id": reservation.ID,
		"property_id":    reservation.PropertyID,
		"guest_id":       reservation.GuestID,
	}).Info("Reservation booked")

	if err := s.publisher.PublishReservation(ctx, events.NewReservationCreated(reservation, s.now())); err != nil {
		s.logger.WithError(err).WithField("reservation_id", reservation.ID).Warn("Failed to publish reservation event")
	}
	return reservation, nil
}

func insertReservation(tx *gorm.DB, r *models.Reservation) error {
	var property models.Property
	if err := tx.Select("id", "active").First(&property, r.PropertyID).Error; err != nil {
		if database.IsNoRows(err) {
			return models.NewValidationError("property_id", "does not reference an existing property")
		}
		return fmt.Errorf("failed to look up property: %w", err)
	}
	if !property.Active {
		return models.NewValidationError("property_id", "is not available for booking")
	}

	var guests int64
	if err := tx.Model(&models.User{}).Where("id = ?", r.GuestID).Count(&guests).Error; err != nil {
		return fmt.Errorf("failed to look up guest: %w", err)
	}
	if guests == 0 {
		return models.NewValidationError("guest_id", "does not reference an existing user")
	}

	var overlapping int64
	err := tx.Model(&models.Reservation{}).
		Where("property_id = ? AND start_date < ? AND ? < end_date", r.PropertyID, r.EndDate, r.StartDate).
		Count(&overlapping).Error
	if err != nil {
		return fmt.Errorf("failed to check overlapping reservations: %w", err)
	}
	if overlapping > 0 {
		return models.ErrReservationConflict
	}

	return tx.Create(r).Error
}

const listForGuestQuery = `
SELECT ` + database.PropertyColumns + `,
	reservations.id,
	reservations.start_date,
	reservations.end_date,
	reservations.property_id,
	reservations.guest_id,
	AVG(property_reviews.rating) AS average_rating
FROM reservations
JOIN properties ON reservations.property_id = properties.id
LEFT JOIN property_reviews ON property_reviews.property_id = properties.id
WHERE reservations.guest_id = ?
GROUP BY properties.id, reservations.id
ORDER BY reservations.start_date, reservations.id
LIMIT ?`

// ListForGuest returns the reservations made by guestID together with the
// booked property and its average rating, earliest first.
func (s *Service) ListForGuest(ctx context.Context, guestID int64, limit int) ([]models.GuestReservation, error) {
	if guestID <= 0 {
		return nil, models.NewValidationError("guest_id", "must be greater than 0")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, listForGuestQuery, guestID, limit)
	if err != nil {
		s.logger.WithError(err).WithField("guest_id", guestID).Error("Failed to list reservations")
		return nil, models.NewStorageError("list reservations", err)
	}
	defer rows.Close()

	result := make([]models.GuestReservation, 0)
	for rows.Next() {
		var gr models.GuestReservation
		var avg sql.NullFloat64
		r := &gr.Reservation
		if err := database.ScanProperty(rows, &gr.Property, &r.ID, &r.StartDate, &r.EndDate, &r.PropertyID, &r.GuestID, &avg); err != nil {
			s.logger.WithError(err).Error("Failed to scan reservation")
			return nil, models.NewStorageError("list reservations", err)
		}
		r.StartDate = r.StartDate.UTC()
		r.EndDate = r.EndDate.UTC()
		gr.AverageRating = database.NullableFloat(avg)
		result = append(result, gr)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStorageError("list reservations", err)
	}
	return result, nil
}
