package properties

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightbnb/server/internal/database"
	"lightbnb/server/internal/models"
)

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate() {
	c.calls++
}

func setupService(t *testing.T) (*Service, *countingInvalidator) {
	db, err := database.NewTestDatabase(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.UpsertCatalog(db.Gorm(context.Background()), &models.CatalogBatch{
		Users: []models.User{{ID: 1, Name: "Owner", Email: "owner@example.com", Password: "hash"}},
	}))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	inv := &countingInvalidator{}
	return NewService(db, inv, logger), inv
}

func validProperty() NewProperty {
	return NewProperty{
		OwnerID:           1,
		Title:             "Cozy loft",
		Description:       "description",
		ThumbnailPhotoURL: "https://images.example.com/thumb.jpg",
		CoverPhotoURL:     "https://images.example.com/cover.jpg",
		CostPerNight:      125.5,
		ParkingSpaces:     1,
		NumberOfBathrooms: 1,
		NumberOfBedrooms:  2,
		Country:           "Canada",
		Street:            "536 Namsub Highway",
		City:              "Sotboske",
		Province:          "Quebec",
		PostCode:          "28142",
	}
}

func TestService_Add(t *testing.T) {
	svc, inv := setupService(t)

	property, err := svc.Add(context.Background(), validProperty())
	require.NoError(t, err)
	require.NotNil(t, property)

	assert.NotZero(t, property.ID)
	assert.Equal(t, int64(12550), property.CostPerNight)
	assert.True(t, property.Active)
	assert.Equal(t, 1, inv.calls)

	stored, err := svc.Get(context.Background(), property.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, *property, *stored)
}

func TestService_AddRejectsInvalidInput(t *testing.T) {
	svc, inv := setupService(t)

	tests := []struct {
		name   string
		mutate func(*NewProperty)
		field  string
	}{
		{name: "Missing title", mutate: func(p *NewProperty) { p.Title = "  " }, field: "title"},
		{name: "Negative cost", mutate: func(p *NewProperty) { p.CostPerNight = -1 }, field: "cost_per_night"},
		{name: "Overflowing cost", mutate: func(p *NewProperty) { p.CostPerNight = 1e17 }, field: "cost_per_night"},
		{name: "Infinite cost", mutate: func(p *NewProperty) { p.CostPerNight = math.Inf(1) }, field: "cost_per_night"},
		{name: "Cost not a number", mutate: func(p *NewProperty) { p.CostPerNight = math.NaN() }, field: "cost_per_night"},
		{name: "Bad photo url", mutate: func(p *NewProperty) { p.CoverPhotoURL = "not a url" }, field: "cover_photo_url"},
		{name: "Missing city", mutate: func(p *NewProperty) { p.City = "" }, field: "city"},
		{name: "Unknown owner", mutate: func(p *NewProperty) { p.OwnerID = 42 }, field: "owner_id"},
		{name: "Missing owner", mutate: func(p *NewProperty) { p.OwnerID = 0 }, field: "owner_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validProperty()
			tt.mutate(&in)

			_, err := svc.Add(context.Background(), in)
			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Zero(t, inv.calls)
}

func TestService_GetMissing(t *testing.T) {
	svc, _ := setupService(t)

	property, err := svc.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, property)
}
