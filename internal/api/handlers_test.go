package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lightbnb/server/internal/cache"
	"lightbnb/server/internal/database"
	"lightbnb/server/internal/models"
	"lightbnb/server/internal/properties"
	"lightbnb/server/internal/reservations"
	"lightbnb/server/internal/search"
	"lightbnb/server/internal/users"
)

func setupRouter(t *testing.T) (*gin.Engine, *database.Database) {
	gin.SetMode(gin.TestMode)
	users.HashCost = bcrypt.MinCost
	t.Cleanup(func() { users.HashCost = bcrypt.DefaultCost })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := database.NewTestDatabase(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.UpsertCatalog(db.Gorm(context.Background()), &models.CatalogBatch{
		Users: []models.User{
			{ID: 1, Name: "Owner", Email: "owner@example.com", Password: "hash"},
			{ID: 2, Name: "Guest", Email: "guest@example.com", Password: "hash"},
		},
		Properties: []models.Property{
			{ID: 1, OwnerID: 1, Title: "Loft", City: "Vancouver", CostPerNight: 15000, Active: true},
			{ID: 2, OwnerID: 1, Title: "Cabin", City: "Whistler", CostPerNight: 9000, Active: true},
		},
		Reviews: []models.PropertyReview{{PropertyID: 1, Rating: 5}},
	}))

	searchCache := cache.NewSearchCache(100, time.Minute, "", logger)
	t.Cleanup(searchCache.Close)
	searchService := search.NewService(db, searchCache, search.Options{IncludeUnreviewed: true}, logger)

	handler := NewHandler(Services{
		DB:           db,
		Search:       searchService,
		Properties:   properties.NewService(db, searchService, logger),
		Reservations: reservations.NewService(db, nil, logger),
		Users:        users.NewService(db, logger),
	}, logger)

	return NewRouter(handler, []string{"*"}, logger), db
}

func perform(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	router, db := setupRouter(t)

	w := perform(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	require.NoError(t, db.Close())
	w = perform(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestSearchProperties(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name     string
		query    string
		status   int
		expected []int64
	}{
		{name: "All properties", query: "", status: http.StatusOK, expected: []int64{2, 1}},
		{name: "City filter", query: "?city=vancouver", status: http.StatusOK, expected: []int64{1}},
		{name: "Price filter", query: "?minimum_price_per_night=100", status: http.StatusOK, expected: []int64{1}},
		{name: "Rating filter", query: "?minimum_rating=4", status: http.StatusOK, expected: []int64{1}},
		{name: "Limit", query: "?limit=1", status: http.StatusOK, expected: []int64{2}},
		{name: "Malformed number", query: "?owner_id=abc", status: http.StatusBadRequest},
		{name: "Inverted price range", query: "?minimum_price_per_night=200&maximum_price_per_night=100", status: http.StatusBadRequest},
		{name: "Limit too large", query: "?limit=1000", status: http.StatusBadRequest},
		{name: "Owner filter", query: "?owner_id=2", status: http.StatusOK, expected: []int64{}},
		{name: "Multi-word city", query: "?city=north%20vancouver", status: http.StatusOK, expected: []int64{}},
		{name: "Overflowing price", query: "?minimum_price_per_night=1e17", status: http.StatusBadRequest},
		{name: "Infinite price", query: "?maximum_price_per_night=Inf", status: http.StatusBadRequest},
		{name: "Price not a number", query: "?minimum_price_per_night=NaN", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodGet, "/api/properties"+tt.query, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			var body struct {
				Properties []models.PropertyListing `json:"properties"`
			}
			decode(t, w, &body)
			ids := make([]int64, 0, len(body.Properties))
			for _, p := range body.Properties {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestGetProperty(t *testing.T) {
	router, _ := setupRouter(t)

	w := perform(router, http.MethodGet, "/api/properties/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var property models.Property
	decode(t, w, &property)
	assert.Equal(t, "Loft", property.Title)

	assert.Equal(t, http.StatusNotFound, perform(router, http.MethodGet, "/api/properties/99", nil).Code)
	assert.Equal(t, http.StatusBadRequest, perform(router, http.MethodGet, "/api/properties/abc", nil).Code)
}

func TestAddProperty(t *testing.T) {
	router, _ := setupRouter(t)

	// Warm the search cache
	w := perform(router, http.MethodGet, "/api/properties?city=toronto", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodPost, "/api/properties", map[string]interface{}{
		"owner_id":       1,
		"title":          "Condo",
		"cost_per_night": 120,
		"country":        "Canada",
		"street":         "1 King St",
		"city":           "Toronto",
		"province":       "Ontario",
		"post_code":      "M5H",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var property models.Property
	decode(t, w, &property)
	assert.Equal(t, int64(12000), property.CostPerNight)
	assert.True(t, property.Active)

	// New property is visible despite the cached empty result
	w = perform(router, http.MethodGet, "/api/properties?city=toronto", nil)
	var body struct {
		Properties []models.PropertyListing `json:"properties"`
	}
	decode(t, w, &body)
	require.Len(t, body.Properties, 1)
	assert.Equal(t, property.ID, body.Properties[0].ID)

	w = perform(router, http.MethodPost, "/api/properties", map[string]interface{}{"owner_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errBody map[string]string
	decode(t, w, &errBody)
	assert.Equal(t, "title", errBody["field"])
}

func TestBookReservation(t *testing.T) {
	router, _ := setupRouter(t)

	booking := ReservationRequest{PropertyID: 1, GuestID: 2, StartDate: "2026-03-01", EndDate: "2026-03-05"}

	w := perform(router, http.MethodPost, "/api/reservations", booking)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reservation models.Reservation
	decode(t, w, &reservation)
	assert.NotZero(t, reservation.ID)
	assert.Equal(t, "2026-03-01", reservation.StartDate.Format("2006-01-02"))

	tests := []struct {
		name   string
		req    ReservationRequest
		status int
	}{
		{name: "Overlapping dates", req: booking, status: http.StatusConflict},
		{name: "Reversed dates", req: ReservationRequest{PropertyID: 2, GuestID: 2, StartDate: "2026-03-05", EndDate: "2026-03-01"}, status: http.StatusBadRequest},
		{name: "Bad date format", req: ReservationRequest{PropertyID: 2, GuestID: 2, StartDate: "03/01/2026", EndDate: "2026-03-05"}, status: http.StatusBadRequest},
		{name: "Unknown guest", req: ReservationRequest{PropertyID: 2, GuestID: 42, StartDate: "2026-03-01", EndDate: "2026-03-05"}, status: http.StatusBadRequest},
		{name: "Back to back", req: ReservationRequest{PropertyID: 1, GuestID: 2, StartDate: "2026-03-05", EndDate: "2026-03-07"}, status: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodPost, "/api/reservations", tt.req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w = perform(router, http.MethodGet, "/api/users/2/reservations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Reservations []models.GuestReservation `json:"reservations"`
	}
	decode(t, w, &list)
	require.Len(t, list.Reservations, 2)
	assert.Equal(t, "Loft", list.Reservations[0].Property.Title)
	require.NotNil(t, list.Reservations[0].AverageRating)
	assert.InDelta(t, 5.0, *list.Reservations[0].AverageRating, 0.0001)
}

func TestUsers(t *testing.T) {
	router, _ := setupRouter(t)

	w := perform(router, http.MethodGet, "/api/users/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hash")

	w = perform(router, http.MethodGet, "/api/users?email=guest@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	decode(t, w, &user)
	assert.Equal(t, int64(2), user.ID)

	assert.Equal(t, http.StatusNotFound, perform(router, http.MethodGet, "/api/users/99", nil).Code)
	assert.Equal(t, http.StatusNotFound, perform(router, http.MethodGet, "/api/users?email=nobody@example.com", nil).Code)
	assert.Equal(t, http.StatusBadRequest, perform(router, http.MethodGet, "/api/users", nil).Code)

	w = perform(router, http.MethodPost, "/api/users", users.NewUser{Name: "New", Email: "new@example.com", Password: "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	w = perform(router, http.MethodPost, "/api/users", users.NewUser{Name: "Dup", Email: "new@example.com", Password: "password123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorageFailureIsHidden(t *testing.T) {
	router, db := setupRouter(t)
	require.NoError(t, db.Close())

	w := perform(router, http.MethodGet, "/api/properties", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "Failed to search properties", body["error"])
}
