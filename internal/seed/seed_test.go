package seed

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lightbnb/server/config"
	"lightbnb/server/internal/database"
	"lightbnb/server/internal/models"
	"lightbnb/server/internal/processor"
	"lightbnb/server/internal/queue"
	"lightbnb/server/internal/users"
)

const jsonFixture = `{
	"users": [
		{"id": 1, "name": "Owner", "email": "owner@example.com", "password": "password"},
		{"id": 2, "name": "Guest", "email": "guest@example.com", "password": "password"}
	],
	"properties": [
		{"id": 1, "owner_id": 1, "title": "Loft", "city": "Vancouver", "cost_per_night": 15000},
		{"id": 2, "owner_id": 1, "title": "Shed", "city": "Whistler", "cost_per_night": 5000, "active": false}
	],
	"property_reviews": [
		{"property_id": 1, "guest_id": 2, "rating": 4, "message": "Nice"}
	],
	"reservations": [
		{"id": 1, "property_id": 1, "guest_id": 2, "start_date": "2026-02-01", "end_date": "2026-02-04"}
	]
}`

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeFixture(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fastHashing(t *testing.T) {
	users.HashCost = bcrypt.MinCost
	t.Cleanup(func() { users.HashCost = bcrypt.DefaultCost })
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "JSON fixture", path: writeFixture(t, "catalog.json", jsonFixture)},
		{name: "YAML fixture", path: filepath.Join("..", "..", "seeds", "catalog.yaml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := LoadFile(tt.path)
			require.NoError(t, err)
			assert.NotEmpty(t, catalog.Users)
			assert.NotEmpty(t, catalog.Properties)
			assert.NotEmpty(t, catalog.Reviews)
			assert.NotEmpty(t, catalog.Reservations)
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(writeFixture(t, "catalog.txt", jsonFixture))
	assert.ErrorContains(t, err, "unsupported fixture format")

	_, err = LoadFile(writeFixture(t, "broken.json", "{"))
	assert.ErrorContains(t, err, "failed to parse fixture")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read fixture")
}

func TestCatalog_Batches(t *testing.T) {
	fastHashing(t)

	catalog, err := LoadFile(writeFixture(t, "catalog.json", jsonFixture))
	require.NoError(t, err)

	batches, err := catalog.Batches(1)
	require.NoError(t, err)
	require.Len(t, batches, 6)

	// Foreign-key order
	assert.Len(t, batches[0].Users, 1)
	assert.Len(t, batches[1].Users, 1)
	assert.Len(t, batches[2].Properties, 1)
	assert.Len(t, batches[3].Properties, 1)
	assert.Len(t, batches[4].Reviews, 1)
	assert.Len(t, batches[5].Reservations, 1)

	assert.True(t, users.CheckPassword(batches[0].Users[0].Password, "password"))
	assert.True(t, batches[2].Properties[0].Active)
	assert.False(t, batches[3].Properties[0].Active)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), batches[5].Reservations[0].StartDate)

	all, err := catalog.Batches(100)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCatalog_BatchesRejectsBadRecords(t *testing.T) {
	fastHashing(t)

	badRating := &Catalog{Reviews: []Review{{PropertyID: 1, Rating: 6}}}
	_, err := badRating.Batches(10)
	assert.Error(t, err)

	badDates := &Catalog{Reservations: []Reservation{{ID: 1, StartDate: "2026-02-04", EndDate: "2026-02-01"}}}
	_, err = badDates.Batches(10)
	assert.Error(t, err)

	badFormat := &Catalog{Reservations: []Reservation{{ID: 1, StartDate: "Feb 1", EndDate: "2026-02-04"}}}
	_, err = badFormat.Batches(10)
	assert.Error(t, err)
}

func TestLoader_EnqueueBacksOffWhenFull(t *testing.T) {
	fastHashing(t)
	logger := testLogger()

	q := queue.NewCatalogQueue(1, logger)
	var mu sync.Mutex
	var received []*models.CatalogBatch
	q.Subscribe(func(b *models.CatalogBatch) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		received = append(received, b)
		mu.Unlock()
		return nil
	})
	q.Start()

	catalog, err := LoadFile(writeFixture(t, "catalog.json", jsonFixture))
	require.NoError(t, err)

	pushed, err := NewLoader(q, 1, logger).Enqueue(context.Background(), catalog)
	require.NoError(t, err)
	assert.Equal(t, 6, pushed)

	q.Wait()
	mu.Lock()
	assert.Len(t, received, 6)
	assert.NotEmpty(t, received[0].Users)
	assert.NotEmpty(t, received[5].Reservations)
	mu.Unlock()
}

func TestLoader_EnqueueHonoursContext(t *testing.T) {
	fastHashing(t)
	logger := testLogger()

	// Never started, so the second push finds the queue full
	q := queue.NewCatalogQueue(1, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	catalog := &Catalog{Users: []User{
		{ID: 1, Name: "A", Email: "a@example.com", Password: "password"},
		{ID: 2, Name: "B", Email: "b@example.com", Password: "password"},
	}}
	pushed, err := NewLoader(q, 1, logger).Enqueue(ctx, catalog)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, pushed)
}

func TestLoader_LoadFileIntoDatabase(t *testing.T) {
	fastHashing(t)
	logger := testLogger()

	db, err := database.NewTestDatabase(t.Name())
	require.NoError(t, err)
	defer db.Close()

	cfg := &config.Config{}
	q := queue.NewCatalogQueue(4, logger)
	batchProcessor := processor.NewBatchProcessor(db.Gorm(context.Background()), q, cfg, logger)
	batchProcessor.Start()
	q.Start()
	defer batchProcessor.Stop()

	err = NewLoader(q, 2, logger).LoadFile(context.Background(), filepath.Join("..", "..", "seeds", "catalog.yaml"))
	require.NoError(t, err)

	_, failed := batchProcessor.Stats()
	assert.Zero(t, failed)

	ctx := context.Background()
	owner, err := db.GetUserByEmail(ctx, "sebastianguerra@ymail.com")
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.True(t, users.CheckPassword(owner.Password, "password"))

	property, err := db.GetPropertyByID(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, property)
	assert.Equal(t, "Vancouver", property.City)
	assert.Equal(t, int64(23108), property.CostPerNight)

	var reservations int64
	require.NoError(t, db.Gorm(ctx).Model(&models.Reservation{}).Count(&reservations).Error)
	assert.Equal(t, int64(3), reservations)
}
