package search

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"lightbnb/server/internal/cache"
	"lightbnb/server/internal/database"
	"lightbnb/server/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Options struct {
	DefaultLimit int
	MaxLimit     int
	// IncludeUnreviewed lists properties without reviews, with a nil
	// average that never satisfies a minimum rating. When false such
	// properties are dropped by an inner join.
	IncludeUnreviewed bool
}

// Service answers property searches against the catalog.
type Service struct {
	db     *database.Database
	cache  *cache.SearchCache
	opts   Options
	logger *logrus.Logger
}

// NewService creates a search service. searchCache may be nil.
func NewService(db *database.Database, searchCache *cache.SearchCache, opts Options, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxLimit
	}

	return &Service{
		db:     db,
		cache:  searchCache,
		opts:   opts,
		logger: logger,
	}
}

// Search returns up to limit properties matching c, cheapest first, each
// with its average rating. A non-positive limit selects the default.
func (s *Service) Search(ctx context.Context, c Criteria, limit int) ([]models.PropertyListing, error) {
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return nil, models.NewValidationError("limit", fmt.Sprintf("must be at most %d", s.opts.MaxLimit))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var key string
	if s.cache != nil {
		key = s.cache.Key(c.fingerprint(limit))
		if listings, found := s.cache.Get(key); found {
			return listings, nil
		}
	}

	query, args := Build(c, limit, s.opts.IncludeUnreviewed).Render(s.db.Dialect().Placeholder)

	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	listings, err := s.query(ctx, query, args)
	if err != nil {
		s.logger.WithError(err).WithField("criteria", c).Error("Failed to search properties")
		return nil, models.NewStorageError("search properties", err)
	}

	if s.cache != nil {
		s.cache.Set(key, listings)
	}
	return listings, nil
}

// Invalidate drops cached results after the catalog changes.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

func (s *Service) query(ctx context.Context, query string, args []interface{}) ([]models.PropertyListing, error) {
	rows, err := s.db.QueryRendered(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]models.PropertyListing, 0)
	for rows.Next() {
		var l models.PropertyListing
		var avg sql.NullFloat64
		if err := database.ScanProperty(rows, &l.Property, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		l.AverageRating = database.NullableFloat(avg)
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}
	return listings, nil
}
