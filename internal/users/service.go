package users

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"lightbnb/server/internal/database"
	"lightbnb/server/internal/models"
	"lightbnb/server/internal/validation"
)

// NewUser is the input of Add.
type NewUser struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type Service struct {
	db     *database.Database
	logger *logrus.Logger
}

func NewService(db *database.Database, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Service{db: db, logger: logger}
}

// FindByEmail returns the user registered with email, or nil.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, models.NewValidationError("email", "is required")
	}

	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find user by email")
		return nil, models.NewStorageError("find user by email", err)
	}
	return user, nil
}

// FindByID returns the user with id, or nil.
func (s *Service) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, models.NewValidationError("id", "must be greater than 0")
	}

	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", id).Error("Failed to find user by id")
		return nil, models.NewStorageError("find user by id", err)
	}
	return user, nil
}

// Add registers a user. The password is stored as a bcrypt hash.
func (s *Service) Add(ctx context.Context, in NewUser) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("email", "is already registered")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Name: in.Name, Email: in.Email, Password: hash}

	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	if err := s.db.Gorm(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, models.NewValidationError("email", "is already registered")
		}
		s.logger.WithError(err).Error("Failed to create user")
		return nil, models.NewStorageError("create user", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
	}).Info("User registered")
	return user, nil
}
