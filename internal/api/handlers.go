package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lightbnb/server/internal/database"
	"lightbnb/server/internal/models"
	"lightbnb/server/internal/properties"
	"lightbnb/server/internal/reservations"
	"lightbnb/server/internal/search"
	"lightbnb/server/internal/users"
)

// Services bundles the operations exposed over HTTP.
type Services struct {
	DB           *database.Database
	Search       *search.Service
	Properties   *properties.Service
	Reservations *reservations.Service
	Users        *users.Service
}

type Handler struct {
	services Services
	logger   *logrus.Logger
}

type SearchRequest struct {
	search.Criteria
	Limit int `form:"limit"`
}

type ReservationRequest struct {
	PropertyID int64  `json:"property_id"`
	GuestID    int64  `json:"guest_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

func NewHandler(services Services, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		services: services,
		logger:   logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.services.DB.Ping(ctx); err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) SearchProperties(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.WithError(err).Warn("Failed to parse search parameters")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search parameters"})
		return
	}

	listings, err := h.services.Search.Search(c.Request.Context(), req.Criteria, req.Limit)
	if err != nil {
		h.respondError(c, err, "search properties")
		return
	}

	c.JSON(http.StatusOK, gin.H{"properties": listings})
}

func (h *Handler) GetProperty(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	property, err := h.services.Properties.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "get property")
		return
	}
	if property == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}

	c.JSON(http.StatusOK, property)
}

func (h *Handler) AddProperty(c *gin.Context) {
	var req properties.NewProperty
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Failed to parse property")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	property, err := h.services.Properties.Add(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "add property")
		return
	}

	c.JSON(http.StatusCreated, property)
}

func (h *Handler) BookReservation(c *gin.Context) {
	var req ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Failed to parse reservation")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	start, err := reservations.ParseDate("start_date", req.StartDate)
	if err != nil {
		h.respondError(c, err, "book reservation")
		return
	}
	end, err := reservations.ParseDate("end_date", req.EndDate)
	if err != nil {
		h.respondError(c, err, "book reservation")
		return
	}

	reservation, err := h.services.Reservations.Book(c.Request.Context(), reservations.BookingRequest{
		PropertyID: req.PropertyID,
		GuestID:    req.GuestID,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		h.respondError(c, err, "book reservation")
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	user, err := h.services.Users.FindByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "get user")
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) FindUser(c *gin.Context) {
	user, err := h.services.Users.FindByEmail(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.respondError(c, err, "find user")
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) AddUser(c *gin.Context) {
	var req users.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Failed to parse user")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.services.Users.Add(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "add user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *Handler) GetUserReservations(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = reservations.DefaultListLimit
	}

	list, err := h.services.Reservations.ListForGuest(c.Request.Context(), id, limit)
	if err != nil {
		h.respondError(c, err, "list reservations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": list})
}

func (h *Handler) idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps service errors onto HTTP responses. Storage failures
// are reported without their cause.
func (h *Handler) respondError(c *gin.Context, err error, action string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, models.ErrReservationConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("Failed to " + action)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}
