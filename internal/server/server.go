package server

import (
	"database/sql"
	"errors"
	"net/http"

	"event-service/internal/domain"
	"event-service/internal/service"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type Server struct {
	eventService service.EventServiceInterface
	authService  *service.AuthService
	db           *sql.DB
}

func NewServer(eventService service.EventServiceInterface, authService *service.AuthService, db *sql.DB) *Server {
	return &Server{
		eventService: eventService,
		authService:  authService,
		db:           db,
	}
}

func (s *Server) HealthCheck(c echo.Context) error {
	if err := s.db.Ping(); err != nil {
		log.WithField("error", err).Error("Health check failed: database is down")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database connection error",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) Login(c echo.Context) error {
	var req domain.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	token, err := s.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid username or password",
			})
		}
		log.WithError(err).WithField("username", req.Username).Error("Login failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, domain.LoginResponse{Token: token})
}

// handleEventError maps domain errors onto HTTP status codes.
func handleEventError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		return http.StatusNotFound, "event not found"
	case errors.Is(err, domain.ErrSampleNotFound):
		return http.StatusNotFound, "sample not found"
	case errors.Is(err, domain.ErrReleasabilityNotFound):
		return http.StatusNotFound, "releasability not found"
	case errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrInvalidEventType),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrEmptySample),
		errors.Is(err, domain.ErrSourceRequired):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrDuplicateSample),
		errors.Is(err, domain.ErrReleasabilityExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "operation not permitted"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// currentUser returns the analyst stored by the auth middleware.
func currentUser(c echo.Context) *domain.User {
	if user, ok := c.Get(userContextKey).(*domain.User); ok {
		return user
	}
	return &domain.User{}
}
