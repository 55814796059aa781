package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"event-service/internal/metrics"
	"event-service/internal/service"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const userContextKey = "user"

// JWTAuth validates the bearer token and stores the analyst on the
// request context.
func JWTAuth(authService *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "no token provided",
				})
			}

			token := strings.TrimPrefix(header, "Bearer ")

			claims, err := authService.ParseToken(token)
			if err != nil {
				log.WithError(err).Debug("Rejected request with invalid token")
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid token",
				})
			}

			c.Set(userContextKey, claims.User())
			return next(c)
		}
	}
}

// Metrics records a Prometheus counter and duration histogram for the
// named operation.
func Metrics(operation string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			metrics.EventOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			metrics.EventOperations.WithLabelValues(operation, strconv.Itoa(status)).Inc()

			return err
		}
	}
}
