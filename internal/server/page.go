package server

import (
	"errors"
	"net/http"

	"event-service/internal/domain"
	"event-service/internal/metrics"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type errorPage struct {
	Error string
}

// EventDetailPage renders the server-side event detail page. When the
// event is missing or the viewer has no overlapping source, the error
// template is rendered instead and no detail widget appears.
func (s *Server) EventDetailPage(c echo.Context) error {
	id := c.Param("id")
	user := currentUser(c)

	detail, err := s.eventService.GetEventDetail(c.Request().Context(), id, user)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) || errors.Is(err, domain.ErrForbidden) {
			return c.Render(http.StatusNotFound, "error.html", errorPage{
				Error: "event not yet available or you do not have access to view it.",
			})
		}
		log.WithError(err).WithField("event_id", id).Error("Failed to load event detail")
		return c.Render(http.StatusInternalServerError, "error.html", errorPage{
			Error: "internal server error",
		})
	}

	metrics.DetailPageViews.Inc()

	return c.Render(http.StatusOK, "detail.html", detail)
}
