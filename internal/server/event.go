package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"event-service/internal/domain"
	"event-service/internal/metrics"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

func (s *Server) CreateEvent(c echo.Context) error {
	var req domain.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	event, err := s.eventService.CreateEvent(c.Request().Context(), req, user.Username)
	if err != nil {
		log.WithError(err).Error("Failed to create event")
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, event)
}

func (s *Server) ListEvents(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	offsetStr := c.QueryParam("offset")

	limit := 10
	offset := 0

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	user := currentUser(c)
	events, err := s.eventService.ListEvents(c.Request().Context(), user, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list events")
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, events)
}

func (s *Server) UpdateTitle(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "event ID is required",
		})
	}

	var req domain.UpdateTitleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	if err := s.eventService.UpdateTitle(c.Request().Context(), id, req.Title, user.Username); err != nil {
		log.WithError(err).WithField("event_id", id).Error("Failed to update title")
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "title updated successfully",
	})
}

func (s *Server) UpdateType(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "event ID is required",
		})
	}

	var req domain.UpdateTypeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	if err := s.eventService.UpdateType(c.Request().Context(), id, req.EventType, user.Username); err != nil {
		log.WithError(err).WithField("event_id", id).Error("Failed to update event type")
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "event type updated successfully",
	})
}

func (s *Server) EventTypeOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"types": s.eventService.EventTypeOptions(),
	})
}

func (s *Server) UpdateStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "event ID is required",
		})
	}

	var req domain.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	if err := s.eventService.UpdateStatus(c.Request().Context(), id, req.Status, user.Username); err != nil {
		log.WithError(err).WithField("event_id", id).Error("Failed to update status")
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "status updated successfully",
	})
}

func (s *Server) DeleteEvent(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "event ID is required",
		})
	}

	user := currentUser(c)
	if err := s.eventService.DeleteEvent(c.Request().Context(), id, user); err != nil {
		log.WithError(err).WithField("event_id", id).Error("Failed to delete event")
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.NoContent(http.StatusNoContent)
}

// UploadSample accepts a multipart form with a "filedata" file part and
// a "source" field.
func (s *Server) UploadSample(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "event ID is required",
		})
	}

	fileHeader, err := c.FormFile("filedata")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "file is required",
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "could not read uploaded file",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "could not read uploaded file",
		})
	}

	user := currentUser(c)
	sample, err := s.eventService.UploadSample(c.Request().Context(), id,
		fileHeader.Filename, c.FormValue("source"), user.Username, data)
	if err != nil {
		log.WithError(err).WithField("event_id", id).Error("Failed to upload sample")
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	metrics.SampleBytesStored.Add(float64(sample.Size))

	return c.JSON(http.StatusCreated, sample)
}

// Download serves the zip built from the download form selection. The
// selection arrives either as JSON or as form checkbox values.
func (s *Server) Download(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "event ID is required",
		})
	}

	var req domain.DownloadRequest
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid request body",
			})
		}
	} else {
		if form, err := c.FormParams(); err == nil {
			req.ObjectIDs = form["object_ids"]
			req.SampleIDs = form["sample_ids"]
		}
	}

	var buf bytes.Buffer
	filename, err := s.eventService.WriteDownload(c.Request().Context(), id, req, &buf)
	if err != nil {
		log.WithError(err).WithField("event_id", id).Error("Failed to build download")
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "application/zip", buf.Bytes())
}

func (s *Server) AddComment(c echo.Context) error {
	id := c.Param("id")
	var req domain.AddCommentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	comment, err := s.eventService.AddComment(c.Request().Context(), id, req.Text, user.Username)
	if err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, comment)
}

func (s *Server) AddReleasability(c echo.Context) error {
	id := c.Param("id")
	var req domain.AddReleasabilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	if err := s.eventService.AddReleasability(c.Request().Context(), id, req.Name, user.Username); err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "releasability added successfully",
	})
}

func (s *Server) RemoveReleasability(c echo.Context) error {
	id := c.Param("id")
	name := c.Param("name")

	if err := s.eventService.RemoveReleasability(c.Request().Context(), id, name); err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) AddSource(c echo.Context) error {
	id := c.Param("id")
	var req domain.AddSourceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	if err := s.eventService.AddSource(c.Request().Context(), id, req, user.Username); err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "source added successfully",
	})
}

func (s *Server) AddTicket(c echo.Context) error {
	id := c.Param("id")
	var req domain.AddTicketRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	if err := s.eventService.AddTicket(c.Request().Context(), id, req.TicketNumber, user.Username); err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "ticket added successfully",
	})
}

func (s *Server) AddCampaign(c echo.Context) error {
	id := c.Param("id")
	var req domain.AddCampaignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	if err := s.eventService.AddCampaign(c.Request().Context(), id, req, user.Username); err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "campaign added successfully",
	})
}

func (s *Server) AddLocation(c echo.Context) error {
	id := c.Param("id")
	var req domain.AddLocationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	if err := s.eventService.AddLocation(c.Request().Context(), id, req, user.Username); err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "location added successfully",
	})
}

func (s *Server) AddRelationship(c echo.Context) error {
	id := c.Param("id")
	var req domain.AddRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	if err := s.eventService.AddRelationship(c.Request().Context(), id, req, user.Username); err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "relationship added successfully",
	})
}

func (s *Server) AddObject(c echo.Context) error {
	id := c.Param("id")
	var req domain.AddObjectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	user := currentUser(c)
	object, err := s.eventService.AddObject(c.Request().Context(), id, req, user.Username)
	if err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, object)
}

func (s *Server) AddBuckets(c echo.Context) error {
	id := c.Param("id")
	var req domain.AddBucketsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if err := s.eventService.AddBuckets(c.Request().Context(), id, req.Buckets); err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "bucket list updated successfully",
	})
}

func (s *Server) SetSectors(c echo.Context) error {
	id := c.Param("id")
	var req domain.SetSectorsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if err := s.eventService.SetSectors(c.Request().Context(), id, req.Sectors); err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "sectors updated successfully",
	})
}

func (s *Server) AddAnalysisResult(c echo.Context) error {
	id := c.Param("id")
	var req domain.AddAnalysisResultRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	result, err := s.eventService.AddAnalysisResult(c.Request().Context(), id, req)
	if err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusCreated, result)
}

func (s *Server) ToggleSubscription(c echo.Context) error {
	id := c.Param("id")
	user := currentUser(c)

	subscribed, err := s.eventService.ToggleSubscription(c.Request().Context(), id, user.Username)
	if err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, map[string]bool{
		"subscribed": subscribed,
	})
}

func (s *Server) ToggleFavorite(c echo.Context) error {
	id := c.Param("id")
	user := currentUser(c)

	favorite, err := s.eventService.ToggleFavorite(c.Request().Context(), id, user.Username)
	if err != nil {
		statusCode, errorMsg := handleEventError(err)
		return c.JSON(statusCode, map[string]string{
			"error": errorMsg,
		})
	}

	return c.JSON(http.StatusOK, map[string]bool{
		"favorite": favorite,
	})
}
