package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/berizaryad/maintenance-backend/internal/middleware"
	"github.com/berizaryad/maintenance-backend/profile"
	"github.com/berizaryad/maintenance-backend/station"
)

type stationResponse struct {
	Key              string            `json:"key"`
	ID               int64             `json:"id"`
	Number           string            `json:"number,omitempty"`
	Address          string            `json:"address,omitempty"`
	Organization     string            `json:"organization,omitempty"`
	Serviced         bool              `json:"serviced"`
	ServicedBy       string            `json:"servicedBy,omitempty"`
	ServicedByName   string            `json:"servicedByName,omitempty"`
	ServicedDate     *time.Time        `json:"servicedDate,omitempty"`
	Slots            int               `json:"slots"`
	Status           string            `json:"status,omitempty"`
	Urgent           bool              `json:"urgent"`
	PhotoURL         string            `json:"photoUrl,omitempty"`
	PhotoURLs        []string          `json:"photoUrls"`
	LastComment      string            `json:"lastComment,omitempty"`
	ResponsibleName  string            `json:"responsibleName,omitempty"`
	ResponsiblePhone string            `json:"responsiblePhone,omitempty"`
	Comments         []commentResponse `json:"comments,omitempty"`
}

type commentResponse struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Timestamp  time.Time `json:"timestamp"`
}

func toStationResponse(s station.Station) stationResponse {
	resp := stationResponse{
		Key:              s.Key,
		ID:               s.ID,
		Number:           s.Number.String,
		Address:          s.Address.String,
		Organization:     s.Organization.String,
		Serviced:         s.Serviced,
		ServicedBy:       s.ServicedBy.String,
		ServicedByName:   s.ServicedByName.String,
		Slots:            s.Slots,
		Status:           s.Status.String,
		Urgent:           s.Urgent,
		PhotoURL:         s.PhotoURL.String,
		PhotoURLs:        s.PhotoURLs,
		LastComment:      s.LastComment.String,
		ResponsibleName:  s.ResponsibleName.String,
		ResponsiblePhone: s.ResponsiblePhone.String,
	}
	if s.PhotoURLs == nil {
		resp.PhotoURLs = []string{}
	}
	if s.ServicedDate.Valid {
		t := s.ServicedDate.Time
		resp.ServicedDate = &t
	}
	for _, cm := range s.Comments {
		resp.Comments = append(resp.Comments, commentResponse{
			ID:         cm.ID,
			Text:       cm.Text,
			AuthorID:   cm.AuthorID,
			AuthorName: cm.AuthorName,
			Timestamp:  cm.Timestamp,
		})
	}
	return resp
}

func stationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid station id"})
		return 0, false
	}
	return id, true
}

// actor resolves the caller's id (phone) and display name for audit fields.
func (a *API) actor(c *gin.Context) (id, name string, ok bool) {
	phone, ok := middleware.GetPhone(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", "", false
	}
	p, err := a.pr.GetByPhone(c.Request.Context(), phone)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return "", "", false
	}
	if p != nil {
		return phone, p.DisplayName(), true
	}
	return phone, "", true
}

func (a *API) stationsHandler(c *gin.Context) {
	stations, err := a.sr.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]stationResponse, 0, len(stations))
	for _, s := range stations {
		resp = append(resp, toStationResponse(s))
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) stationHandler(c *gin.Context) {
	id, ok := stationID(c)
	if !ok {
		return
	}

	s, err := a.sr.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, station.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toStationResponse(s))
}

type setUrgentRequest struct {
	Urgent *bool `json:"urgent" binding:"required"`
}

func (a *API) setUrgentHandler(c *gin.Context) {
	id, ok := stationID(c)
	if !ok {
		return
	}

	var req setUrgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.sr.SetUrgent(c.Request.Context(), id, *req.Urgent); err != nil {
		a.stationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type setResponsibleRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (a *API) setResponsibleHandler(c *gin.Context) {
	id, ok := stationID(c)
	if !ok {
		return
	}

	var req setResponsibleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.sr.SetResponsible(c.Request.Context(), id, req.Name, req.Phone); err != nil {
		a.stationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type markServicedRequest struct {
	Comment string `json:"comment"`
}

func (a *API) markServicedHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, ok := stationID(c)
	if !ok {
		return
	}

	var req markServicedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, actorName, ok := a.actor(c)
	if !ok {
		return
	}

	if err := a.sr.MarkServiced(c.Request.Context(), id, req.Comment, actorID, actorName); err != nil {
		logger.Error("Failed to mark station serviced", "error", err, "station", id)
		a.stationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) resetServiceHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, ok := stationID(c)
	if !ok {
		return
	}

	if err := a.sr.ResetService(c.Request.Context(), id); err != nil {
		logger.Error("Failed to reset service status", "error", err, "station", id)
		a.stationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type markMultipleServicedRequest struct {
	IDs     []int64 `json:"ids" binding:"required,min=1"`
	Comment string  `json:"comment"`
}

func (a *API) markMultipleServicedHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	var req markMultipleServicedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, actorName, ok := a.actor(c)
	if !ok {
		return
	}

	err := a.sr.MarkMultipleServiced(c.Request.Context(), req.IDs, req.Comment, actorID, actorName)
	var partial *station.PartialFailure
	if errors.As(err, &partial) {
		c.JSON(http.StatusMultiStatus, gin.H{"failedIds": partial.FailedIDs})
		return
	}
	if err != nil {
		logger.Error("Failed to mark stations serviced", "error", err)
		a.stationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) uploadPhotoHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, ok := stationID(c)
	if !ok {
		return
	}

	data, err := c.GetRawData()
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty photo body"})
		return
	}

	url, err := a.uploader.Upload(c.Request.Context(), id, data)
	if err != nil {
		logger.Error("Photo upload failed", "error", err, "station", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The blob is already stored; a failed attach leaves it orphaned and is
	// reported with the URL so the caller can retry the attach alone.
	if err := a.sr.AppendPhotoURL(c.Request.Context(), id, url); err != nil {
		logger.Error("Photo attach failed", "error", err, "station", id, "url", url)
		if errors.Is(err, station.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "url": url})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "url": url})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (a *API) stationError(c *gin.Context, err error) {
	if errors.Is(err, station.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
