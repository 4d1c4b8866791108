package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/berizaryad/maintenance-backend/internal/middleware"
	"github.com/berizaryad/maintenance-backend/profile"
)

type profileResponse struct {
	Phone string `json:"phone"`
	FIO   string `json:"fio"`
	Role  string `json:"role"`
}

func (a *API) profileHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	phone, ok := middleware.GetPhone(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	p, err := a.pr.GetByPhone(c.Request.Context(), phone)
	if errors.Is(err, profile.ErrNotFound) {
		// Account exists at the provider but has no profile row yet.
		p = &profile.Profile{Phone: phone, Role: profile.DefaultRole}
	} else if err != nil {
		logger.Error("Failed to load profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		Phone: p.Phone,
		FIO:   p.DisplayName(),
		Role:  p.Role,
	})
}

type updateProfileRequest struct {
	FIO string `json:"fio"`
}

func (a *API) updateProfileHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	phone, ok := middleware.GetPhone(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.pr.UpdateFIO(c.Request.Context(), phone, req.FIO); err != nil {
		logger.Error("Failed to update profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
