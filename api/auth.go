package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/berizaryad/maintenance-backend/internal/identity"
	"github.com/berizaryad/maintenance-backend/internal/middleware"
)

type credentialsRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (a *API) signupHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Credentials are rejected locally before the provider is contacted.
	if err := identity.ValidatePhone(req.Phone); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := identity.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tok, err := a.provider.SignUp(c.Request.Context(), identity.Identifier(req.Phone), req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrAuthFailed) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Sign-up failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := a.pr.Create(c.Request.Context(), req.Phone); err != nil {
		logger.Error("Failed to create profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{Token: tok.IDToken})
}

func (a *API) signinHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := identity.ValidatePhone(req.Phone); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := identity.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tok, err := a.provider.SignIn(c.Request.Context(), identity.Identifier(req.Phone), req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrAuthFailed) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Sign-in failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{Token: tok.IDToken})
}

func (a *API) logoutHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := a.provider.SignOut(c.Request.Context(), token); err != nil {
		logger.Error("Sign-out failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
