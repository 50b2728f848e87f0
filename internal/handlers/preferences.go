package handlers

import (
	"net/http"

	"mahoot/internal/auth"
	"mahoot/internal/preferences"

	"github.com/gin-gonic/gin"
)

// PreferencesHandler serves the viewer preferences API
type PreferencesHandler struct {
	prefs    *preferences.Service
	verifier auth.Verifier
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(prefs *preferences.Service, verifier auth.Verifier) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs, verifier: verifier}
}

type updatePreferencesRequest struct {
	DailyPostLimit *int `json:"daily_post_limit"`
	DefaultQuota   *int `json:"default_quota"`
}

// GetPreferences handles GET /api/preferences
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	did := requesterDID(c, h.verifier)
	if did == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "Authentication required"},
		})
		return
	}

	prefs, err := h.prefs.GetOrCreate(did)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/preferences. Both fields are
// optional; each present field is validated before any mutation.
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	did := requesterDID(c, h.verifier)
	if did == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "Authentication required"},
		})
		return
	}

	var req updatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": "Invalid request body"},
		})
		return
	}

	prefs, err := h.prefs.GetOrCreate(did)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.DailyPostLimit != nil {
		prefs, err = h.prefs.SetDailyLimit(did, *req.DailyPostLimit)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	if req.DefaultQuota != nil {
		prefs, err = h.prefs.SetDefaultQuota(did, *req.DefaultQuota)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, prefs)
}
