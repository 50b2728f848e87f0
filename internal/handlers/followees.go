package handlers

import (
	"net/http"

	"mahoot/internal/auth"
	"mahoot/internal/followees"

	"github.com/gin-gonic/gin"
)

// FolloweesHandler serves the followee quota management API
type FolloweesHandler struct {
	followees *followees.Service
	verifier  auth.Verifier
}

// NewFolloweesHandler creates a new followees handler
func NewFolloweesHandler(reg *followees.Service, verifier auth.Verifier) *FolloweesHandler {
	return &FolloweesHandler{followees: reg, verifier: verifier}
}

type setQuotaRequest struct {
	Quota int `json:"quota"`
}

// ListFollowees handles GET /api/followees
func (h *FolloweesHandler) ListFollowees(c *gin.Context) {
	did := requesterDID(c, h.verifier)
	if did == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "Authentication required"},
		})
		return
	}

	edges, err := h.followees.List(did)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"followees": edges,
		"count":     len(edges),
	})
}

// SetQuota handles PUT /api/followees/:did/quota. Quota 0 mutes the
// followee; any explicit quota pins the edge against default
// recalculation.
func (h *FolloweesHandler) SetQuota(c *gin.Context) {
	did := requesterDID(c, h.verifier)
	if did == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "Authentication required"},
		})
		return
	}

	followeeDID := c.Param("did")

	var req setQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": "Invalid request body"},
		})
		return
	}

	edge, err := h.followees.SetQuota(did, followeeDID, req.Quota)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, edge)
}

// RemoveFollowee handles DELETE /api/followees/:did. Removing an absent
// edge succeeds.
func (h *FolloweesHandler) RemoveFollowee(c *gin.Context) {
	did := requesterDID(c, h.verifier)
	if did == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "Authentication required"},
		})
		return
	}

	if err := h.followees.Remove(did, c.Param("did")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": c.Param("did")})
}
