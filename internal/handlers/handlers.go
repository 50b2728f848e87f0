// Package handlers wires the feed generator's HTTP surface: the XRPC
// feed endpoints Bluesky calls and the JSON API viewers use to manage
// preferences, followee quotas, and statistics.
package handlers

import (
	"errors"
	"net/http"

	"mahoot/internal/apperrors"
	"mahoot/internal/auth"

	"github.com/gin-gonic/gin"
)

// requesterDID resolves the requester identity from the Authorization
// header. Empty string means unauthenticated.
func requesterDID(c *gin.Context, verifier auth.Verifier) string {
	did, ok := verifier.ValidateToken(c.GetHeader("Authorization"))
	if !ok {
		return ""
	}
	return did
}

// respondError maps the error taxonomy onto HTTP statuses. Storage
// errors surface as 500 with the message intact; retry policy belongs
// to the caller.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "Authentication required"},
		})
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": err.Error()},
		})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{"message": err.Error()},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"message": err.Error()},
		})
	}
}
