package handlers

import (
	"net/http"
	"os"
	"strconv"

	"mahoot/internal/allocator"
	"mahoot/internal/auth"
	"mahoot/internal/followees"
	"mahoot/internal/worker"

	"github.com/gin-gonic/gin"
)

// FeedHandler serves the AT Protocol custom feed endpoints
type FeedHandler struct {
	allocator *allocator.Service
	followees *followees.Service
	verifier  auth.Verifier
	worker    *worker.Service
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(alloc *allocator.Service, reg *followees.Service, verifier auth.Verifier, workerService *worker.Service) *FeedHandler {
	return &FeedHandler{
		allocator: alloc,
		followees: reg,
		verifier:  verifier,
		worker:    workerService,
	}
}

// GetFeedSkeleton handles GET /xrpc/app.bsky.feed.getFeedSkeleton.
// Every post in the returned page is recorded as viewed for the
// requester, whether or not their client renders it.
func (h *FeedHandler) GetFeedSkeleton(c *gin.Context) {
	did := requesterDID(c, h.verifier)
	if did == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "Authentication required"},
		})
		return
	}

	// First sight of a viewer bootstraps their followee edges.
	if _, err := h.followees.EnsureViewer(did); err != nil {
		respondError(c, err)
		return
	}

	// Non-positive page sizes are passed through; the allocator
	// short-circuits them to an empty page.
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if limit > 100 {
		limit = 100
	}

	page, err := h.allocator.GenerateFeed(did, limit, c.Query("cursor"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// DescribeFeedGenerator handles GET /xrpc/app.bsky.feed.describeFeedGenerator
func (h *FeedHandler) DescribeFeedGenerator(c *gin.Context) {
	serviceDID := os.Getenv("FEEDGEN_SERVICE_DID")
	if serviceDID == "" {
		serviceDID = "did:web:feed.mahoot.example"
	}

	c.JSON(http.StatusOK, gin.H{
		"did": serviceDID,
		"feeds": []gin.H{
			{
				"uri":         "at://" + serviceDID + "/app.bsky.feed.generator/mahoot",
				"displayName": "Mahoot",
				"description": "A fair daily slice of your timeline: every followee gets a guaranteed share, nobody can drown out the rest.",
			},
		},
	})
}

// HealthCheck handles GET /health
func (h *FeedHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "mahoot",
	})
}

// WorkerStatus handles GET /api/worker/status
func (h *FeedHandler) WorkerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"worker_status": h.worker.GetStatus(),
	})
}
