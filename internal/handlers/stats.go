package handlers

import (
	"net/http"
	"sort"

	"mahoot/internal/auth"
	"mahoot/internal/followees"
	"mahoot/internal/preferences"
	"mahoot/internal/stats"

	"github.com/gin-gonic/gin"
)

// topAuthorsLimit caps the "top authors by monthly views" list.
const topAuthorsLimit = 10

// StatsHandler serves consumption statistics
type StatsHandler struct {
	prefs     *preferences.Service
	followees *followees.Service
	stats     *stats.Service
	verifier  auth.Verifier
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(prefs *preferences.Service, reg *followees.Service, agg *stats.Service, verifier auth.Verifier) *StatsHandler {
	return &StatsHandler{prefs: prefs, followees: reg, stats: agg, verifier: verifier}
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
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

	edges, err := h.followees.List(did)
	if err != nil {
		respondError(c, err)
		return
	}

	muted := 0
	pinned := 0
	for _, edge := range edges {
		if edge.Muted() {
			muted++
		}
		if edge.Pinned {
			pinned++
		}
	}

	rolling, err := h.stats.Rolling30Day(did)
	if err != nil {
		respondError(c, err)
		return
	}

	authors, err := h.stats.AllAuthorStats(did)
	if err != nil {
		respondError(c, err)
		return
	}
	sort.SliceStable(authors, func(i, j int) bool {
		return authors[i].ViewedThisMonth > authors[j].ViewedThisMonth
	})
	if len(authors) > topAuthorsLimit {
		authors = authors[:topAuthorsLimit]
	}

	c.JSON(http.StatusOK, gin.H{
		"preferences": prefs,
		"followees": gin.H{
			"count":  len(edges),
			"muted":  muted,
			"pinned": pinned,
		},
		"usage_30d":   rolling,
		"top_authors": authors,
	})
}
