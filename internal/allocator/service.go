// Package allocator implements feed generation: a bounded, fair daily
// slice of a viewer's timeline. Each followee contributes at most its
// Mahoot number of posts per UTC day, higher quotas are serviced first
// when budget is tight, and the viewer's daily post limit is a hard
// ceiling on every page.
package allocator

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"mahoot/internal/apperrors"
	"mahoot/internal/followees"
	"mahoot/internal/models"
	"mahoot/internal/preferences"
	"mahoot/internal/stats"
	"mahoot/internal/views"
)

const (
	// AlgorithmID identifies this allocator in page metadata.
	AlgorithmID = "mahoot"
	// AlgorithmVersion bumps when allocation semantics change.
	AlgorithmVersion = "2.0"

	// overFetchFactor is how many unviewed candidates are pulled per
	// slot, so the shuffle has entropy without scanning the whole
	// unread backlog.
	overFetchFactor = 3
)

// Service generates feed pages and accounts every post it emits
type Service struct {
	prefs     *preferences.Service
	followees *followees.Service
	views     *views.Tracker
	stats     *stats.Service
}

// NewService creates a new feed allocator
func NewService(prefs *preferences.Service, reg *followees.Service, tracker *views.Tracker, agg *stats.Service) *Service {
	return &Service{prefs: prefs, followees: reg, views: tracker, stats: agg}
}

// FeedPage is one generated page plus its descriptive metadata.
type FeedPage struct {
	Cursor *string    `json:"cursor,omitempty"`
	Feed   []FeedItem `json:"feed"`
	Meta   PageMeta   `json:"meta"`
}

// FeedItem is one post reference in a page. Reason and Allocation are
// explicit pointers: absent means nil, never a missing key with hidden
// meaning.
type FeedItem struct {
	Post       string          `json:"post"`
	Reason     *string         `json:"reason"`
	Allocation *AllocationMeta `json:"allocation"`
}

// AllocationMeta describes why and how a post was allocated.
type AllocationMeta struct {
	Quota                int       `json:"quota"`
	IsCustom             bool      `json:"is_custom"`
	PriorityTier         string    `json:"priority_tier"` // high, normal, low
	PositionInAllocation int       `json:"position_in_allocation"`
	AuthorDID            string    `json:"author_did"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// PageMeta describes the viewer's budget state as of the start of the
// call (pre-call values, before this page's views were recorded).
type PageMeta struct {
	Algorithm       string    `json:"algorithm"`
	Version         string    `json:"version"`
	RequesterDID    string    `json:"requester_did"`
	DailyPostLimit  int       `json:"daily_post_limit"`
	DefaultQuota    int       `json:"default_quota"`
	FolloweeCount   int       `json:"followee_count"`
	ViewedToday     int       `json:"viewed_today"`
	RemainingBudget int       `json:"remaining_budget"`
	GeneratedAt     time.Time `json:"generated_at"`
	FeatureFlags    []string  `json:"feature_flags"`
}

// GenerateFeed produces one feed page for the requester and records
// every emitted post as viewed. View records written here are permanent
// even if a later step fails: from the caller's perspective exposure
// already happened.
//
// The cursor parameter is accepted for wire compatibility but not
// consumed; each call recomputes from live state, and idempotency
// against repeated partial views comes from the view records, not from
// cursor resumption.
func (s *Service) GenerateFeed(requesterDID string, pageSize int, cursor string) (*FeedPage, error) {
	_ = cursor

	if requesterDID == "" {
		return nil, apperrors.ErrAuthRequired
	}

	prefs, err := s.prefs.GetOrCreate(requesterDID)
	if err != nil {
		return nil, err
	}

	edges, err := s.followees.List(requesterDID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meta := PageMeta{
		Algorithm:      AlgorithmID,
		Version:        AlgorithmVersion,
		RequesterDID:   requesterDID,
		DailyPostLimit: prefs.DailyPostLimit,
		DefaultQuota:   prefs.DefaultQuota,
		FolloweeCount:  len(edges),
		GeneratedAt:    now,
		FeatureFlags:   prefs.FeatureFlags,
	}

	// Nobody to allocate from; no side effects.
	if len(edges) == 0 {
		meta.RemainingBudget = prefs.DailyPostLimit
		return &FeedPage{Feed: []FeedItem{}, Meta: meta}, nil
	}

	viewedRecords, err := s.views.ViewedToday(requesterDID)
	if err != nil {
		return nil, err
	}
	viewedCount := len(viewedRecords)
	meta.ViewedToday = viewedCount
	meta.RemainingBudget = prefs.DailyPostLimit - viewedCount
	if meta.RemainingBudget < 0 {
		meta.RemainingBudget = 0
	}

	// Daily budget already exhausted; no side effects.
	if viewedCount >= prefs.DailyPostLimit {
		return &FeedPage{Feed: []FeedItem{}, Meta: meta}, nil
	}

	// A non-positive page size falls out of min() as an empty page.
	// This is documented boundary behavior, not a rejected input.
	remaining := prefs.DailyPostLimit - viewedCount
	pageCap := min(remaining, pageSize)
	if pageCap <= 0 {
		return &FeedPage{Feed: []FeedItem{}, Meta: meta}, nil
	}

	viewedByAuthor := make(map[string]int)
	for _, record := range viewedRecords {
		viewedByAuthor[record.AuthorDID]++
	}

	// Priority order: higher quotas ("amped up" followees) are serviced
	// first when budget is tight.
	ordered := make([]models.Followee, len(edges))
	copy(ordered, edges)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Quota > ordered[j].Quota
	})

	type allocated struct {
		post models.Post
		item FeedItem
	}
	var selected []allocated

	for _, edge := range ordered {
		if len(selected) >= pageCap {
			break
		}
		if edge.Muted() {
			continue
		}

		viewedFromAuthor := viewedByAuthor[edge.FolloweeDID]
		if viewedFromAuthor >= edge.Quota {
			continue
		}

		slots := min(edge.Quota-viewedFromAuthor, pageCap-len(selected))
		if slots <= 0 {
			continue
		}

		candidates, err := s.views.UnviewedByAuthor(requesterDID, edge.FolloweeDID, overFetchFactor*slots)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			continue
		}

		picks := candidates[:min(slots, len(candidates))]
		rand.Shuffle(len(picks), func(i, j int) {
			picks[i], picks[j] = picks[j], picks[i]
		})

		for i, post := range picks {
			if err := s.views.Record(post.URI, edge.FolloweeDID, requesterDID); err != nil {
				return nil, err
			}

			selected = append(selected, allocated{
				post: post,
				item: FeedItem{
					Post: post.URI,
					Allocation: &AllocationMeta{
						Quota:                edge.Quota,
						IsCustom:             edge.Quota != prefs.DefaultQuota,
						PriorityTier:         priorityTier(edge.Quota, prefs.DefaultQuota),
						PositionInAllocation: viewedFromAuthor + i + 1,
						AuthorDID:            edge.FolloweeDID,
						GeneratedAt:          now,
					},
				},
			})
		}
	}

	// Newest first across the whole page, on the indexed timestamp.
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].post.IndexedAt.After(selected[j].post.IndexedAt)
	})

	feed := make([]FeedItem, len(selected))
	for i, entry := range selected {
		feed[i] = entry.item
	}

	if err := s.stats.IncrementDaily(requesterDID, now, len(feed), len(edges)); err != nil {
		return nil, err
	}

	page := &FeedPage{Feed: feed, Meta: meta}
	if len(selected) > 0 {
		last := selected[len(selected)-1].post.URI
		next := fmt.Sprintf("%d::%s", now.UnixMilli(), last)
		page.Cursor = &next
	}

	return page, nil
}

// priorityTier compares an edge quota to the viewer's default quota.
func priorityTier(quota, defaultQuota int) string {
	switch {
	case quota > defaultQuota:
		return "high"
	case quota < defaultQuota:
		return "low"
	default:
		return "normal"
	}
}
