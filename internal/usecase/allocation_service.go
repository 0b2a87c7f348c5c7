package usecase

import (
	"strings"

	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/internal/domain"
)

// Allocation disciplines
const (
	DisciplineConsume    = "consume"
	DisciplineRoundRobin = "round_robin"
)

// Skip reasons reported in the allocation plan
const (
	skipNoCategoryPool = "no image pool for category"
	skipPoolExhausted  = "no images left in pool"
)

// NewAllocator builds the allocator for the configured discipline
func NewAllocator(discipline string, matcher domain.Matcher, logger *zap.Logger) domain.Allocator {
	if discipline == DisciplineRoundRobin {
		return NewRoundRobinAllocator(logger)
	}
	return NewConsumeOnUseAllocator(matcher, logger)
}

// ConsumeOnUseAllocator gives every image to at most one listing.
// Listings are processed in input order against the images still remaining;
// a listing that matches nothing takes the lexicographically-first remaining image.
type ConsumeOnUseAllocator struct {
	matcher domain.Matcher
	logger  *zap.Logger
}

// NewConsumeOnUseAllocator creates a uniqueness-maximizing allocator
func NewConsumeOnUseAllocator(matcher domain.Matcher, logger *zap.Logger) *ConsumeOnUseAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsumeOnUseAllocator{matcher: matcher, logger: logger.Named("allocator")}
}

// Assign matches each listing against the remaining pool and removes the chosen image
func (a *ConsumeOnUseAllocator) Assign(listings []domain.Listing, catalog *domain.Catalog) *domain.AllocationPlan {
	plan := domain.NewAllocationPlan(len(listings))
	if catalog == nil {
		for _, l := range listings {
			plan.Skip(l, skipPoolExhausted)
		}
		return plan
	}

	// Sorted so that pool[0] is always the fallback candidate.
	pool := sortedByID(catalog.Images)

	for _, listing := range listings {
		if len(pool) == 0 {
			plan.Skip(listing, skipPoolExhausted)
			continue
		}

		result := a.matcher.Match(listing.MatchText(), pool)
		if !result.Matched() {
			fallback := pool[0]
			result = domain.MatchResult{Candidate: &fallback, Fallback: true}
			a.logger.Debug("no match, using fallback image",
				zap.String("listing_id", listing.ID),
				zap.String("image_id", fallback.ID))
		} else {
			a.logger.Debug("matched image",
				zap.String("listing_id", listing.ID),
				zap.String("image_id", result.Candidate.ID),
				zap.Int("score", result.Score))
		}

		plan.Record(listing.ID, result)
		pool = removeURL(pool, result.Candidate.URL)
	}

	return plan
}

// removeURL drops every candidate carrying url, preserving order.
// Catalogs may list one picture under several ids; uniqueness holds per URL.
func removeURL(pool []domain.ImageCandidate, url string) []domain.ImageCandidate {
	out := make([]domain.ImageCandidate, 0, len(pool))
	for _, c := range pool {
		if c.URL != url {
			out = append(out, c)
		}
	}
	return out
}

// RoundRobinAllocator cycles through a fixed image list per category.
// Reuse is expected once a category's cursor wraps.
type RoundRobinAllocator struct {
	logger *zap.Logger
}

// NewRoundRobinAllocator creates a round-robin allocator
func NewRoundRobinAllocator(logger *zap.Logger) *RoundRobinAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoundRobinAllocator{logger: logger.Named("allocator")}
}

// Assign gives listing i of a category the image at i mod len(pool).
// Listings whose category has no pool are skipped, not defaulted.
func (a *RoundRobinAllocator) Assign(listings []domain.Listing, catalog *domain.Catalog) *domain.AllocationPlan {
	plan := domain.NewAllocationPlan(len(listings))
	pools := categoryPools(catalog)
	cursors := make(map[string]int)

	for _, listing := range listings {
		category := strings.ToLower(strings.TrimSpace(listing.Category))
		pool := pools[category]
		if len(pool) == 0 {
			a.logger.Warn("no images defined for category",
				zap.String("listing_id", listing.ID),
				zap.String("category", category))
			plan.Skip(listing, skipNoCategoryPool)
			continue
		}

		candidate := pool[cursors[category]%len(pool)]
		cursors[category]++

		plan.Record(listing.ID, domain.MatchResult{Candidate: &candidate})
	}

	return plan
}

// categoryPools resolves the catalog's explicit category pools, or groups the
// images by category in catalog order when none are declared.
func categoryPools(catalog *domain.Catalog) map[string][]domain.ImageCandidate {
	pools := make(map[string][]domain.ImageCandidate)
	if catalog == nil {
		return pools
	}

	if len(catalog.CategoryPools) > 0 {
		for category, ids := range catalog.CategoryPools {
			key := strings.ToLower(category)
			for _, id := range ids {
				if img, ok := catalog.Lookup(id); ok {
					pools[key] = append(pools[key], img)
				}
			}
		}
		return pools
	}

	for _, img := range catalog.Images {
		key := strings.ToLower(img.Category)
		pools[key] = append(pools[key], img)
	}
	return pools
}
