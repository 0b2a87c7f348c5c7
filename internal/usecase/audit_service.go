package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/stanleyluong/stanslist/internal/domain"
)

// AuditService reports coverage, uniqueness and health of assigned images
type AuditService struct {
	verifier URLVerifier
}

// NewAuditService creates an audit service. verifier may be nil to skip probing.
func NewAuditService(verifier URLVerifier) *AuditService {
	return &AuditService{verifier: verifier}
}

// Audit inspects the first image of each listing. Two listings holding the same URL are a
// collision, even when the URL came from two different catalog ids.
func (s *AuditService) Audit(ctx context.Context, listings []domain.Listing, catalog *domain.Catalog) *domain.AuditReport {
	report := &domain.AuditReport{
		TotalListings: len(listings),
		ByCategory:    make(map[string]int),
		ProbedImages:  s.verifier != nil,
	}

	usage := make(map[string][]string)
	var urls []string

	for _, listing := range listings {
		category := strings.ToLower(strings.TrimSpace(listing.Category))
		if category == "" {
			category = "unknown"
		}
		report.ByCategory[category]++

		if len(listing.Images) == 0 {
			report.WithoutImages = append(report.WithoutImages, listing.ID)
			continue
		}
		report.WithImages++

		url := listing.Images[0]
		if _, seen := usage[url]; !seen {
			urls = append(urls, url)
		}
		usage[url] = append(usage[url], listing.ID)

		if s.verifier != nil && !s.verifier.Verify(ctx, url) {
			report.BrokenImages = append(report.BrokenImages, domain.BrokenImage{
				ListingID: listing.ID,
				Title:     listing.Title,
				URL:       url,
			})
		}
	}

	report.DistinctImages = len(usage)
	report.Collisions = FindCollisions(urls, usage)

	if report.DistinctImages > 0 {
		unique := report.DistinctImages - len(report.Collisions)
		report.UniquenessRate = float64(unique) / float64(report.DistinctImages) * 100
	}

	if catalog != nil {
		if dups := catalog.DuplicateURLs(); len(dups) > 0 {
			report.CatalogDuplicates = dups
		}
	}

	return report
}

// FindCollisions returns every URL used by more than one listing, most used first
func FindCollisions(urls []string, usage map[string][]string) []domain.ImageUsage {
	var collisions []domain.ImageUsage
	for _, url := range urls {
		if ids := usage[url]; len(ids) > 1 {
			collisions = append(collisions, domain.ImageUsage{URL: url, ListingIDs: ids})
		}
	}
	sort.SliceStable(collisions, func(i, j int) bool {
		return len(collisions[i].ListingIDs) > len(collisions[j].ListingIDs)
	})
	return collisions
}

// PlanCollisions finds URLs assigned to more than one listing in an allocation plan
func PlanCollisions(plan *domain.AllocationPlan) []domain.ImageUsage {
	usage := make(map[string][]string)
	var urls []string
	for _, id := range plan.Order {
		url := plan.Results[id].URL()
		if url == "" {
			continue
		}
		if _, seen := usage[url]; !seen {
			urls = append(urls, url)
		}
		usage[url] = append(usage[url], id)
	}
	return FindCollisions(urls, usage)
}
