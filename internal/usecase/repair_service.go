package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/internal/domain"
)

// Remediation sources, in the order they are tried
const (
	sourceOverride  = "override"
	sourceHeuristic = "heuristic"
	sourceFallback  = "fallback"
)

// URLVerifier checks a single URL
type URLVerifier interface {
	Verify(ctx context.Context, url string) bool
}

// RepairPlan is the outcome of a sweep before anything is written
type RepairPlan struct {
	Report  *domain.RepairReport
	Updates []domain.FieldUpdate
}

// RepairService finds listings with missing or unreachable images and picks replacements
type RepairService struct {
	verifier URLVerifier
	logger   *zap.Logger
}

// NewRepairService creates a repair service
func NewRepairService(verifier URLVerifier, logger *zap.Logger) *RepairService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepairService{verifier: verifier, logger: logger.Named("repair")}
}

// SweepAndRepair verifies every image of every listing and plans a replacement for
// each listing that has no images or any unreachable one. Remediation tries, in order:
// a title override, a brand/type heuristic, then the first unused repair-pool image.
// Replacement images are only used when they verify themselves.
// A cancelled ctx aborts the sweep with an error.
func (s *RepairService) SweepAndRepair(ctx context.Context, listings []domain.Listing, catalog *domain.Catalog) (*RepairPlan, error) {
	report := &domain.RepairReport{}
	plan := &RepairPlan{Report: report}
	if catalog == nil {
		catalog = &domain.Catalog{}
	}

	fallbackPool := s.reachablePool(ctx, catalog.RepairPool)

	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("repair sweep aborted after %d listings: %w", report.Scanned, err)
		}
		report.Scanned++

		broken := s.brokenImages(ctx, listing)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("repair sweep aborted after %d listings: %w", report.Scanned, err)
		}
		report.BrokenImages = append(report.BrokenImages, broken...)
		if len(listing.Images) > 0 && len(broken) == 0 {
			continue
		}
		report.NeedsRepair++

		// A broken listing is treated as unassigned from here on.
		candidate, source := s.remediate(ctx, listing, catalog, fallbackPool)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("repair sweep aborted after %d listings: %w", report.Scanned, err)
		}
		outcome := domain.RepairOutcome{ListingID: listing.ID, Title: listing.Title}

		if candidate == nil {
			outcome.Status = domain.StatusUnresolved
			report.Outcomes = append(report.Outcomes, outcome)
			report.Unresolved++
			s.logger.Warn("no remediation for listing",
				zap.String("listing_id", listing.ID),
				zap.String("title", listing.Title))
			continue
		}

		fallbackPool = removeURL(fallbackPool, candidate.URL)

		outcome.Status = domain.StatusValid
		outcome.Source = source
		outcome.ImageID = candidate.ID
		outcome.URL = candidate.URL
		report.Outcomes = append(report.Outcomes, outcome)
		plan.Updates = append(plan.Updates, domain.ImagesUpdate(listing.ID, candidate.URL))

		s.logger.Debug("planned repair",
			zap.String("listing_id", listing.ID),
			zap.String("source", source),
			zap.String("image_id", candidate.ID))
	}

	return plan, nil
}

// brokenImages probes each image of the listing
func (s *RepairService) brokenImages(ctx context.Context, listing domain.Listing) []domain.BrokenImage {
	var broken []domain.BrokenImage
	for _, url := range listing.Images {
		if !s.verifier.Verify(ctx, url) {
			broken = append(broken, domain.BrokenImage{
				ListingID: listing.ID,
				Title:     listing.Title,
				URL:       url,
			})
		}
	}
	return broken
}

func (s *RepairService) remediate(
	ctx context.Context,
	listing domain.Listing,
	catalog *domain.Catalog,
	fallbackPool []domain.ImageCandidate,
) (*domain.ImageCandidate, string) {
	for _, override := range catalog.Overrides {
		if !looseTitleMatch(override.Title, listing.Title) {
			continue
		}
		if c := s.usable(ctx, catalog, override.ImageID); c != nil {
			return c, sourceOverride
		}
	}

	title := normalizeText(listing.Title)
	for _, rule := range catalog.Heuristics {
		if !containsAll(title, rule.AllOf) {
			continue
		}
		if c := s.usable(ctx, catalog, rule.ImageID); c != nil {
			return c, sourceHeuristic
		}
	}

	if len(fallbackPool) > 0 {
		c := fallbackPool[0]
		return &c, sourceFallback
	}
	return nil, ""
}

// usable resolves an image id and checks that its URL is reachable
func (s *RepairService) usable(ctx context.Context, catalog *domain.Catalog, id string) *domain.ImageCandidate {
	c, ok := catalog.Lookup(id)
	if !ok || !s.verifier.Verify(ctx, c.URL) {
		return nil
	}
	return &c
}

func (s *RepairService) reachablePool(ctx context.Context, pool []domain.ImageCandidate) []domain.ImageCandidate {
	out := make([]domain.ImageCandidate, 0, len(pool))
	for _, c := range pool {
		if s.verifier.Verify(ctx, c.URL) {
			out = append(out, c)
		} else {
			s.logger.Warn("repair pool image unreachable", zap.String("image_id", c.ID), zap.String("url", c.URL))
		}
	}
	return out
}

func containsAll(text string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, token := range tokens {
		if !containsPhrase(text, normalizeText(token)) {
			return false
		}
	}
	return true
}
