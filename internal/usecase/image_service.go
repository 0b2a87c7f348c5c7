package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/internal/domain"
	"github.com/stanleyluong/stanslist/internal/metrics"
)

// ImageServiceConfig holds configuration for the image service
type ImageServiceConfig struct {
	Collection    string
	BatchSize     int
	VerifyCatalog bool
}

// RunOptions tune a single run
type RunOptions struct {
	DryRun bool
}

// ImageService runs image assignment, repair and audit passes over a snapshot of the
// listings collection. Runs are single-threaded and at most one is active at a time.
// The snapshot is not re-read during a run: concurrent external writes are not detected.
type ImageService struct {
	store      domain.RecordStore
	catalog    *domain.Catalog
	allocator  domain.Allocator
	validator  *Validator
	repair     *RepairService
	audit      *AuditService
	writer     *UpdateWriter
	collection string
	verify     bool
	logger     *zap.Logger

	running sync.Mutex
}

// NewImageService creates an image service with dependencies
func NewImageService(
	store domain.RecordStore,
	catalog *domain.Catalog,
	allocator domain.Allocator,
	validator *Validator,
	config ImageServiceConfig,
	logger *zap.Logger,
) *ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}

	collection := config.Collection
	if collection == "" {
		collection = "listings"
	}

	return &ImageService{
		store:      store,
		catalog:    catalog,
		allocator:  allocator,
		validator:  validator,
		repair:     NewRepairService(validator, logger),
		audit:      NewAuditService(validator),
		writer:     NewUpdateWriter(store, collection, config.BatchSize, logger),
		collection: collection,
		verify:     config.VerifyCatalog,
		logger:     logger.Named("images"),
	}
}

// AssignImages allocates one image to every listing in scope and writes the decisions.
// Per-listing write failures are reported in the summary; only a store read failure is returned.
func (s *ImageService) AssignImages(ctx context.Context, opts RunOptions) (*domain.RunSummary, error) {
	if !s.running.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer s.running.Unlock()

	summary := &domain.RunSummary{
		RunID:     uuid.NewString(),
		Operation: domain.OperationAssign,
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}
	defer observeRun(domain.OperationAssign, summary.StartedAt)

	listings, err := s.loadListings(ctx)
	if err != nil {
		return nil, err
	}
	summary.Processed = len(listings)

	catalog := s.catalog
	if s.verify {
		valid, invalid := s.validator.FilterReachable(ctx, catalog.Images)
		for _, img := range invalid {
			s.logger.Warn("catalog image unreachable, excluded from run",
				zap.String("image_id", img.ID), zap.String("url", img.URL))
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("assignment aborted during catalog verification: %w", err)
		}
		catalog = catalog.WithImages(valid)
	}

	plan := s.allocator.Assign(listings, catalog)
	summary.Collisions = PlanCollisions(plan)
	if len(summary.Collisions) > 0 {
		s.logger.Warn("allocation reuses images", zap.Int("shared_urls", len(summary.Collisions)))
	}

	titles := make(map[string]string, len(listings))
	for _, l := range listings {
		titles[l.ID] = l.Title
	}

	updates := make([]domain.FieldUpdate, 0, len(plan.Order))
	for _, id := range plan.Order {
		result := plan.Results[id]
		if !result.Matched() {
			continue
		}
		if result.Fallback {
			summary.Fallback++
		} else {
			summary.Matched++
		}
		updates = append(updates, domain.ImagesUpdate(id, result.URL()))
	}

	for _, skip := range plan.Skipped {
		if skip.Reason == skipPoolExhausted {
			summary.Unresolved++
		} else {
			summary.Skipped++
		}
	}
	summary.Skips = plan.Skipped

	if !opts.DryRun {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("assignment aborted before writing: %w", err)
		}
		for _, r := range s.writer.Write(ctx, updates) {
			if r.OK() {
				summary.Updated++
				continue
			}
			summary.Failed++
			summary.Failures = append(summary.Failures, domain.ListingFailure{
				ListingID: r.ID,
				Title:     titles[r.ID],
				Error:     r.Err.Error(),
			})
		}
	}

	summary.FinishedAt = time.Now()
	recordOutcomes(domain.OperationAssign, map[string]int{
		"matched":    summary.Matched,
		"fallback":   summary.Fallback,
		"skipped":    summary.Skipped,
		"unresolved": summary.Unresolved,
		"failed":     summary.Failed,
	})

	s.logger.Info("assignment run complete",
		zap.String("run_id", summary.RunID),
		zap.Bool("dry_run", summary.DryRun),
		zap.Int("processed", summary.Processed),
		zap.Int("matched", summary.Matched),
		zap.Int("fallback", summary.Fallback),
		zap.Int("skipped", summary.Skipped),
		zap.Int("unresolved", summary.Unresolved),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// RepairImages sweeps all listings for missing or unreachable images and writes replacements.
// A replacement that cannot be written leaves the listing unresolved.
func (s *ImageService) RepairImages(ctx context.Context, opts RunOptions) (*domain.RepairReport, error) {
	if !s.running.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer s.running.Unlock()

	started := time.Now()
	defer observeRun(domain.OperationRepair, started)

	listings, err := s.loadListings(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := s.repair.SweepAndRepair(ctx, listings, s.catalog)
	if err != nil {
		return nil, err
	}
	report := plan.Report
	report.RunID = uuid.NewString()
	report.DryRun = opts.DryRun
	report.StartedAt = started

	report.Repaired = len(plan.Updates)
	if !opts.DryRun {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("repair aborted before writing: %w", err)
		}
		failed := make(map[string]error)
		for _, r := range s.writer.Write(ctx, plan.Updates) {
			if !r.OK() {
				failed[r.ID] = r.Err
			}
		}

		for i := range report.Outcomes {
			outcome := &report.Outcomes[i]
			err, ok := failed[outcome.ListingID]
			if !ok || outcome.Status != domain.StatusValid {
				continue
			}
			outcome.Status = domain.StatusUnresolved
			report.Repaired--
			report.Unresolved++
			report.Failed++
			report.Failures = append(report.Failures, domain.ListingFailure{
				ListingID: outcome.ListingID,
				Title:     outcome.Title,
				Error:     err.Error(),
			})
		}
	}

	report.FinishedAt = time.Now()
	recordOutcomes(domain.OperationRepair, map[string]int{
		"repaired":   report.Repaired,
		"unresolved": report.Unresolved,
		"failed":     report.Failed,
	})

	s.logger.Info("repair run complete",
		zap.String("run_id", report.RunID),
		zap.Bool("dry_run", report.DryRun),
		zap.Int("scanned", report.Scanned),
		zap.Int("needs_repair", report.NeedsRepair),
		zap.Int("repaired", report.Repaired),
		zap.Int("unresolved", report.Unresolved),
		zap.Int("broken_images", len(report.BrokenImages)),
		zap.Int("failed", report.Failed))

	return report, nil
}

// Audit reports image coverage and collisions. When probe is set every assigned URL is verified.
func (s *ImageService) Audit(ctx context.Context, probe bool) (*domain.AuditReport, error) {
	if !s.running.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer s.running.Unlock()
	defer observeRun(domain.OperationAudit, time.Now())

	listings, err := s.loadListings(ctx)
	if err != nil {
		return nil, err
	}

	auditor := s.audit
	if !probe {
		auditor = NewAuditService(nil)
	}
	report := auditor.Audit(ctx, listings, s.catalog)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("audit aborted: %w", err)
	}
	return report, nil
}

// loadListings reads the in-memory snapshot for one run
func (s *ImageService) loadListings(ctx context.Context) ([]domain.Listing, error) {
	records, err := s.store.ListAll(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", domain.ErrStoreUnavailable, s.collection, err)
	}

	listings := make([]domain.Listing, 0, len(records))
	for _, rec := range records {
		listings = append(listings, domain.ListingFromRecord(rec))
	}
	return listings, nil
}

func observeRun(operation string, started time.Time) {
	metrics.RunDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func recordOutcomes(operation string, counts map[string]int) {
	for outcome, n := range counts {
		if n > 0 {
			metrics.ListingsProcessedTotal.WithLabelValues(operation, outcome).Add(float64(n))
		}
	}
}
