package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/internal/domain"
	"github.com/stanleyluong/stanslist/internal/metrics"
)

// ValidatorConfig holds configuration for the URL validator
type ValidatorConfig struct {
	CacheTTL time.Duration
}

// Validator checks image URL reachability. It never returns an error:
// any probe failure or non-2xx status means unreachable.
type Validator struct {
	prober   domain.Prober
	cache    domain.CacheRepository
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewValidator creates a validator. cache may be nil.
func NewValidator(prober domain.Prober, cache domain.CacheRepository, config ValidatorConfig, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := config.CacheTTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return &Validator{
		prober:   prober,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.Named("validator"),
	}
}

// Verify reports whether url answers a header-only fetch with a 2xx status.
// A probe cut short by ctx is not a verdict: it returns false and is not cached.
func (v *Validator) Verify(ctx context.Context, url string) bool {
	if url == "" || ctx.Err() != nil {
		return false
	}

	key := "probe:" + url
	if reachable, ok := v.cached(ctx, key); ok {
		metrics.ProbeCacheTotal.WithLabelValues("hit").Inc()
		return reachable
	}
	metrics.ProbeCacheTotal.WithLabelValues("miss").Inc()

	start := time.Now()
	status, err := v.prober.Head(ctx, url)
	metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		v.logger.Debug("probe interrupted", zap.String("url", url), zap.Error(ctx.Err()))
		return false
	}

	reachable := err == nil && status >= 200 && status < 300
	if reachable {
		metrics.ProbeRequestsTotal.WithLabelValues("reachable").Inc()
	} else {
		metrics.ProbeRequestsTotal.WithLabelValues("unreachable").Inc()
		v.logger.Debug("image unreachable",
			zap.String("url", url),
			zap.Int("status", status),
			zap.Error(err))
	}

	if v.cache != nil {
		if err := v.cache.Set(ctx, key, reachable, v.cacheTTL); err != nil {
			v.logger.Debug("probe cache write failed", zap.Error(err))
		}
	}
	return reachable
}

// FilterReachable returns the candidates whose URL verifies, and the ones that do not
func (v *Validator) FilterReachable(ctx context.Context, candidates []domain.ImageCandidate) ([]domain.ImageCandidate, []domain.ImageCandidate) {
	valid := make([]domain.ImageCandidate, 0, len(candidates))
	var invalid []domain.ImageCandidate
	for _, c := range candidates {
		if v.Verify(ctx, c.URL) {
			valid = append(valid, c)
		} else {
			invalid = append(invalid, c)
		}
	}
	return valid, invalid
}

func (v *Validator) cached(ctx context.Context, key string) (bool, bool) {
	if v.cache == nil {
		return false, false
	}
	value, err := v.cache.Get(ctx, key)
	if err != nil {
		return false, false
	}
	reachable, ok := value.(bool)
	return reachable, ok
}
