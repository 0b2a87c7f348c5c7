package usecase

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/internal/domain"
)

// Scoring bonuses for the weighted strategy
const (
	brandMatchBonus     = 150 // Non-generic brand appears anywhere in the text
	exactKeywordBonus   = 100 // Keyword equals the text or appears on word boundaries
	partialKeywordBonus = 50  // Keyword appears only inside a larger word
	typeMatchBonus      = 75  // Candidate type appears on word boundaries
	categoryMatchBonus  = 25  // Candidate category appears on word boundaries
)

// Matching strategies
const (
	StrategyWeighted = "weighted"
	StrategyKeyword  = "keyword"
)

// MatchConfig holds configuration for the matchers
type MatchConfig struct {
	Strategy           string
	EnableDebugLogging bool
}

// NewMatcher builds the matcher for the configured strategy
func NewMatcher(config MatchConfig, logger *zap.Logger) domain.Matcher {
	if config.Strategy == StrategyKeyword {
		return NewKeywordMatcher(config, logger)
	}
	return NewWeightedMatcher(config, logger)
}

// WeightedMatcher accumulates brand, keyword, type and category bonuses per candidate
type WeightedMatcher struct {
	logger             *zap.Logger
	enableDebugLogging bool
}

// NewWeightedMatcher creates a weighted matcher
func NewWeightedMatcher(config MatchConfig, logger *zap.Logger) *WeightedMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeightedMatcher{
		logger:             logger.Named("matcher"),
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Match returns the highest scoring candidate. Ties go to the lexicographically smallest id.
// Candidates scoring zero are never returned.
func (m *WeightedMatcher) Match(text string, candidates []domain.ImageCandidate) domain.MatchResult {
	text = normalizeText(text)
	if text == "" || len(candidates) == 0 {
		return domain.MatchResult{}
	}

	best := domain.MatchResult{}
	for i := range candidates {
		candidate := &candidates[i]
		score, matched := m.calculateMatchScore(text, candidate)

		if m.enableDebugLogging {
			m.logger.Debug("candidate scored",
				zap.String("image_id", candidate.ID),
				zap.Int("score", score),
				zap.Strings("matched", matched))
		}

		if score <= 0 {
			continue
		}
		if beats(score, candidate.ID, best) {
			c := *candidate
			best = domain.MatchResult{Candidate: &c, Score: score, MatchedKeywords: matched}
		}
	}

	return best
}

// calculateMatchScore computes the weighted score of one candidate against normalized text.
// Returns the score and the keywords found in the text.
func (m *WeightedMatcher) calculateMatchScore(text string, candidate *domain.ImageCandidate) (int, []string) {
	score := 0
	var matched []string

	for _, keyword := range candidate.Keywords {
		kw := normalizeText(keyword)
		if kw == "" || !strings.Contains(text, kw) {
			continue
		}
		if text == kw || containsPhrase(text, kw) {
			score += exactKeywordBonus
		} else {
			score += partialKeywordBonus
		}
		matched = append(matched, kw)
	}

	if candidate.HasBrand() {
		if brand := normalizeText(candidate.Brand); strings.Contains(text, brand) {
			score += brandMatchBonus
		}
	}

	if t := normalizeText(candidate.Type); containsPhrase(text, t) {
		score += typeMatchBonus
	}

	if c := normalizeText(candidate.Category); containsPhrase(text, c) {
		score += categoryMatchBonus
	}

	return score, matched
}

// beats reports whether a candidate with score and id should replace the current best
func beats(score int, id string, best domain.MatchResult) bool {
	if best.Candidate == nil {
		return true
	}
	if score != best.Score {
		return score > best.Score
	}
	return id < best.Candidate.ID
}

// sortedByID returns a copy of candidates ordered by id
func sortedByID(candidates []domain.ImageCandidate) []domain.ImageCandidate {
	out := make([]domain.ImageCandidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
