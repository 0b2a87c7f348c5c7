package usecase

import (
	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/internal/domain"
)

// defaultKeywordPriority applies to keyword-map entries declared without a priority
const defaultKeywordPriority = 1

// KeywordMatcher scores a candidate with its author-assigned priority when any of its
// keywords appears in the text. Scores never accumulate across entries: the single
// highest-priority entry wins, regardless of catalog order.
type KeywordMatcher struct {
	logger             *zap.Logger
	enableDebugLogging bool
}

// NewKeywordMatcher creates a keyword-map matcher
func NewKeywordMatcher(config MatchConfig, logger *zap.Logger) *KeywordMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordMatcher{
		logger:             logger.Named("keyword_matcher"),
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Match returns the highest-priority candidate with a keyword present in text
func (m *KeywordMatcher) Match(text string, candidates []domain.ImageCandidate) domain.MatchResult {
	text = normalizeText(text)
	if text == "" || len(candidates) == 0 {
		return domain.MatchResult{}
	}

	best := domain.MatchResult{}
	for i := range candidates {
		candidate := &candidates[i]

		var matched []string
		for _, keyword := range candidate.Keywords {
			if kw := normalizeText(keyword); containsPhrase(text, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}

		priority := candidate.Priority
		if priority <= 0 {
			priority = defaultKeywordPriority
		}

		if m.enableDebugLogging {
			m.logger.Debug("keyword entry matched",
				zap.String("image_id", candidate.ID),
				zap.Int("priority", priority),
				zap.Strings("matched", matched))
		}

		if beats(priority, candidate.ID, best) {
			c := *candidate
			best = domain.MatchResult{Candidate: &c, Score: priority, MatchedKeywords: matched}
		}
	}

	return best
}
