package domain

// MatchResult is the outcome of matching one listing against the available candidates
type MatchResult struct {
	Candidate       *ImageCandidate `json:"candidate,omitempty"`
	Score           int             `json:"score"`
	MatchedKeywords []string        `json:"matchedKeywords,omitempty"`
	Fallback        bool            `json:"fallback,omitempty"` // assigned for coverage, not relevance
}

// Matched reports whether a candidate was selected
func (r MatchResult) Matched() bool {
	return r.Candidate != nil
}

// URL returns the selected candidate's URL, or "" when nothing was selected
func (r MatchResult) URL() string {
	if r.Candidate == nil {
		return ""
	}
	return r.Candidate.URL
}

// SkippedListing is a listing the allocator deliberately did not assign
type SkippedListing struct {
	ListingID string `json:"listingId"`
	Title     string `json:"title"`
	Reason    string `json:"reason"`
}

// AllocationPlan holds per-listing decisions in processing order
type AllocationPlan struct {
	Order   []string               `json:"order"`
	Results map[string]MatchResult `json:"results"`
	Skipped []SkippedListing       `json:"skipped,omitempty"`
}

// NewAllocationPlan creates an empty plan
func NewAllocationPlan(capacity int) *AllocationPlan {
	return &AllocationPlan{
		Order:   make([]string, 0, capacity),
		Results: make(map[string]MatchResult, capacity),
	}
}

// Record stores a decision for a listing, keeping first-seen order
func (p *AllocationPlan) Record(listingID string, result MatchResult) {
	if _, seen := p.Results[listingID]; !seen {
		p.Order = append(p.Order, listingID)
	}
	p.Results[listingID] = result
}

// Skip records a listing that received no decision
func (p *AllocationPlan) Skip(listing Listing, reason string) {
	p.Skipped = append(p.Skipped, SkippedListing{
		ListingID: listing.ID,
		Title:     listing.Title,
		Reason:    reason,
	})
}
