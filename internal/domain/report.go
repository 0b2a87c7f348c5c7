package domain

import "time"

// ImageStatus is the state of a listing's images during a run
type ImageStatus string

// A listing starts Unassigned or Assigned; Broken goes back through remediation.
// After a full run it ends Valid or Unresolved.
const (
	StatusUnassigned ImageStatus = "unassigned"
	StatusValid      ImageStatus = "valid"
	StatusBroken     ImageStatus = "broken"
	StatusUnresolved ImageStatus = "unresolved"
)

// Run operations
const (
	OperationAssign = "assign"
	OperationRepair = "repair"
	OperationAudit  = "audit"
)

// WriteResult is the outcome of one record write
type WriteResult struct {
	ID  string
	Err error
}

// OK reports whether the write succeeded
func (r WriteResult) OK() bool { return r.Err == nil }

// ListingFailure is a per-listing write failure surfaced to the operator
type ListingFailure struct {
	ListingID string `json:"listingId"`
	Title     string `json:"title"`
	Error     string `json:"error"`
}

// RunSummary aggregates one assignment run
type RunSummary struct {
	RunID      string           `json:"runId"`
	Operation  string           `json:"operation"`
	DryRun     bool             `json:"dryRun"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Processed  int              `json:"processed"`
	Matched    int              `json:"matched"`
	Fallback   int              `json:"fallback"`
	Skipped    int              `json:"skipped"`
	Unresolved int              `json:"unresolved"`
	Updated    int              `json:"updated"`
	Failed     int              `json:"failed"`
	Failures   []ListingFailure `json:"failures,omitempty"`
	Skips      []SkippedListing `json:"skips,omitempty"`
	Collisions []ImageUsage     `json:"collisions,omitempty"`
}

// BrokenImage is an unreachable image found on a listing
type BrokenImage struct {
	ListingID string `json:"listingId"`
	Title     string `json:"title"`
	URL       string `json:"url"`
}

// RepairOutcome is the final state of one needs-repair listing
type RepairOutcome struct {
	ListingID string      `json:"listingId"`
	Title     string      `json:"title"`
	Status    ImageStatus `json:"status"`
	Source    string      `json:"source,omitempty"` // override, heuristic or fallback
	ImageID   string      `json:"imageId,omitempty"`
	URL       string      `json:"url,omitempty"`
}

// RepairReport aggregates one sweep-and-repair pass
type RepairReport struct {
	RunID        string           `json:"runId"`
	DryRun       bool             `json:"dryRun"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt"`
	Scanned      int              `json:"scanned"`
	NeedsRepair  int              `json:"needsRepair"`
	Repaired     int              `json:"repaired"`
	Unresolved   int              `json:"unresolved"`
	Failed       int              `json:"failed"`
	BrokenImages []BrokenImage    `json:"brokenImages,omitempty"`
	Outcomes     []RepairOutcome  `json:"outcomes,omitempty"`
	Failures     []ListingFailure `json:"failures,omitempty"`
}

// ImageUsage lists the listings sharing one image URL
type ImageUsage struct {
	URL        string   `json:"url"`
	ListingIDs []string `json:"listingIds"`
}

// AuditReport describes image coverage, uniqueness and health across all listings
type AuditReport struct {
	TotalListings     int                 `json:"totalListings"`
	WithImages        int                 `json:"withImages"`
	WithoutImages     []string            `json:"withoutImages,omitempty"`
	DistinctImages    int                 `json:"distinctImages"`
	Collisions        []ImageUsage        `json:"collisions,omitempty"`
	BrokenImages      []BrokenImage       `json:"brokenImages,omitempty"`
	ByCategory        map[string]int      `json:"byCategory"`
	CatalogDuplicates map[string][]string `json:"catalogDuplicates,omitempty"`
	UniquenessRate    float64             `json:"uniquenessRate"`
	ProbedImages      bool                `json:"probedImages"`
}
