package domain

// GenericBrand never contributes a brand bonus.
const GenericBrand = "generic"

// ImageCandidate is one curated image that can be assigned to listings
type ImageCandidate struct {
	ID       string   `json:"id" yaml:"id"`
	URL      string   `json:"url" yaml:"url"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Category string   `json:"category" yaml:"category"`
	Type     string   `json:"type,omitempty" yaml:"type,omitempty"`
	Brand    string   `json:"brand,omitempty" yaml:"brand,omitempty"`
	Priority int      `json:"priority,omitempty" yaml:"priority,omitempty"` // keyword-map strategy only
}

// HasBrand reports whether the candidate carries a brand that can earn a bonus
func (c ImageCandidate) HasBrand() bool {
	return c.Brand != "" && c.Brand != GenericBrand
}

// TitleOverride routes a listing whose title loosely matches Title to a specific image
type TitleOverride struct {
	Title   string `json:"title" yaml:"title"`
	ImageID string `json:"image" yaml:"image"`
}

// HeuristicRule routes a listing whose title contains every token in AllOf to a specific image
type HeuristicRule struct {
	AllOf   []string `json:"all_of" yaml:"all_of"`
	ImageID string   `json:"image" yaml:"image"`
}

// Catalog is the static, curated set of images plus the repair tables that refer to them.
// It is loaded once per run and never mutated; allocators copy what they consume.
type Catalog struct {
	Images        []ImageCandidate    `json:"images" yaml:"images"`
	CategoryPools map[string][]string `json:"category_pools,omitempty" yaml:"category_pools,omitempty"`
	RepairPool    []ImageCandidate    `json:"repair_pool,omitempty" yaml:"repair_pool,omitempty"`
	Overrides     []TitleOverride     `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	Heuristics    []HeuristicRule     `json:"heuristics,omitempty" yaml:"heuristics,omitempty"`
}

// Lookup finds a candidate by id in the main images or the repair pool
func (c *Catalog) Lookup(id string) (ImageCandidate, bool) {
	for _, img := range c.Images {
		if img.ID == id {
			return img, true
		}
	}
	for _, img := range c.RepairPool {
		if img.ID == id {
			return img, true
		}
	}
	return ImageCandidate{}, false
}

// DuplicateURLs returns every URL carried by more than one candidate id, mapped to those ids
func (c *Catalog) DuplicateURLs() map[string][]string {
	byURL := make(map[string][]string)
	for _, img := range c.Images {
		byURL[img.URL] = append(byURL[img.URL], img.ID)
	}
	for _, img := range c.RepairPool {
		byURL[img.URL] = append(byURL[img.URL], img.ID)
	}

	dups := make(map[string][]string)
	for url, ids := range byURL {
		if len(ids) > 1 {
			dups[url] = ids
		}
	}
	return dups
}

// WithImages returns a shallow copy of the catalog whose main images are replaced
func (c *Catalog) WithImages(images []ImageCandidate) *Catalog {
	cp := *c
	cp.Images = images
	return &cp
}
