// Package catalog loads the curated image catalog from YAML.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stanleyluong/stanslist/internal/domain"
)

//go:embed catalogs/*.yaml
var builtinFS embed.FS

// Load reads the catalog at path. An empty path selects the built-in catalog for strategy.
func Load(path, strategy string) (*domain.Catalog, error) {
	if path == "" {
		return Builtin(strategy)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Builtin returns the catalog bundled for the given matching strategy
func Builtin(strategy string) (*domain.Catalog, error) {
	name := "weighted"
	if strategy == "keyword" {
		name = "keyword"
	}

	data, err := builtinFS.ReadFile("catalogs/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: no built-in catalog %q", domain.ErrInvalidCatalog, name)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog. Keywords, categories and types are lowercased.
func Parse(data []byte) (*domain.Catalog, error) {
	var c domain.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, err)
	}

	normalize(c.Images)
	normalize(c.RepairPool)

	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports every structural problem of the catalog at once.
// The returned error wraps domain.ErrInvalidCatalog.
func Validate(c *domain.Catalog) error {
	var errs []error
	ids := make(map[string]bool, len(c.Images)+len(c.RepairPool))

	check := func(section string, i int, img domain.ImageCandidate) {
		switch {
		case img.ID == "":
			errs = append(errs, fmt.Errorf("%s[%d]: missing id", section, i))
			return
		case ids[img.ID]:
			errs = append(errs, fmt.Errorf("%s[%d]: duplicate id %q", section, i, img.ID))
		}
		ids[img.ID] = true

		if img.URL == "" {
			errs = append(errs, fmt.Errorf("%s[%d] %q: missing url", section, i, img.ID))
		}
		if img.Category == "" {
			errs = append(errs, fmt.Errorf("%s[%d] %q: missing category", section, i, img.ID))
		}
		if img.Priority < 0 {
			errs = append(errs, fmt.Errorf("%s[%d] %q: negative priority", section, i, img.ID))
		}
	}

	if len(c.Images) == 0 {
		errs = append(errs, errors.New("images: catalog is empty"))
	}
	for i, img := range c.Images {
		check("images", i, img)
	}
	for i, img := range c.RepairPool {
		check("repair_pool", i, img)
	}

	for category, members := range c.CategoryPools {
		for _, id := range members {
			if !ids[id] {
				errs = append(errs, fmt.Errorf("category_pools[%s]: unknown image %q", category, id))
			}
		}
	}
	for i, o := range c.Overrides {
		if strings.TrimSpace(o.Title) == "" {
			errs = append(errs, fmt.Errorf("overrides[%d]: missing title", i))
		}
		if !ids[o.ImageID] {
			errs = append(errs, fmt.Errorf("overrides[%d]: unknown image %q", i, o.ImageID))
		}
	}
	for i, h := range c.Heuristics {
		if len(h.AllOf) == 0 {
			errs = append(errs, fmt.Errorf("heuristics[%d]: all_of is empty", i))
		}
		if !ids[h.ImageID] {
			errs = append(errs, fmt.Errorf("heuristics[%d]: unknown image %q", i, h.ImageID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, errors.Join(errs...))
	}
	return nil
}

func normalize(images []domain.ImageCandidate) {
	for i := range images {
		img := &images[i]
		img.ID = strings.TrimSpace(img.ID)
		img.URL = strings.TrimSpace(img.URL)
		img.Category = strings.ToLower(strings.TrimSpace(img.Category))
		img.Type = strings.ToLower(strings.TrimSpace(img.Type))
		img.Brand = strings.ToLower(strings.TrimSpace(img.Brand))
		for j, kw := range img.Keywords {
			img.Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
}
