package domain

import (
	"fmt"
	"strings"
)

// Record field names used by the listings collection
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldImages      = "images"
)

// Record is a raw document from the record store
type Record struct {
	ID     string
	Fields map[string]any
}

// FieldUpdate is a partial update of one record
type FieldUpdate struct {
	ID     string
	Fields map[string]any
}

// Listing is a classifieds listing as seen by the image subsystem
type Listing struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
}

// MatchText is the lowercase space-joined title, description and category
func (l Listing) MatchText() string {
	return strings.ToLower(strings.Join([]string{l.Title, l.Description, l.Category}, " "))
}

// ListingFromRecord maps a store record onto a Listing. Missing or mistyped fields become zero values.
func ListingFromRecord(rec Record) Listing {
	return Listing{
		ID:          rec.ID,
		Title:       stringField(rec.Fields, FieldTitle),
		Description: stringField(rec.Fields, FieldDescription),
		Category:    stringField(rec.Fields, FieldCategory),
		Images:      stringsField(rec.Fields, FieldImages),
	}
}

// ImagesUpdate replaces a listing's images with a single URL
func ImagesUpdate(listingID, url string) FieldUpdate {
	return FieldUpdate{
		ID:     listingID,
		Fields: map[string]any{FieldImages: []string{url}},
	}
}

func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func stringsField(fields map[string]any, key string) []string {
	switch v := fields[key].(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
