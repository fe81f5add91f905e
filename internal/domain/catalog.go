package domain

import (
	"regexp"
	"strings"
	"time"
)

// Category groups products for navigation.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Color is a named swatch referenced by product variants.
type Color struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Value     string    `json:"value"` // CSS color, e.g. #ff0000
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a display name.
func Slugify(name string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
