package tattle

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Slugify converts a title to a URL-safe slug: lowercase, runs of
// non-alphanumerics collapsed to a single hyphen, no leading or trailing
// hyphens.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	pending := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		case r == '\'', r == '’':
			// Apostrophes vanish rather than becoming separators,
			// so "Can't" slugs as "cant".
		default:
			pending = true
		}
	}
	return b.String()
}

// applySlug decides an article's slug from the submitted title and slug
// fields. An explicit slug that differs from the derived one locks the
// field: later title edits stop re-deriving it.
func applySlug(a *Article, title, slug string) {
	slug = Slugify(slug)
	derived := Slugify(title)
	switch {
	case slug != "" && slug != derived:
		a.Slug = slug
		a.SlugLocked = true
	case a.SlugLocked && a.Slug != "":
		// Keep the editor's slug.
	default:
		a.Slug = derived
		a.SlugLocked = false
	}
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RelatedArticles finds up to max articles sharing a category with current.
func RelatedArticles(current Article, articles []Article, max int) []Article {
	category := strings.ToLower(strings.TrimSpace(current.Category))
	var related []Article
	for _, a := range articles {
		if a.ID == current.ID {
			continue
		}
		if strings.ToLower(strings.TrimSpace(a.Category)) == category {
			related = append(related, a)
			if len(related) == max {
				break
			}
		}
	}
	return related
}

// parsePositiveInt parses a non-negative integer form value.
func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

// ValidCategory reports whether category is acceptable for the site.
func (c SiteConfig) ValidCategory(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return false
	}
	if c.OpenCategories {
		return true
	}
	for _, known := range c.Categories {
		if category == known {
			return true
		}
	}
	return false
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema using SiteConfig.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// NewsArticleJsonLD returns a JSON-LD string for a NewsArticle schema.
func NewsArticleJsonLD(a Article, cfg SiteConfig) string {
	articleURL := BuildURL(cfg.URL, a.Category, a.Slug)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "NewsArticle",
		"headline":      a.Title,
		"datePublished": a.CreatedAt.Format("2006-01-02"),
		"url":           articleURL,
		"articleSection": a.Category,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   articleURL,
		},
	}
	if a.Image != "" {
		data["image"] = a.Image
	}
	author := a.Author
	if author == "" {
		author = cfg.Author
	}
	if author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  author,
		}
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
