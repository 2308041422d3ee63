package tattle

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
)

// seedFS contains the baked-in default article set shipped with the engine.
//
//go:embed seed/defaults.json
var seedFS embed.FS

var (
	seedOnce     sync.Once
	seedArticles []Article
	seedErr      error
)

// DefaultArticles returns the baked-in default article set. The returned
// slice is a copy; callers may modify it freely. The seed is the "defaults"
// source of Reconcile and is never written to.
func DefaultArticles() ([]Article, error) {
	seedOnce.Do(func() {
		data, err := seedFS.ReadFile("seed/defaults.json")
		if err != nil {
			seedErr = fmt.Errorf("tattle: read seed data: %w", err)
			return
		}
		if err := json.Unmarshal(data, &seedArticles); err != nil {
			seedErr = fmt.Errorf("tattle: decode seed data: %w", err)
			return
		}
		for i := range seedArticles {
			if seedArticles[i].Slug == "" {
				seedArticles[i].Slug = Slugify(seedArticles[i].Title)
			}
		}
	})
	if seedErr != nil {
		return nil, seedErr
	}
	out := make([]Article, len(seedArticles))
	copy(out, seedArticles)
	return out, nil
}
