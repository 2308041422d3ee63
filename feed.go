package tattle

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Feed holds the in-memory canonical collection: seed defaults merged with
// the durable store under the soft-delete overlay, kept sorted by the
// ordering policy. Reads come from memory; mutations apply here first and
// persist through a single background writer (see mutate.go). On a failed
// refresh the last good collection stays visible rather than being cleared.
type Feed struct {
	mu        sync.RWMutex
	store     OverlayStore
	defaults  []Article
	local     []Article
	deleted   map[string]bool
	canonical []Article
	settings  Settings

	onError func(error)
	queue   chan pendingWrite
	writes  sync.WaitGroup
}

// NewFeed creates a Feed over the given store and seed defaults. onError
// receives background write failures; nil means failures are only reflected
// by the reverted state.
func NewFeed(store OverlayStore, defaults []Article, onError func(error)) *Feed {
	f := &Feed{
		store:    store,
		defaults: slices.Clone(defaults),
		deleted:  make(map[string]bool),
		onError:  onError,
		queue:    make(chan pendingWrite, 32),
	}
	f.rebuild()
	go f.writer()
	return f
}

// writer drains the persistence queue one write at a time, so writes reach
// the store in mutation order. Mutations that depend on each other (delete
// a seed article, then restore it) would otherwise race as separate
// goroutines.
func (f *Feed) writer() {
	for w := range f.queue {
		if err := w.write(w.ctx); err != nil {
			f.restore(w.snap)
			f.fail(err)
		}
		f.writes.Done()
	}
}

// rebuild recomputes the canonical collection. Callers hold the write lock
// (or own the Feed exclusively, as in NewFeed).
func (f *Feed) rebuild() {
	f.canonical = Reconcile(f.defaults, f.local, f.deleted)
	SortArticles(f.canonical)
}

// Refresh reloads the durable article set, deletion markers, and settings.
// Any failure leaves the previous canonical collection in place.
func (f *Feed) Refresh(ctx context.Context) error {
	local, err := f.store.FetchAll(ctx)
	if err != nil {
		return err
	}
	deleted, err := f.store.DeletedDefaultIDs(ctx)
	if err != nil {
		return err
	}
	settings, err := f.store.LoadSettings(ctx)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.local = local
	f.deleted = deleted
	f.settings = settings
	f.rebuild()
	f.mu.Unlock()
	return nil
}

// List returns the canonical collection, optionally filtered by category.
func (f *Feed) List(category string) []Article {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if category == "" {
		return slices.Clone(f.canonical)
	}
	category = strings.ToLower(strings.TrimSpace(category))
	var filtered []Article
	for _, a := range f.canonical {
		if strings.ToLower(a.Category) == category {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// Categories returns the distinct categories present in the feed, in feed order.
func (f *Feed) Categories() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, a := range f.canonical {
		c := strings.ToLower(strings.TrimSpace(a.Category))
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// GetBySlug returns the article with the given slug.
func (f *Feed) GetBySlug(slug string) (Article, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, a := range f.canonical {
		if a.Slug == slug {
			return a, true
		}
	}
	return Article{}, false
}

// GetByID returns the article with the given id. Supports the legacy
// /article/{id} path scheme.
func (f *Feed) GetByID(id string) (Article, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, a := range f.canonical {
		if a.ID == id {
			return a, true
		}
	}
	return Article{}, false
}

// Settings returns the current global settings record.
func (f *Feed) Settings() Settings {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.settings
}

// Wait blocks until all in-flight background writes have settled. Used at
// shutdown and in tests.
func (f *Feed) Wait() {
	f.writes.Wait()
}

func (f *Feed) fail(err error) {
	if f.onError != nil {
		f.onError(err)
	}
}
