package tattle

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mutations apply to the in-memory collection synchronously, then persist
// through the feed's single background writer, in mutation order, so
// dependent writes (mark a deletion, then clear it) reach the store in the
// sequence the editor issued them. The write runs on a context detached
// from the request: navigating away mid-save does not cancel it. A failed
// write restores the pre-mutation snapshot and reports through the Feed's
// error callback, so unpersisted state is never silently presented as saved.

// snapshot captures the state a failed write must restore.
type snapshot struct {
	local    []Article
	deleted  map[string]bool
	settings Settings
}

func (f *Feed) capture() snapshot {
	return snapshot{
		local:    slices.Clone(f.local),
		deleted:  maps.Clone(f.deleted),
		settings: f.settings,
	}
}

func (f *Feed) restore(s snapshot) {
	f.mu.Lock()
	f.local = s.local
	f.deleted = s.deleted
	f.settings = s.settings
	f.rebuild()
	f.mu.Unlock()
}

// pendingWrite is one queued durable write with the state to restore if it
// fails.
type pendingWrite struct {
	ctx   context.Context
	snap  snapshot
	write func(context.Context) error
}

// persist enqueues write for the background writer, reverting to snap on
// failure. The request context is detached first: a client disconnect must
// not cancel a write the feed already presents as applied.
func (f *Feed) persist(ctx context.Context, snap snapshot, write func(context.Context) error) {
	f.writes.Add(1)
	f.queue <- pendingWrite{ctx: context.WithoutCancel(ctx), snap: snap, write: write}
}

func validateArticle(a Article) error {
	if strings.TrimSpace(a.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(a.Image) == "" {
		return &ValidationError{Field: "image", Reason: "a thumbnail is required"}
	}
	return nil
}

// Create validates and publishes a new article. The id and creation time are
// assigned here; the slug derives from the title unless explicitly given.
func (f *Feed) Create(ctx context.Context, a Article) (Article, error) {
	if err := validateArticle(a); err != nil {
		return Article{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	applySlug(&a, a.Title, a.Slug)
	a.Origin = OriginLocal

	f.mu.Lock()
	snap := f.capture()
	f.upsertLocal(a)
	f.rebuild()
	f.mu.Unlock()

	stored := a
	stored.Origin = OriginUnknown
	f.persist(ctx, snap, func(ctx context.Context) error { return f.store.Upsert(ctx, stored) })
	return a, nil
}

// Update edits an existing article. Editing a seed default is modeled as
// authoring a local article with the same id, which then wins the merge.
func (f *Feed) Update(ctx context.Context, id string, edit Article) (Article, error) {
	f.mu.RLock()
	var current Article
	found := false
	for _, a := range f.canonical {
		if a.ID == id {
			current, found = a, true
			break
		}
	}
	f.mu.RUnlock()
	if !found {
		return Article{}, ErrNotFound
	}

	updated := current
	updated.Title = edit.Title
	updated.Category = edit.Category
	updated.Image = edit.Image
	updated.Author = edit.Author
	updated.Content = edit.Content
	updated.EmbedURL = edit.EmbedURL
	applySlug(&updated, edit.Title, edit.Slug)
	if err := validateArticle(updated); err != nil {
		return Article{}, err
	}
	updated.Origin = OriginLocal

	f.mu.Lock()
	snap := f.capture()
	f.upsertLocal(updated)
	f.rebuild()
	f.mu.Unlock()

	stored := updated
	stored.Origin = OriginUnknown
	f.persist(ctx, snap, func(ctx context.Context) error { return f.store.Upsert(ctx, stored) })
	return updated, nil
}

// Remove deletes an article. A locally authored article is physically
// removed from the store; a seed default gets a soft-delete marker instead,
// which hides it immediately and permanently without touching the seed set.
func (f *Feed) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	origin := classify(id, f.defaults, f.local, f.deleted)
	if origin == OriginUnknown || origin == OriginDeletedDefault {
		f.mu.Unlock()
		return ErrNotFound
	}
	snap := f.capture()
	var staleMarker bool
	switch origin {
	case OriginLocal:
		kept := make([]Article, 0, len(f.local))
		for _, a := range f.local {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		f.local = kept
		// A marker left behind from before the override existed would
		// keep the resurfaced default hidden.
		if f.deleted[id] {
			staleMarker = true
			delete(f.deleted, id)
		}
	case OriginDefault:
		f.deleted[id] = true
	}
	f.rebuild()
	f.mu.Unlock()

	switch origin {
	case OriginLocal:
		f.persist(ctx, snap, func(ctx context.Context) error {
			if err := f.store.Delete(ctx, id); err != nil {
				return err
			}
			if staleMarker {
				return f.store.ClearDefaultDeleted(ctx, id)
			}
			return nil
		})
	case OriginDefault:
		f.persist(ctx, snap, func(ctx context.Context) error { return f.store.MarkDefaultDeleted(ctx, id) })
	}
	return nil
}

// Restore clears the soft-delete marker for a seed article id.
func (f *Feed) Restore(ctx context.Context, id string) error {
	f.mu.Lock()
	if !f.deleted[id] {
		f.mu.Unlock()
		return ErrNotFound
	}
	snap := f.capture()
	delete(f.deleted, id)
	f.rebuild()
	f.mu.Unlock()

	f.persist(ctx, snap, func(ctx context.Context) error { return f.store.ClearDefaultDeleted(ctx, id) })
	return nil
}

// Reorder applies an explicit curated order given as the full id sequence.
// An unchanged sequence issues zero backend writes. Seed defaults caught in
// a reorder are promoted to local overrides so their position persists.
func (f *Feed) Reorder(ctx context.Context, ids []string) error {
	f.mu.Lock()
	seen := make(map[string]bool, len(ids))
	desired := make([]Article, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			f.mu.Unlock()
			return &ValidationError{Field: "order", Reason: "duplicate article id in sequence"}
		}
		seen[id] = true
		for _, a := range f.canonical {
			if a.ID == id {
				desired = append(desired, a)
				break
			}
		}
	}
	if len(desired) != len(ids) {
		f.mu.Unlock()
		return &ValidationError{Field: "order", Reason: "unknown article id in sequence"}
	}
	plan := ReorderPlan(f.canonical, desired)
	if plan == nil {
		f.mu.Unlock()
		return nil
	}

	snap := f.capture()
	var promote []Article
	for i := range desired {
		pos := i
		desired[i].Order = &pos
		a := desired[i]
		if a.Origin == OriginDefault {
			a.Origin = OriginLocal
			promote = append(promote, a)
		}
		f.upsertLocalIfPresent(a)
	}
	for _, a := range promote {
		f.upsertLocal(a)
	}
	f.rebuild()
	f.mu.Unlock()

	f.persist(ctx, snap, func(ctx context.Context) error {
		for _, a := range promote {
			stored := a
			stored.Origin = OriginUnknown
			if err := f.store.Upsert(ctx, stored); err != nil {
				return err
			}
		}
		return f.store.BatchUpdateOrder(ctx, plan)
	})
	return nil
}

// UpdateSettings replaces the global settings record.
func (f *Feed) UpdateSettings(ctx context.Context, s Settings) error {
	f.mu.Lock()
	snap := f.capture()
	f.settings = s
	f.mu.Unlock()

	f.persist(ctx, snap, func(ctx context.Context) error { return f.store.SaveSettings(ctx, s) })
	return nil
}

// upsertLocal inserts or replaces an article in the local set. Callers hold
// the write lock.
func (f *Feed) upsertLocal(a Article) {
	for i, existing := range f.local {
		if existing.ID == a.ID {
			f.local[i] = a
			return
		}
	}
	f.local = append(f.local, a)
}

// upsertLocalIfPresent replaces an article in the local set only when it is
// already there. Callers hold the write lock.
func (f *Feed) upsertLocalIfPresent(a Article) {
	for i, existing := range f.local {
		if existing.ID == a.ID {
			f.local[i] = a
			return
		}
	}
}
