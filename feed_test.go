package tattle

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// stubStore is an in-memory OverlayStore with failure injection, write
// counting, and an operation log, for exercising the optimistic mutation
// path. Like a real backend it refuses to work on a canceled context.
type stubStore struct {
	mu       sync.Mutex
	articles map[string]Article
	deleted  map[string]bool
	settings Settings
	failWith error
	writes   int
	ops      []string
}

func newStubStore() *stubStore {
	return &stubStore{
		articles: make(map[string]Article),
		deleted:  make(map[string]bool),
	}
}

// enter is the common entry check; callers hold the mutex.
func (s *stubStore) enter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.failWith
}

func (s *stubStore) record(op, id string) {
	s.writes++
	s.ops = append(s.ops, op+":"+id)
}

func (s *stubStore) FetchAll(ctx context.Context) ([]Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	out := make([]Article, 0, len(s.articles))
	for _, a := range s.articles {
		out = append(out, a)
	}
	return out, nil
}

func (s *stubStore) Upsert(ctx context.Context, a Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return err
	}
	s.record("upsert", a.ID)
	s.articles[a.ID] = a
	return nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return err
	}
	s.record("delete", id)
	delete(s.articles, id)
	return nil
}

func (s *stubStore) BatchUpdateOrder(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return err
	}
	s.record("order", "")
	for i, id := range ids {
		a, ok := s.articles[id]
		if !ok {
			return &PartialBatchError{FailedIDs: []string{id}, Err: ErrNotFound}
		}
		pos := i
		a.Order = &pos
		s.articles[id] = a
	}
	return nil
}

func (s *stubStore) DeletedDefaultIDs(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(s.deleted))
	for id := range s.deleted {
		out[id] = true
	}
	return out, nil
}

func (s *stubStore) MarkDefaultDeleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return err
	}
	s.record("mark", id)
	s.deleted[id] = true
	return nil
}

func (s *stubStore) ClearDefaultDeleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return err
	}
	s.record("clear", id)
	delete(s.deleted, id)
	return nil
}

func (s *stubStore) LoadSettings(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return Settings{}, err
	}
	return s.settings, nil
}

func (s *stubStore) SaveSettings(ctx context.Context, set Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return err
	}
	s.record("settings", "")
	s.settings = set
	return nil
}

func (s *stubStore) fail(err error) {
	s.mu.Lock()
	s.failWith = err
	s.mu.Unlock()
}

func (s *stubStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func testDefaults() []Article {
	return []Article{
		seedAt("1", "Oldest Seed", 1),
		seedAt("2", "Middle Seed", 2),
		seedAt("3", "Newest Seed", 3),
	}
}

func newTestFeed(t *testing.T) (*Feed, *stubStore) {
	t.Helper()
	store := newStubStore()
	feed := NewFeed(store, testDefaults(), nil)
	return feed, store
}

func TestFeedInitialOrderIsRecency(t *testing.T) {
	feed, _ := newTestFeed(t)
	assertIDs(t, feed.List(""), "3", "2", "1")
}

func TestFeedCreateSurfacesImmediately(t *testing.T) {
	feed, store := newTestFeed(t)
	ctx := context.Background()

	created, err := feed.Create(ctx, Article{Title: "Hot Take", Image: "/i.jpg", Category: "opinion"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.Slug != "hot-take" || created.CreatedAt.IsZero() {
		t.Fatalf("created = %+v", created)
	}

	// Visible before the background write settles.
	if _, ok := feed.GetByID(created.ID); !ok {
		t.Fatal("created article not in feed")
	}
	feed.Wait()
	if _, ok := store.articles[created.ID]; !ok {
		t.Fatal("created article not persisted")
	}
}

func TestFeedCreateValidation(t *testing.T) {
	feed, _ := newTestFeed(t)
	ctx := context.Background()

	var verr *ValidationError
	if _, err := feed.Create(ctx, Article{Image: "/i.jpg"}); !errors.As(err, &verr) || verr.Field != "title" {
		t.Errorf("missing title: err = %v", err)
	}
	if _, err := feed.Create(ctx, Article{Title: "T"}); !errors.As(err, &verr) || verr.Field != "image" {
		t.Errorf("missing image: err = %v", err)
	}
}

func TestFeedCreateRevertsOnWriteFailure(t *testing.T) {
	store := newStubStore()
	var reported error
	var mu sync.Mutex
	feed := NewFeed(store, testDefaults(), func(err error) {
		mu.Lock()
		reported = err
		mu.Unlock()
	})

	store.fail(errors.New("backend down"))
	created, err := feed.Create(context.Background(), Article{Title: "Doomed", Image: "/i.jpg"})
	if err != nil {
		t.Fatalf("Create should succeed optimistically: %v", err)
	}
	feed.Wait()

	if _, ok := feed.GetByID(created.ID); ok {
		t.Error("failed write left the article in the feed")
	}
	mu.Lock()
	defer mu.Unlock()
	if reported == nil {
		t.Error("write failure was not reported")
	}
}

// The durable write must outlive the request that triggered it: a reader
// navigating away (or a closed connection) cancels the request context, and
// that must not cancel a write the feed already presents as saved.
func TestFeedCreatePersistsAfterRequestContextCanceled(t *testing.T) {
	feed, store := newTestFeed(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	created, err := feed.Create(ctx, Article{Title: "Sticky", Image: "/i.jpg"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	feed.Wait()

	if _, ok := feed.GetByID(created.ID); !ok {
		t.Error("canceled request context reverted the mutation")
	}
	if _, ok := store.articles[created.ID]; !ok {
		t.Error("canceled request context canceled the durable write")
	}
}

// Dependent writes must reach the store in the order the mutations were
// issued: delete a seed article, restore it, and the marker must end up
// clear no matter how the background writes are scheduled.
func TestFeedDependentWritesKeepMutationOrder(t *testing.T) {
	feed, store := newTestFeed(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := feed.Remove(ctx, "1"); err != nil {
			t.Fatalf("Remove #%d: %v", i, err)
		}
		if err := feed.Restore(ctx, "1"); err != nil {
			t.Fatalf("Restore #%d: %v", i, err)
		}
	}
	feed.Wait()

	if store.deleted["1"] {
		t.Fatalf("marker durably set after restore: %v", store.deleted)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	for i, op := range store.ops {
		want := "mark:1"
		if i%2 == 1 {
			want = "clear:1"
		}
		if op != want {
			t.Fatalf("write %d = %q, want %q (full sequence %v)", i, op, want, store.ops)
		}
	}
}

func TestFeedUpdateDefaultBecomesOverride(t *testing.T) {
	feed, store := newTestFeed(t)
	ctx := context.Background()

	updated, err := feed.Update(ctx, "2", Article{Title: "Middle Seed, Revised", Image: "/i.jpg", Category: "news"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Origin != OriginLocal {
		t.Errorf("origin = %v, want local", updated.Origin)
	}

	got, _ := feed.GetByID("2")
	if got.Title != "Middle Seed, Revised" {
		t.Errorf("feed title = %q", got.Title)
	}
	feed.Wait()
	if _, ok := store.articles["2"]; !ok {
		t.Error("override not persisted")
	}
}

func TestFeedUpdateUnknownID(t *testing.T) {
	feed, _ := newTestFeed(t)
	if _, err := feed.Update(context.Background(), "nope", Article{Title: "X", Image: "/i.jpg"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFeedRemoveLocalDeletesPhysically(t *testing.T) {
	feed, store := newTestFeed(t)
	ctx := context.Background()

	created, err := feed.Create(ctx, Article{Title: "Temp", Image: "/i.jpg"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	feed.Wait()

	if err := feed.Remove(ctx, created.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	feed.Wait()
	if _, ok := store.articles[created.ID]; ok {
		t.Error("local article still in store")
	}
	if len(store.deleted) != 0 {
		t.Error("removing a local article must not leave a soft-delete marker")
	}
}

func TestFeedRemoveDefaultSoftDeletes(t *testing.T) {
	feed, store := newTestFeed(t)
	ctx := context.Background()

	if err := feed.Remove(ctx, "1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := feed.GetByID("1"); ok {
		t.Error("soft-deleted default still visible")
	}
	feed.Wait()
	if !store.deleted["1"] {
		t.Error("soft-delete marker not persisted")
	}
	if _, ok := store.articles["1"]; ok {
		t.Error("soft delete must not write an article record")
	}

	// Deleting the same id again reports not found.
	if err := feed.Remove(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove: %v", err)
	}
}

// Deleting the local override of a seed article resurfaces the shipped
// version; a second delete then soft-deletes the seed itself.
func TestFeedRemoveOverrideResurfacesDefault(t *testing.T) {
	feed, _ := newTestFeed(t)
	ctx := context.Background()

	if _, err := feed.Update(ctx, "2", Article{Title: "Edited", Image: "/i.jpg"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	feed.Wait()

	if err := feed.Remove(ctx, "2"); err != nil {
		t.Fatalf("Remove override: %v", err)
	}
	feed.Wait()

	got, ok := feed.GetByID("2")
	if !ok {
		t.Fatal("default did not resurface")
	}
	if got.Title != "Middle Seed" || got.Origin != OriginDefault {
		t.Errorf("resurfaced article = %+v", got)
	}
}

func TestFeedRestore(t *testing.T) {
	feed, store := newTestFeed(t)
	ctx := context.Background()

	if err := feed.Remove(ctx, "3"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := feed.Restore(ctx, "3"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, ok := feed.GetByID("3"); !ok {
		t.Error("restored default not visible")
	}
	feed.Wait()
	if len(store.deleted) != 0 {
		t.Errorf("marker survived restore: %v", store.deleted)
	}

	if err := feed.Restore(ctx, "3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("restoring a live article: %v", err)
	}
}

func TestFeedReorder(t *testing.T) {
	feed, _ := newTestFeed(t)
	ctx := context.Background()

	if err := feed.Reorder(ctx, []string{"1", "3", "2"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	assertIDs(t, feed.List(""), "1", "3", "2")
	feed.Wait()
	assertIDs(t, feed.List(""), "1", "3", "2")
}

func TestFeedReorderNoOpIssuesZeroWrites(t *testing.T) {
	feed, store := newTestFeed(t)
	ctx := context.Background()

	before := store.writeCount()
	if err := feed.Reorder(ctx, []string{"3", "2", "1"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	feed.Wait()
	if got := store.writeCount(); got != before {
		t.Errorf("no-op reorder issued %d writes", got-before)
	}
}

func TestFeedReorderUnknownID(t *testing.T) {
	feed, _ := newTestFeed(t)
	var verr *ValidationError
	err := feed.Reorder(context.Background(), []string{"3", "ghost", "1"})
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestFeedReorderRejectsDuplicateID(t *testing.T) {
	feed, store := newTestFeed(t)

	var verr *ValidationError
	err := feed.Reorder(context.Background(), []string{"3", "3", "1"})
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	feed.Wait()
	if got := store.writeCount(); got != 0 {
		t.Errorf("rejected reorder issued %d writes", got)
	}
	assertIDs(t, feed.List(""), "3", "2", "1")
}

func TestFeedReorderRevertsOnWriteFailure(t *testing.T) {
	feed, store := newTestFeed(t)
	ctx := context.Background()

	store.fail(errors.New("backend down"))
	if err := feed.Reorder(ctx, []string{"1", "2", "3"}); err != nil {
		t.Fatalf("Reorder should succeed optimistically: %v", err)
	}
	feed.Wait()
	assertIDs(t, feed.List(""), "3", "2", "1")
}

func TestFeedSettings(t *testing.T) {
	feed, store := newTestFeed(t)
	ctx := context.Background()

	want := Settings{AdsEnabled: true, AdSenseClientID: "ca-pub-1", AdSenseSlotID: "9", AdInterval: 4}
	if err := feed.UpdateSettings(ctx, want); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got := feed.Settings(); got != want {
		t.Errorf("settings = %+v", got)
	}
	feed.Wait()
	if store.settings != want {
		t.Errorf("persisted settings = %+v", store.settings)
	}
}

func TestFeedRefreshFailureKeepsStaleFeed(t *testing.T) {
	feed, store := newTestFeed(t)
	ctx := context.Background()

	if _, err := feed.Create(ctx, Article{Title: "Kept", Image: "/i.jpg"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	feed.Wait()
	before := len(feed.List(""))

	store.fail(errors.New("backend down"))
	if err := feed.Refresh(ctx); err == nil {
		t.Fatal("Refresh should report the failure")
	}
	if got := len(feed.List("")); got != before {
		t.Errorf("failed refresh changed the feed: %d -> %d", before, got)
	}
}

func TestFeedListByCategory(t *testing.T) {
	feed, _ := newTestFeed(t)
	ctx := context.Background()
	if _, err := feed.Create(ctx, Article{Title: "Poll", Image: "/i.jpg", Category: "politics"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	gossip := feed.List("gossip")
	if len(gossip) != 3 {
		t.Errorf("gossip list has %d articles", len(gossip))
	}
	politics := feed.List("Politics")
	if len(politics) != 1 {
		t.Errorf("category filter should be case-insensitive, got %d", len(politics))
	}
}

func TestFeedCategories(t *testing.T) {
	feed, _ := newTestFeed(t)
	ctx := context.Background()
	if _, err := feed.Create(ctx, Article{Title: "Poll", Image: "/i.jpg", Category: "politics"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got := feed.Categories()
	if len(got) != 2 {
		t.Fatalf("categories = %v", got)
	}
	// Feed order: the new article is newest, so politics leads.
	if got[0] != "politics" || got[1] != "gossip" {
		t.Errorf("categories = %v", got)
	}
}

func TestFeedGetBySlug(t *testing.T) {
	feed, _ := newTestFeed(t)
	got, ok := feed.GetBySlug("newest-seed")
	if !ok || got.ID != "3" {
		t.Errorf("GetBySlug = %+v, %v", got, ok)
	}
	if _, ok := feed.GetBySlug("nope"); ok {
		t.Error("unknown slug found")
	}
}
