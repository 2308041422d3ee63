package tattle

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ArticleStore is the persistence contract for the canonical article set.
// Every method may fail due to connectivity; failures are reported, never
// retried internally, and wrap ErrStoreUnavailable.
type ArticleStore interface {
	// FetchAll returns every stored article. An empty backend yields an
	// empty slice, not an error.
	FetchAll(ctx context.Context) ([]Article, error)
	// Upsert creates or replaces the article keyed by its id. Idempotent.
	Upsert(ctx context.Context, a Article) error
	// Delete removes the record keyed by id; a missing id is not an error.
	Delete(ctx context.Context, id string) error
	// BatchUpdateOrder persists order := index for each id. Either every
	// position is applied or none are; ids the backend cannot update are
	// reported via *PartialBatchError.
	BatchUpdateOrder(ctx context.Context, ids []string) error
}

// OverlayStore extends ArticleStore with the soft-delete markers for seed
// defaults and the global settings record.
type OverlayStore interface {
	ArticleStore
	DeletedDefaultIDs(ctx context.Context) (map[string]bool, error)
	MarkDefaultDeleted(ctx context.Context, id string) error
	ClearDefaultDeleted(ctx context.Context, id string) error
	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// Store wraps a SQLite database and provides the durable side of the feed:
// locally authored articles, soft-delete markers, settings, and view counts.
type Store struct {
	db *sql.DB
}

var _ OverlayStore = (*Store)(nil)

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write access, busy_timeout so writers wait
	// instead of returning SQLITE_BUSY, synchronous=NORMAL is safe with WAL.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    slug TEXT NOT NULL,
    slug_locked INTEGER NOT NULL DEFAULT 0,
    category TEXT NOT NULL,
    image TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    embed_url TEXT NOT NULL DEFAULT '',
    sort_order INTEGER,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS deleted_defaults (
    id TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    adsense_client TEXT NOT NULL DEFAULT '',
    adsense_slot TEXT NOT NULL DEFAULT '',
    admob_app TEXT NOT NULL DEFAULT '',
    admob_unit TEXT NOT NULL DEFAULT '',
    analytics_id TEXT NOT NULL DEFAULT '',
    ads_enabled INTEGER NOT NULL DEFAULT 0,
    ad_interval INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS article_views (
    id TEXT PRIMARY KEY,
    views INTEGER NOT NULL DEFAULT 0
);
`)
	return err
}

const articleColumns = `id, title, slug, slug_locked, category, image, author, content, embed_url, sort_order, created_at`

func scanArticle(row interface{ Scan(...any) error }) (Article, error) {
	var a Article
	var slugLocked int
	var order sql.NullInt64
	var createdAt string
	if err := row.Scan(&a.ID, &a.Title, &a.Slug, &slugLocked, &a.Category, &a.Image,
		&a.Author, &a.Content, &a.EmbedURL, &order, &createdAt); err != nil {
		return Article{}, err
	}
	a.SlugLocked = slugLocked == 1
	if order.Valid {
		n := int(order.Int64)
		a.Order = &n
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		a.CreatedAt = t
	}
	return a, nil
}

// FetchAll returns all locally authored articles in id order.
func (s *Store) FetchAll(ctx context.Context) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+articleColumns+` FROM articles ORDER BY id`)
	if err != nil {
		return nil, unavailable("fetch articles", err)
	}
	defer rows.Close()

	articles := []Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, unavailable("scan article", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("fetch articles", err)
	}
	return articles, nil
}

// Upsert creates or replaces an article keyed by id. The derived Origin tag
// is not part of the stored record.
func (s *Store) Upsert(ctx context.Context, a Article) error {
	locked := 0
	if a.SlugLocked {
		locked = 1
	}
	var order any
	if a.Order != nil {
		order = *a.Order
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO articles (`+articleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Slug, locked, a.Category, a.Image, a.Author, a.Content,
		a.EmbedURL, order, a.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return unavailable("upsert article", err)
	}
	return nil
}

// Delete removes an article by id. Deleting an absent id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id); err != nil {
		return unavailable("delete article", err)
	}
	return nil
}

// BatchUpdateOrder writes order := index for each id inside one transaction.
// Ids with no stored record would otherwise be skipped silently, so they are
// surfaced as a *PartialBatchError and the whole batch is rolled back.
func (s *Store) BatchUpdateOrder(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin order update", err)
	}
	defer tx.Rollback()

	var missing []string
	for i, id := range ids {
		res, err := tx.ExecContext(ctx, `UPDATE articles SET sort_order = ? WHERE id = ?`, i, id)
		if err != nil {
			return unavailable("update order", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &PartialBatchError{FailedIDs: missing, Err: ErrNotFound}
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit order update", err)
	}
	return nil
}

// DeletedDefaultIDs returns the set of soft-deleted seed article ids.
func (s *Store) DeletedDefaultIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM deleted_defaults`)
	if err != nil {
		return nil, unavailable("fetch deletion markers", err)
	}
	defer rows.Close()

	deleted := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scan deletion marker", err)
		}
		deleted[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("fetch deletion markers", err)
	}
	return deleted, nil
}

// MarkDefaultDeleted records a soft-delete marker for a seed article id.
func (s *Store) MarkDefaultDeleted(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO deleted_defaults (id) VALUES (?)`, id); err != nil {
		return unavailable("mark default deleted", err)
	}
	return nil
}

// ClearDefaultDeleted removes a soft-delete marker, restoring the seed article.
func (s *Store) ClearDefaultDeleted(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM deleted_defaults WHERE id = ?`, id); err != nil {
		return unavailable("clear default deleted", err)
	}
	return nil
}

// LoadSettings reads the settings singleton. A missing row yields zero-value
// Settings: the record is created on first save.
func (s *Store) LoadSettings(ctx context.Context) (Settings, error) {
	var set Settings
	var adsEnabled int
	err := s.db.QueryRowContext(ctx,
		`SELECT adsense_client, adsense_slot, admob_app, admob_unit, analytics_id, ads_enabled, ad_interval FROM settings WHERE id = 1`).
		Scan(&set.AdSenseClientID, &set.AdSenseSlotID, &set.AdMobAppID, &set.AdMobUnitID,
			&set.AnalyticsID, &adsEnabled, &set.AdInterval)
	if err == sql.ErrNoRows {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, unavailable("load settings", err)
	}
	set.AdsEnabled = adsEnabled == 1
	return set, nil
}

// SaveSettings writes the settings singleton in place.
func (s *Store) SaveSettings(ctx context.Context, set Settings) error {
	adsEnabled := 0
	if set.AdsEnabled {
		adsEnabled = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings (id, adsense_client, adsense_slot, admob_app, admob_unit, analytics_id, ads_enabled, ad_interval)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)`,
		set.AdSenseClientID, set.AdSenseSlotID, set.AdMobAppID, set.AdMobUnitID,
		set.AnalyticsID, adsEnabled, set.AdInterval)
	if err != nil {
		return unavailable("save settings", err)
	}
	return nil
}

// IncrementViews bumps the view counter for an article id.
func (s *Store) IncrementViews(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO article_views (id, views) VALUES (?, 1)
		 ON CONFLICT(id) DO UPDATE SET views = views + 1`, id)
	if err != nil {
		return unavailable("increment views", err)
	}
	return nil
}

// ViewCounts returns view counters keyed by article id.
func (s *Store) ViewCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, views FROM article_views`)
	if err != nil {
		return nil, unavailable("fetch view counts", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var views int
		if err := rows.Scan(&id, &views); err != nil {
			return nil, unavailable("scan view count", err)
		}
		counts[id] = views
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("fetch view counts", err)
	}
	return counts, nil
}
