package tattle

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FileStore is a single-file JSON store implementing OverlayStore. It backs
// deployments without a database and serves as the offline staging area for
// locally authored articles and soft-deletion markers. The whole state is
// read once at open and rewritten atomically (temp file + rename) on every
// mutation.
type FileStore struct {
	mu    sync.Mutex
	path  string
	state fileState
}

type fileState struct {
	Articles        []Article `json:"articles"`
	DeletedDefaults []string  `json:"deletedDefaults,omitempty"`
	Settings        Settings  `json:"settings"`
}

var _ OverlayStore = (*FileStore)(nil)

// OpenFileStore opens (or creates) the JSON store at path.
func OpenFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	fs := &FileStore{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, unavailable("open file store", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fs.state); err != nil {
			return nil, unavailable("decode file store", err)
		}
	}
	return fs, nil
}

// commit writes state to the backing file and, only on success, swaps it in
// as the current state. A failed write leaves the old state visible so a
// mutation the caller reverted can never resurface from memory. Callers
// hold the mutex.
func (fs *FileStore) commit(state fileState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return unavailable("encode file store", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return unavailable("write file store", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return unavailable("replace file store", err)
	}
	fs.state = state
	return nil
}

// FetchAll returns every stored article.
func (fs *FileStore) FetchAll(ctx context.Context) ([]Article, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return slices.Clone(fs.state.Articles), nil
}

// Upsert creates or replaces the article keyed by id.
func (fs *FileStore) Upsert(ctx context.Context, a Article) error {
	a.Origin = OriginUnknown
	fs.mu.Lock()
	defer fs.mu.Unlock()
	next := fs.state
	next.Articles = slices.Clone(fs.state.Articles)
	replaced := false
	for i, existing := range next.Articles {
		if existing.ID == a.ID {
			next.Articles[i] = a
			replaced = true
			break
		}
	}
	if !replaced {
		next.Articles = append(next.Articles, a)
	}
	return fs.commit(next)
}

// Delete removes the article keyed by id; a missing id is not an error.
func (fs *FileStore) Delete(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	kept := make([]Article, 0, len(fs.state.Articles))
	for _, a := range fs.state.Articles {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(fs.state.Articles) {
		return nil
	}
	next := fs.state
	next.Articles = kept
	return fs.commit(next)
}

// BatchUpdateOrder assigns order := index per id. Unknown ids are reported
// as a *PartialBatchError before any state changes, so the file is never
// left with a partial ordering.
func (fs *FileStore) BatchUpdateOrder(ctx context.Context, ids []string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	position := make(map[string]int, len(ids))
	for i, id := range ids {
		position[id] = i
	}
	known := make(map[string]bool, len(fs.state.Articles))
	for _, a := range fs.state.Articles {
		known[a.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &PartialBatchError{FailedIDs: missing, Err: ErrNotFound}
	}
	next := fs.state
	next.Articles = slices.Clone(fs.state.Articles)
	for i := range next.Articles {
		if pos, ok := position[next.Articles[i].ID]; ok {
			p := pos
			next.Articles[i].Order = &p
		}
	}
	return fs.commit(next)
}

// DeletedDefaultIDs returns the soft-deleted seed article ids.
func (fs *FileStore) DeletedDefaultIDs(ctx context.Context) (map[string]bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	deleted := make(map[string]bool, len(fs.state.DeletedDefaults))
	for _, id := range fs.state.DeletedDefaults {
		deleted[id] = true
	}
	return deleted, nil
}

// MarkDefaultDeleted records a soft-delete marker for a seed article id.
func (fs *FileStore) MarkDefaultDeleted(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if slices.Contains(fs.state.DeletedDefaults, id) {
		return nil
	}
	next := fs.state
	next.DeletedDefaults = append(slices.Clone(fs.state.DeletedDefaults), id)
	return fs.commit(next)
}

// ClearDefaultDeleted removes a soft-delete marker.
func (fs *FileStore) ClearDefaultDeleted(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	i := slices.Index(fs.state.DeletedDefaults, id)
	if i < 0 {
		return nil
	}
	next := fs.state
	next.DeletedDefaults = slices.Delete(slices.Clone(fs.state.DeletedDefaults), i, i+1)
	return fs.commit(next)
}

// LoadSettings returns the stored settings singleton.
func (fs *FileStore) LoadSettings(ctx context.Context) (Settings, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.state.Settings, nil
}

// SaveSettings replaces the stored settings singleton.
func (fs *FileStore) SaveSettings(ctx context.Context, s Settings) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	next := fs.state
	next.Settings = s
	return fs.commit(next)
}
