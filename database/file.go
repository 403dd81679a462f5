package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is the local single-process backend: each collection is one JSON
// file (id -> document) under the data directory. A process-wide mutex
// makes every operation, including Mutate and RunInTransaction, atomic with
// respect to the others.
type FileStore struct {
	dir string

	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
}

// StartFileStore opens a file-backed store rooted at dir.
func StartFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: data directory not configured")
	}
	return &FileStore{
		dir:         dir,
		collections: make(map[string]map[string]json.RawMessage),
	}, nil
}

func (s *FileStore) Init() error {
	log.Println("Initializing file-backed document store at", s.dir)
	return os.MkdirAll(s.dir, 0o755)
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) HealthCheck() error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("file store: %s is not a directory", s.dir)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, collection, id string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(collection)
	if err != nil {
		return err
	}
	raw, ok := docs[id]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (s *FileStore) List(ctx context.Context, collection string, dest interface{}, filters ...Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(collection)
	if err != nil {
		return err
	}

	matched := make([]json.RawMessage, 0, len(docs))
	for _, raw := range docs {
		ok, err := matches(raw, filters)
		if err != nil {
			return err
		}
		if ok {
			matched = append(matched, raw)
		}
	}

	combined, err := json.Marshal(matched)
	if err != nil {
		return err
	}
	return json.Unmarshal(combined, dest)
}

func (s *FileStore) Put(ctx context.Context, collection, id string, doc interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.put(collection, id, doc); err != nil {
		return err
	}
	return s.persist(collection)
}

func (s *FileStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(collection)
	if err != nil {
		return err
	}
	delete(docs, id)
	return s.persist(collection)
}

func (s *FileStore) DeleteWhere(ctx context.Context, collection string, filters ...Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(collection)
	if err != nil {
		return err
	}
	for id, raw := range docs {
		ok, err := matches(raw, filters)
		if err != nil {
			return err
		}
		if ok {
			delete(docs, id)
		}
	}
	return s.persist(collection)
}

func (s *FileStore) Mutate(ctx context.Context, collection, id string, fn func(raw []byte) (interface{}, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(collection)
	if err != nil {
		return err
	}
	raw, ok := docs[id]
	if !ok {
		return ErrNotFound
	}

	updated, err := fn(raw)
	if err != nil {
		return err
	}
	if err := s.put(collection, id, updated); err != nil {
		return err
	}
	return s.persist(collection)
}

// RunInTransaction runs fn against an in-memory view under the store lock;
// touched collections are snapshotted before the first change and restored
// when fn fails, and only written to disk on success.
func (s *FileStore) RunInTransaction(ctx context.Context, fn func(tx Storage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &fileTx{store: s, snapshots: make(map[string]map[string]json.RawMessage)}
	if err := fn(tx); err != nil {
		for collection, snapshot := range tx.snapshots {
			s.collections[collection] = snapshot
		}
		return err
	}
	for collection := range tx.snapshots {
		if err := s.persist(collection); err != nil {
			return err
		}
	}
	return nil
}

// --- internals (caller holds s.mu) ---

func (s *FileStore) load(collection string) (map[string]json.RawMessage, error) {
	if docs, ok := s.collections[collection]; ok {
		return docs, nil
	}

	docs := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("file store: corrupt collection %s: %w", collection, err)
	}
	s.collections[collection] = docs
	return docs, nil
}

func (s *FileStore) put(collection, id string, doc interface{}) error {
	docs, err := s.load(collection)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	docs[id] = raw
	return nil
}

func (s *FileStore) persist(collection string) error {
	docs, err := s.load(collection)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename so a crash mid-write never corrupts the collection.
	path := s.path(collection)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *FileStore) snapshot(collection string) map[string]json.RawMessage {
	docs := s.collections[collection]
	copied := make(map[string]json.RawMessage, len(docs))
	for id, raw := range docs {
		copied[id] = raw
	}
	return copied
}

// fileTx is the transactional view handed to RunInTransaction callbacks. The
// outer store lock is already held, so it reuses the unlocked internals and
// defers persistence to commit time.
type fileTx struct {
	store     *FileStore
	snapshots map[string]map[string]json.RawMessage
}

func (t *fileTx) remember(collection string) error {
	if _, ok := t.snapshots[collection]; ok {
		return nil
	}
	if _, err := t.store.load(collection); err != nil {
		return err
	}
	t.snapshots[collection] = t.store.snapshot(collection)
	return nil
}

func (t *fileTx) Init() error        { return nil }
func (t *fileTx) Close() error       { return nil }
func (t *fileTx) HealthCheck() error { return t.store.HealthCheck() }

func (t *fileTx) Get(ctx context.Context, collection, id string, dest interface{}) error {
	docs, err := t.store.load(collection)
	if err != nil {
		return err
	}
	raw, ok := docs[id]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (t *fileTx) List(ctx context.Context, collection string, dest interface{}, filters ...Filter) error {
	docs, err := t.store.load(collection)
	if err != nil {
		return err
	}
	matched := make([]json.RawMessage, 0, len(docs))
	for _, raw := range docs {
		ok, err := matches(raw, filters)
		if err != nil {
			return err
		}
		if ok {
			matched = append(matched, raw)
		}
	}
	combined, err := json.Marshal(matched)
	if err != nil {
		return err
	}
	return json.Unmarshal(combined, dest)
}

func (t *fileTx) Put(ctx context.Context, collection, id string, doc interface{}) error {
	if err := t.remember(collection); err != nil {
		return err
	}
	return t.store.put(collection, id, doc)
}

func (t *fileTx) Delete(ctx context.Context, collection, id string) error {
	if err := t.remember(collection); err != nil {
		return err
	}
	docs, err := t.store.load(collection)
	if err != nil {
		return err
	}
	delete(docs, id)
	return nil
}

func (t *fileTx) DeleteWhere(ctx context.Context, collection string, filters ...Filter) error {
	if err := t.remember(collection); err != nil {
		return err
	}
	docs, err := t.store.load(collection)
	if err != nil {
		return err
	}
	for id, raw := range docs {
		ok, err := matches(raw, filters)
		if err != nil {
			return err
		}
		if ok {
			delete(docs, id)
		}
	}
	return nil
}

func (t *fileTx) Mutate(ctx context.Context, collection, id string, fn func(raw []byte) (interface{}, error)) error {
	if err := t.remember(collection); err != nil {
		return err
	}
	docs, err := t.store.load(collection)
	if err != nil {
		return err
	}
	raw, ok := docs[id]
	if !ok {
		return ErrNotFound
	}
	updated, err := fn(raw)
	if err != nil {
		return err
	}
	return t.store.put(collection, id, updated)
}

func (t *fileTx) RunInTransaction(ctx context.Context, fn func(tx Storage) error) error {
	// Already inside the transaction; nesting just joins it.
	return fn(t)
}

// matches evaluates adapter filters against one raw document by comparing
// compacted JSON encodings, so string/number/bool values all behave like the
// JSONB containment of the remote backend.
func matches(raw json.RawMessage, filters []Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false, err
	}

	for _, f := range filters {
		want, err := canonicalValue(f.Value)
		if err != nil {
			return false, err
		}
		got, ok := fields[f.Field]
		if !ok {
			return false, nil
		}

		switch f.Op {
		case OpEq:
			have, err := canonicalJSON(got)
			if err != nil {
				return false, err
			}
			if have != want {
				return false, nil
			}
		case OpContains:
			var items []json.RawMessage
			if err := json.Unmarshal(got, &items); err != nil {
				return false, nil // not an array: no match
			}
			found := false
			for _, item := range items {
				have, err := canonicalJSON(item)
				if err != nil {
					return false, err
				}
				if have == want {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return true, nil
}

func canonicalValue(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return canonicalJSON(raw)
}

func canonicalJSON(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}
