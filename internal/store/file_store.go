package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore keeps one <key>.json file per record under a collection
// directory, with an in-memory cache of the marshaled bytes. Writes go
// to a temp file in the same directory and are renamed over the target,
// so a crash mid-write never leaves a truncated record. The cache is
// only updated after the rename succeeds.
type FileStore struct {
	dir   string
	mu    sync.RWMutex
	cache map[string][]byte
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &PersistError{Op: "init", Key: dir, Err: err}
	}
	return &FileStore{dir: dir, cache: make(map[string][]byte)}, nil
}

func (s *FileStore) Load(ctx context.Context, key string, dest interface{}) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	s.mu.RLock()
	data, ok := s.cache[key]
	s.mu.RUnlock()
	if !ok {
		raw, err := os.ReadFile(s.path(key))
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, &PersistError{Op: "load", Key: key, Err: err}
		}
		data = raw
		s.mu.Lock()
		s.cache[key] = data
		s.mu.Unlock()
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, &PersistError{Op: "decode", Key: key, Err: err}
	}
	return true, nil
}

func (s *FileStore) Save(ctx context.Context, key string, value interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return &PersistError{Op: "encode", Key: key, Err: err}
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return &PersistError{Op: "save", Key: key, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PersistError{Op: "save", Key: key, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PersistError{Op: "save", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &PersistError{Op: "save", Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return &PersistError{Op: "save", Key: key, Err: err}
	}
	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &PersistError{Op: "delete", Key: key, Err: err}
	}
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &PersistError{Op: "list", Key: s.dir, Err: err}
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// checkKey rejects keys that would escape the collection directory.
// Keys keep their case: wallet addresses are case-sensitive.
func checkKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) {
		return &PersistError{Op: "key", Key: key, Err: errors.New("invalid record key")}
	}
	return nil
}
