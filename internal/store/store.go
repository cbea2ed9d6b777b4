package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Namespace identifies one persisted JSON mapping.
type Namespace string

const (
	Groups   Namespace = "groups"
	Users    Namespace = "users"
	Trials   Namespace = "trials"
	Filters  Namespace = "filters"
	Keywords Namespace = "keywords"
	LastSeen Namespace = "last_seen"
)

// fileNames maps namespaces to their on-disk files. The names are fixed;
// existing deployments already have data under them.
var fileNames = map[Namespace]string{
	Groups:   "premium_groups.json",
	Users:    "premium_users.json",
	Trials:   "trial_users.json",
	Filters:  "premium_filters.json",
	Keywords: "keyword_filters.json",
	LastSeen: "last_seen_launches.json",
}

// Store persists one JSON object per namespace under a data directory.
// Every write replaces the whole namespace file.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create data directory %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Get loads a namespace mapping. A missing or empty file is an empty mapping
// and the file is created so the next write cannot race directory creation.
func (s *Store) Get(ns Namespace) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ns)
}

func (s *Store) getLocked(ns Namespace) (map[string]json.RawMessage, error) {
	path := s.path(ns)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.writeLocked(ns, map[string]json.RawMessage{}); err != nil {
			return nil, err
		}
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read namespace %s", ns)
	}

	data := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		// Corrupt file behaves like an empty mapping, same as the previous
		// deployment did. The bad content is replaced on the next Set.
		return map[string]json.RawMessage{}, nil
	}
	return data, nil
}

// Set replaces a namespace mapping.
func (s *Store) Set(ns Namespace, data map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ns, data)
}

// Update applies fn to the current mapping and persists the result as one
// read-modify-write step under the store lock.
func (s *Store) Update(ns Namespace, fn func(map[string]json.RawMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.getLocked(ns)
	if err != nil {
		return err
	}
	fn(data)
	return s.writeLocked(ns, data)
}

// writeLocked replaces the namespace file through a temp-file rename so a
// process killed mid-write never leaves a truncated file behind.
func (s *Store) writeLocked(ns Namespace, data map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return errors.Wrapf(err, "could not encode namespace %s", ns)
	}

	path := s.path(ns)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrapf(err, "could not write namespace %s", ns)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "could not replace namespace %s", ns)
	}
	return nil
}

func (s *Store) path(ns Namespace) string {
	name, ok := fileNames[ns]
	if !ok {
		name = string(ns) + ".json"
	}
	return filepath.Join(s.dir, name)
}
