package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// File stores entries as JSON envelopes under a directory, two levels deep
// by key hash so no single directory grows unbounded.
type File struct {
	dir string
}

// NewFile creates a file backend rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create store dir %s", dir)
	}
	return &File{dir: dir}, nil
}

type fileEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e fileEntry) expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// Get returns the stored payload, or a NOT_FOUND error on miss. Corrupt
// and expired entries are removed and treated as misses.
func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	path := f.path(key)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, missErr(key)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read entry for %s", key)
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = os.Remove(path)
		return nil, missErr(key)
	}
	if entry.expired() {
		_ = os.Remove(path)
		return nil, missErr(key)
	}
	return entry.Data, nil
}

// Set stores a payload under key. The entry is written to a temp file and
// renamed so readers never see a partial envelope.
func (f *File) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := fileEntry{Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode entry for %s", key)
	}

	path := f.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "create store dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "entry-*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "create temp entry for %s", key)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeStore, err, "write entry for %s", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeStore, err, "write entry for %s", key)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(errors.ErrCodeStore, err, "store entry for %s", key)
	}
	return nil
}

// Has reports whether key holds an unexpired entry.
func (f *File) Has(ctx context.Context, key string) (bool, error) {
	_, err := f.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// Delete removes an entry.
func (f *File) Delete(ctx context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(errors.ErrCodeStore, err, "delete entry for %s", key)
}

// Close does nothing for the file backend.
func (f *File) Close() error {
	return nil
}

// path maps a key onto a sharded file location.
func (f *File) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(f.dir, hash[:2], hash[2:]+".json")
}

var _ Backend = (*File)(nil)
