package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// Backend stores simulation payloads by key. A ttl of zero means the entry
// never expires.
type Backend interface {
	// Get returns the stored payload, or a NOT_FOUND error on miss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a payload under key, replacing any previous entry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Has reports whether key holds an unexpired entry.
	Has(ctx context.Context, key string) (bool, error)
	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// DefaultPrefix namespaces simulation keys.
const DefaultPrefix = "sim"

// Keyer derives store keys from simulation inputs. The zero value uses
// DefaultPrefix.
type Keyer struct {
	Prefix string
}

// Key hashes the component name and its resolved settings into a stable
// key. Settings marshal through encoding/json, so map keys are sorted and
// equal inputs give equal keys.
func (k Keyer) Key(component string, settings any) (string, error) {
	prefix := k.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	payload, err := json.Marshal([]any{component, settings})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "settings for %q are not serializable", component)
	}
	sum := sha256.Sum256(payload)
	return prefix + ":" + hex.EncodeToString(sum[:]), nil
}

// Hash returns the full hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func missErr(key string) error {
	return errors.New(errors.ErrCodeNotFound, "no entry for %s", key)
}
