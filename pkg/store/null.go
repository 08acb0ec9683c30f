package store

import (
	"context"
	"time"
)

// Null never stores anything. It backs --no-cache runs.
type Null struct{}

// NewNull creates a null backend.
func NewNull() *Null {
	return &Null{}
}

// Get always misses.
func (Null) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, missErr(key)
}

// Set discards the payload.
func (Null) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Has always reports false.
func (Null) Has(ctx context.Context, key string) (bool, error) {
	return false, nil
}

// Delete does nothing.
func (Null) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (Null) Close() error {
	return nil
}

var _ Backend = Null{}
