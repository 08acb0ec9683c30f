package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// DistributedConfig connects the distributed backend. MongoURI is
// required; RedisAddr is optional and only speeds up Has checks.
type DistributedConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI        string
	MongoDatabase   string // default "gplugins"
	MongoCollection string // default "results"
}

// Distributed keeps payloads in MongoDB with a Redis existence index in
// front. Mongo is authoritative; the index is advisory and repopulated on
// fallthrough, so a cold or flushed Redis only costs latency.
type Distributed struct {
	rdb  *redis.Client
	mc   *mongo.Client
	coll *mongo.Collection
}

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	ExpiresAt time.Time `bson:"expires_at,omitempty"`
}

func (e mongoEntry) expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// NewDistributed connects both stores and pings them.
func NewDistributed(ctx context.Context, cfg DistributedConfig) (*Distributed, error) {
	if cfg.MongoURI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "distributed store needs a mongo URI")
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "gplugins"
	}
	if cfg.MongoCollection == "" {
		cfg.MongoCollection = "results"
	}

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect mongo")
	}
	if err := mc.Ping(ctx, nil); err != nil {
		_ = mc.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "ping mongo")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = mc.Disconnect(ctx)
			_ = rdb.Close()
			return nil, errors.Wrap(errors.ErrCodeStore, err, "ping redis")
		}
	}

	return &Distributed{
		rdb:  rdb,
		mc:   mc,
		coll: mc.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
	}, nil
}

// Get reads from Mongo. Expired entries are removed and reported as
// misses.
func (d *Distributed) Get(ctx context.Context, key string) ([]byte, error) {
	var entry mongoEntry
	err := d.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, missErr(key)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read entry for %s", key)
	}
	if entry.expired() {
		_ = d.Delete(ctx, key)
		return nil, missErr(key)
	}
	return entry.Data, nil
}

// Set upserts into Mongo, then refreshes the Redis index.
func (d *Distributed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := mongoEntry{Key: key, Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	_, err := d.coll.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "store entry for %s", key)
	}
	if d.rdb != nil {
		// Index failures only cost Has latency.
		_ = d.rdb.Set(ctx, key, "1", ttl).Err()
	}
	return nil
}

// Has checks the Redis index first and falls through to Mongo, rebuilding
// the index entry when Mongo has the payload.
func (d *Distributed) Has(ctx context.Context, key string) (bool, error) {
	if d.rdb != nil {
		n, err := d.rdb.Exists(ctx, key).Result()
		if err == nil && n > 0 {
			return true, nil
		}
	}

	var entry mongoEntry
	err := d.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStore, err, "check entry for %s", key)
	}
	if entry.expired() {
		_ = d.Delete(ctx, key)
		return false, nil
	}

	if d.rdb != nil {
		var ttl time.Duration
		if !entry.ExpiresAt.IsZero() {
			ttl = time.Until(entry.ExpiresAt)
		}
		_ = d.rdb.Set(ctx, key, "1", ttl).Err()
	}
	return true, nil
}

// Delete removes the entry from both stores.
func (d *Distributed) Delete(ctx context.Context, key string) error {
	if _, err := d.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete entry for %s", key)
	}
	if d.rdb != nil {
		_ = d.rdb.Del(ctx, key).Err()
	}
	return nil
}

// Close disconnects both clients.
func (d *Distributed) Close() error {
	var firstErr error
	if d.rdb != nil {
		if err := d.rdb.Close(); err != nil {
			firstErr = errors.Wrap(errors.ErrCodeStore, err, "close redis")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.mc.Disconnect(ctx); err != nil && firstErr == nil {
		firstErr = errors.Wrap(errors.ErrCodeStore, err, "disconnect mongo")
	}
	return firstErr
}

var _ Backend = (*Distributed)(nil)
