package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	Password     string        `mapstructure:"password" yaml:"-"`
	DB           int           `mapstructure:"db" yaml:"db"`
	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// KeyPrefix namespaces every key this repo writes.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// DefaultRedisConfig returns a local, unauthenticated configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "nurture:progress:",
	}
}

// Addr returns the Redis address in "host:port" format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Hash fields of a progress record.
const (
	hashDocument  = "document"
	hashVersion   = "version"
	hashUpdatedAt = "updatedAt"
)

// RedisRepo is a Repo storing each record as a Redis hash. Merges run as
// WATCH/MULTI transactions and are stamped with the server's TIME.
type RedisRepo struct {
	client redis.UniversalClient
	prefix string
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisRepo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr(), err)
	}
	return NewRedisRepo(client, cfg.KeyPrefix), nil
}

// NewRedisRepo wraps an existing client.
func NewRedisRepo(client redis.UniversalClient, prefix string) *RedisRepo {
	return &RedisRepo{client: client, prefix: prefix}
}

// Close closes the client.
func (r *RedisRepo) Close() error {
	return r.client.Close()
}

// Ping checks the server connection.
func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// RedisKey returns the hash key for key.
func (r *RedisRepo) RedisKey(key Key) string {
	return r.prefix + key.UserID + ":" + key.SubjectID + ":" + key.TopicID
}

// Get returns the record for key or ErrNotFound.
func (r *RedisRepo) Get(ctx context.Context, key Key) (*Record, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	fields, err := r.client.HGetAll(ctx, r.RedisKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return decodeHash(key, fields)
}

// Merge deep-merges patch into the hash for key under WATCH, so a
// concurrent writer aborts the transaction.
func (r *RedisRepo) Merge(ctx context.Context, key Key, patch map[string]any, opts MergeOptions) (*Record, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	rk := r.RedisKey(key)

	var out *Record
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, rk).Result()
		if err != nil {
			return fmt.Errorf("hgetall %s: %w", key, err)
		}
		prev, err := decodeHash(key, fields)
		exists := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		var prevDoc map[string]any
		var prevVersion int64
		var prevTime time.Time
		if exists {
			prevDoc, prevVersion, prevTime = prev.Document, prev.Version, prev.UpdatedAt
		}
		if err := checkVersion(opts, exists, prevVersion); err != nil {
			return err
		}

		now, err := tx.Time(ctx).Result()
		if err != nil {
			return fmt.Errorf("server time: %w", err)
		}
		ts := serverTime(now, prevTime)
		merged := DeepMerge(prevDoc, patch)
		merged[UpdatedAtField] = ts.Format(time.RFC3339Nano)
		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		next := prevVersion + 1

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, rk,
				hashDocument, string(data),
				hashVersion, next,
				hashUpdatedAt, ts.Format(time.RFC3339Nano))
			return nil
		})
		if err != nil {
			return err
		}
		out = &Record{Key: key, Document: merged, Version: next, UpdatedAt: ts}
		return nil
	}, rk)

	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, redis.TxFailedErr):
		return nil, fmt.Errorf("%w: %s changed during merge", ErrVersionConflict, key)
	case errors.Is(err, ErrVersionConflict):
		return nil, err
	default:
		return nil, fmt.Errorf("merge %s: %w", key, err)
	}
}

func decodeHash(key Key, fields map[string]string) (*Record, error) {
	raw, ok := fields[hashDocument]
	if !ok {
		return nil, ErrNotFound
	}
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	rec := &Record{Key: key, Document: doc}
	if v, ok := fields[hashVersion]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode %s version: %w", key, err)
		}
		rec.Version = n
	}
	if v, ok := fields[hashUpdatedAt]; ok {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("decode %s updatedAt: %w", key, err)
		}
		rec.UpdatedAt = ts
	}
	return rec, nil
}
