// Package store persists client state through a get/set-by-key contract.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// KV is the key-value contract the client state is kept in.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes every entry or none of them.
	SetMany(ctx context.Context, entries map[string][]byte) error
}

var (
	_ KV = (*FileKV)(nil)
	_ KV = (*RedisKV)(nil)
)

// FileKV keeps every key in one JSON document on disk. Writes replace the
// file atomically.
type FileKV struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// OpenFileKV loads path, treating a missing file as empty.
func OpenFileKV(path string) (*FileKV, error) {
	kv := &FileKV{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return kv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(raw) == 0 {
		return kv, nil
	}
	if err := json.Unmarshal(raw, &kv.data); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	return kv, nil
}

func (f *FileKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (f *FileKV) Set(ctx context.Context, key string, value []byte) error {
	return f.SetMany(ctx, map[string][]byte{key: value})
}

// SetMany applies all entries with a single file replacement. On failure
// the in-memory document is rolled back and the file is left untouched.
func (f *FileKV) SetMany(_ context.Context, entries map[string][]byte) error {
	for key, value := range entries {
		if !json.Valid(value) {
			return fmt.Errorf("state value for %q is not JSON", key)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prev := make(map[string]json.RawMessage, len(entries))
	for key, value := range entries {
		if old, had := f.data[key]; had {
			prev[key] = old
		}
		f.data[key] = append(json.RawMessage(nil), value...)
	}
	if err := f.flush(); err != nil {
		for key := range entries {
			if old, had := prev[key]; had {
				f.data[key] = old
			} else {
				delete(f.data, key)
			}
		}
		return err
	}
	return nil
}

func (f *FileKV) flush() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

const redisPrefix = "portfolio:"

// RedisKV keeps each key as a plain Redis string without expiry.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, redisPrefix+key, value, 0).Err()
}

// SetMany writes all entries in one MULTI/EXEC transaction.
func (r *RedisKV) SetMany(ctx context.Context, entries map[string][]byte) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, redisPrefix+key, value, 0)
		}
		return nil
	})
	return err
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
