package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"kiosk-architect/internal/library"

	"github.com/redis/go-redis/v9"
)

// RootHandleKey is the fixed key the last authorized library root is stored under.
const RootHandleKey = "kiosk_root_dir_handle"

var ErrHandleNotFound = errors.New("no library root has been selected")

// HandleRepository persists the last authorized library root across sessions
type HandleRepository interface {
	Get(ctx context.Context) (library.Handle, error)
	Save(ctx context.Context, handle library.Handle) error
	Clear(ctx context.Context) error
}

type redisHandleRepository struct {
	client *redis.Client
}

// NewRedisHandleRepository stores the handle as JSON under RootHandleKey
func NewRedisHandleRepository(client *redis.Client) HandleRepository {
	return &redisHandleRepository{client: client}
}

func (r *redisHandleRepository) Get(ctx context.Context) (library.Handle, error) {
	data, err := r.client.Get(ctx, RootHandleKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return library.Handle{}, ErrHandleNotFound
		}
		return library.Handle{}, fmt.Errorf("failed to load library root: %w", err)
	}

	var handle library.Handle
	if err := json.Unmarshal(data, &handle); err != nil {
		return library.Handle{}, fmt.Errorf("failed to decode library root: %w", err)
	}
	return handle, nil
}

func (r *redisHandleRepository) Save(ctx context.Context, handle library.Handle) error {
	data, err := json.Marshal(handle)
	if err != nil {
		return fmt.Errorf("failed to encode library root: %w", err)
	}
	if err := r.client.Set(ctx, RootHandleKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save library root: %w", err)
	}
	return nil
}

func (r *redisHandleRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, RootHandleKey).Err(); err != nil {
		return fmt.Errorf("failed to clear library root: %w", err)
	}
	return nil
}

type memoryHandleRepository struct {
	mu     sync.RWMutex
	handle *library.Handle
}

// NewMemoryHandleRepository keeps the handle for the lifetime of the process.
// It is used when redis is not configured.
func NewMemoryHandleRepository() HandleRepository {
	return &memoryHandleRepository{}
}

func (r *memoryHandleRepository) Get(context.Context) (library.Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.handle == nil {
		return library.Handle{}, ErrHandleNotFound
	}
	return *r.handle, nil
}

func (r *memoryHandleRepository) Save(_ context.Context, handle library.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handle = &handle
	return nil
}

func (r *memoryHandleRepository) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handle = nil
	return nil
}
