package store

import (
	"context"
	"sync"
)

// MemKV is an in-memory KV used by tests in place of Redis.
type MemKV struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemKV() *MemKV {
	return &MemKV{m: make(map[string]string)}
}

func (kv *MemKV) Get(ctx context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	val, ok := kv.m[key]
	return val, ok, nil
}

func (kv *MemKV) Set(ctx context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

// Put seeds a raw slot value, used by tests to simulate pre-existing or
// corrupt persisted data.
func (kv *MemKV) Put(key, value string) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
}
