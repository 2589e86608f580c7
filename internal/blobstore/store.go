// Package blobstore reads audio objects from S3-compatible storage and recovers
// objects whose recorded key no longer matches the stored key.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned by Store.Get when the key does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrKeyNotFound is returned by the resolver when every stage missed.
	ErrKeyNotFound = errors.New("no stored key matches")
)

// Store is the slice of the object store API the pipeline needs.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Exists is a HEAD-style probe; a missing key is (false, nil).
	Exists(ctx context.Context, bucket, key string) (bool, error)
	// List returns at most limit keys under prefix in lexical order.
	List(ctx context.Context, bucket, prefix string, limit int) ([]string, error)
}

// MemStore is an in-memory Store that records every call, for tests.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]map[string][]byte
	calls   []string

	// GetErr, when set for "bucket/key", is returned by Get instead of the object.
	GetErr map[string]error
	// ExistsErr, when set for "bucket/key", is returned by Exists.
	ExistsErr map[string]error
}

func NewMemStore() *MemStore {
	return &MemStore{
		objects:   map[string]map[string][]byte{},
		GetErr:    map[string]error{},
		ExistsErr: map[string]error{},
	}
}

func (m *MemStore) Put(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[bucket] == nil {
		m.objects[bucket] = map[string][]byte{}
	}
	m.objects[bucket][key] = data
}

// Calls returns the recorded operations as "get|exists|list bucket/target".
func (m *MemStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Listed reports whether List was called for bucket with exactly prefix.
func (m *MemStore) Listed(bucket, prefix string) bool {
	want := fmt.Sprintf("list %s/%s", bucket, prefix)
	for _, c := range m.Calls() {
		if c == want {
			return true
		}
	}
	return false
}

func (m *MemStore) record(op, bucket, target string) {
	m.mu.Lock()
	m.calls = append(m.calls, fmt.Sprintf("%s %s/%s", op, bucket, target))
	m.mu.Unlock()
}

func (m *MemStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.record("get", bucket, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.GetErr[bucket+"/"+key]; err != nil {
		return nil, err
	}
	data, ok := m.objects[bucket][key]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, ErrNotFound)
	}
	return data, nil
}

func (m *MemStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	m.record("exists", bucket, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ExistsErr[bucket+"/"+key]; err != nil {
		return false, err
	}
	_, ok := m.objects[bucket][key]
	return ok, nil
}

func (m *MemStore) List(_ context.Context, bucket, prefix string, limit int) ([]string, error) {
	m.record("list", bucket, prefix)
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects[bucket] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}
