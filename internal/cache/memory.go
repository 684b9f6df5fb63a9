package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is an in-process LRU cache with a fixed TTL.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory keeps at most size entries, each for ttl. The per-call ttl
// passed to Set is ignored.
func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.lru.Add(key, value)
	return nil
}

func (m *Memory) Len() int { return m.lru.Len() }
