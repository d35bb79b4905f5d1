package local

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a key or member does not exist.
var ErrNotFound = errors.New("local cache: not found")

type entry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

// Cache is an in-process Cache backend used when Redis is not configured.
type Cache struct {
	mu   sync.RWMutex
	kv   map[string]entry
	zset map[string]map[string]float64

	stopGC chan struct{}
}

// NewCache creates a local cache. gcEvery controls how often expired KV
// entries are swept; <= 0 uses 30s.
func NewCache(gcEvery time.Duration) *Cache {
	if gcEvery <= 0 {
		gcEvery = 30 * time.Second
	}
	c := &Cache{
		kv:     make(map[string]entry),
		zset:   make(map[string]map[string]float64),
		stopGC: make(chan struct{}),
	}
	go c.gcLoop(gcEvery)
	return c
}

// Stop halts the background expiry sweep.
func (c *Cache) Stop() {
	select {
	case <-c.stopGC:
	default:
		close(c.stopGC)
	}
}

func (c *Cache) gcLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.kv {
				if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
					delete(c.kv, k)
				}
			}
			c.mu.Unlock()
		case <-c.stopGC:
			return
		}
	}
}

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	e, ok := c.kv[key]
	c.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.kv[key] = e
	c.mu.Unlock()
	return nil
}

func (c *Cache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.kv, k)
	}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *Cache) ZAdd(_ context.Context, key string, score float64, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	z, ok := c.zset[key]
	if !ok {
		z = make(map[string]float64)
		c.zset[key] = z
	}
	z[member] = score
	return nil
}

func (c *Cache) ZIncrBy(_ context.Context, key string, delta float64, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	z, ok := c.zset[key]
	if !ok {
		z = make(map[string]float64)
		c.zset[key] = z
	}
	z[member] += delta
	return nil
}

func (c *Cache) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.RLock()
	z := c.zset[key]
	type pair struct {
		member string
		score  float64
	}
	pairs := make([]pair, 0, len(z))
	for m, s := range z {
		pairs = append(pairs, pair{m, s})
	}
	c.mu.RUnlock()

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return pairs[i].member < pairs[j].member
	})

	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= int64(len(pairs)) {
		stop = int64(len(pairs)) - 1
	}
	if start > stop {
		return nil, nil
	}
	out := make([]string, 0, stop-start+1)
	for _, p := range pairs[start : stop+1] {
		out = append(out, p.member)
	}
	return out, nil
}

func (c *Cache) ZScore(_ context.Context, key, member string) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	z, ok := c.zset[key]
	if !ok {
		return 0, ErrNotFound
	}
	s, ok := z[member]
	if !ok {
		return 0, ErrNotFound
	}
	return s, nil
}
