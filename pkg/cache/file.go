package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// FileCache хранит один JSON-файл на ключ в заданной директории.
// Используется для матрицы расстояний: запись переживает рестарт
// процесса, в отличие от MemoryCache, и не требует Redis.
type FileCache struct {
	mu         sync.RWMutex
	dir        string
	defaultTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	closed atomic.Bool
}

type fileEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e *fileEntry) isExpired() bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(e.ExpiresAt)
}

// NewFileCache создаёт кэш на файловой системе, каталог создаётся при
// необходимости.
func NewFileCache(opts *Options, dir string) (*FileCache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if dir == "" {
		dir = "./data/cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, defaultTTL: opts.DefaultTTL}, nil
}

// keyPath хеширует ключ в имя файла, чтобы произвольные символы ключа
// (двоеточия, слэши) не ломали путь на диске.
func (c *FileCache) keyPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

func (c *FileCache) readEntry(key string) (*fileEntry, error) {
	raw, err := os.ReadFile(c.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, err := c.readEntry(key)
	if err != nil {
		if err == ErrKeyNotFound {
			c.misses.Add(1)
		}
		return nil, err
	}
	if entry.isExpired() {
		c.misses.Add(1)
		return nil, ErrKeyNotFound
	}

	c.hits.Add(1)
	return entry.Value, nil
}

func (c *FileCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	raw, err := json.Marshal(fileEntry{Value: value, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp := c.keyPath(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.keyPath(key))
}

func (c *FileCache) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *FileCache) Exists(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, err := c.readEntry(key)
	if err != nil {
		return false, nil
	}
	return !entry.isExpired(), nil
}

func (c *FileCache) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	if c.closed.Load() {
		return nil, 0, ErrCacheClosed
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, err := c.readEntry(key)
	if err != nil {
		if err == ErrKeyNotFound {
			c.misses.Add(1)
		}
		return nil, 0, err
	}
	if entry.isExpired() {
		c.misses.Add(1)
		return nil, 0, ErrKeyNotFound
	}

	c.hits.Add(1)
	if entry.ExpiresAt.IsZero() {
		return entry.Value, -1, nil
	}
	return entry.Value, time.Until(entry.ExpiresAt), nil
}

func (c *FileCache) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, err := c.Get(ctx, k); err == nil {
			result[k] = v
		}
	}
	return result, nil
}

func (c *FileCache) MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	for k, v := range entries {
		if err := c.Set(ctx, k, v, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (c *FileCache) MDelete(ctx context.Context, keys []string) (int64, error) {
	var count int64
	for _, k := range keys {
		if ok, _ := c.Exists(ctx, k); ok {
			count++
		}
		_ = c.Delete(ctx, k)
	}
	return count, nil
}

// Keys и DeleteByPattern не поддерживают паттерны на файловом бэкенде,
// поскольку ключи на диске хранятся уже хешированными — возвращается
// пустой результат без ошибки, как делает MemoryCache для не найденного.
func (c *FileCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	return nil, nil
}

func (c *FileCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	return 0, nil
}

func (c *FileCache) Stats(ctx context.Context) (*Stats, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Backend: BackendFile,
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			stats.TotalKeys++
		}
	}
	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats, nil
}

func (c *FileCache) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			_ = os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return nil
}

func (c *FileCache) Close() error {
	c.closed.Store(true)
	return nil
}
