// Package cache implements the two-tier store for heavy transformer
// results: an in-process LRU for the common case of one run touching the
// same content/options pair more than once, backed by a disk-resident store
// keyed the same way so results survive across runs.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"

	"github.com/copytree/copytree/internal/pipeline"
)

// DefaultTTL is the default cache entry lifetime.
const DefaultTTL = 24 * time.Hour

// DefaultMemoryEntries bounds the in-process LRU size when the caller does
// not specify one.
const DefaultMemoryEntries = 512

// Entry is a cached transform result plus its expiry.
type Entry struct {
	FileDescriptor *pipeline.FileDescriptor
	ExpiresAt      int64 // unix seconds
}

func (e Entry) expired(now time.Time) bool {
	return e.ExpiresAt > 0 && now.Unix() > e.ExpiresAt
}

// Cache is the transform stage's content-addressed result store.
type Cache struct {
	dir     string
	ttl     time.Duration
	mem     *lru.Cache[string, Entry]
	disable bool
}

// New returns a Cache rooted at dir (created lazily on first Set) with the
// given memory entry bound and TTL. Zero values fall back to the defaults.
// disable short-circuits every Get/Set to a miss/no-op, implementing
// --no-cache without scattering the flag check across callers.
func New(dir string, memoryEntries int, ttl time.Duration, disable bool) (*Cache, error) {
	if memoryEntries <= 0 {
		memoryEntries = DefaultMemoryEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	mem, err := lru.New[string, Entry](memoryEntries)
	if err != nil {
		return nil, fmt.Errorf("creating in-memory cache: %w", err)
	}

	return &Cache{dir: dir, ttl: ttl, mem: mem, disable: disable}, nil
}

// DefaultDir returns os.UserCacheDir()/copytree/transform, falling back to
// os.TempDir() if the user cache directory cannot be resolved.
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "copytree", "transform")
}

// Key computes the content-addressed cache key for a (content, transformer,
// options) tuple: xxh3(content || transformerName || sortedOptionsJSON).
func Key(content, transformerName string, opts map[string]any) string {
	var b strings.Builder
	b.WriteString(content)
	b.WriteString("\x00")
	b.WriteString(transformerName)
	b.WriteString("\x00")
	b.WriteString(optionsCanonicalJSON(opts))

	sum := xxh3.HashString128(b.String())
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo)
}

func optionsCanonicalJSON(opts map[string]any) string {
	if len(opts) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		encoded, err := json.Marshal(opts[k])
		if err != nil {
			encoded = []byte(`"<unmarshalable>"`)
		}
		fmt.Fprintf(&b, "%q:%s", k, encoded)
	}
	b.WriteByte('}')
	return b.String()
}

// Get returns the cached FileDescriptor for key, if present and unexpired.
func (c *Cache) Get(key string) (*pipeline.FileDescriptor, bool) {
	if c.disable {
		return nil, false
	}

	now := time.Now()

	if entry, ok := c.mem.Get(key); ok {
		if entry.expired(now) {
			c.mem.Remove(key)
			return nil, false
		}
		return entry.FileDescriptor, true
	}

	entry, ok := c.readDisk(key)
	if !ok {
		return nil, false
	}
	if entry.expired(now) {
		_ = os.Remove(c.diskPath(key))
		return nil, false
	}

	c.mem.Add(key, entry)
	return entry.FileDescriptor, true
}

// Set stores fd under key with the cache's configured TTL.
func (c *Cache) Set(key string, fd *pipeline.FileDescriptor) {
	if c.disable {
		return
	}

	entry := Entry{FileDescriptor: fd, ExpiresAt: time.Now().Add(c.ttl).Unix()}
	c.mem.Add(key, entry)

	if err := c.writeDisk(key, entry); err != nil {
		// Cache errors are never fatal (spec.md §7, Cache error kind):
		// a write failure just means the next run recomputes this entry.
		return
	}
}

func (c *Cache) diskPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *Cache) readDisk(key string) (Entry, bool) {
	data, err := os.ReadFile(c.diskPath(key))
	if err != nil {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false
	}
	return entry, true
}

func (c *Cache) writeDisk(key string, entry Entry) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir %s: %w", c.dir, err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return os.WriteFile(c.diskPath(key), data, 0o644)
}
