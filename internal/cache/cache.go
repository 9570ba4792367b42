// Package cache stores raw lyric payloads in a bbolt file with an in-memory
// front.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "lyrics"

// ErrClosed is returned by Set after Close.
var ErrClosed = errors.New("cache closed")

// entry is the stored record. StoredAt drives expiry.
type entry struct {
	Value    string    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// Options configures a Cache.
type Options struct {
	// TTL expires entries older than this. Zero keeps entries forever.
	TTL    time.Duration
	Logger logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Cache is a persistent key/value store safe for concurrent use.
type Cache struct {
	db  *bolt.DB
	mem sync.Map // string -> entry

	ttl time.Duration
	now func() time.Time
	log logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the cache file at path and preloads it into memory.
func Open(path string, opts Options) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Cache{
		db:  db,
		ttl: opts.TTL,
		now: now,
		log: log.WithField("component", "cache"),
	}

	n, err := c.preload()
	if err != nil {
		c.log.WithError(err).Warn("preloading lyrics cache")
	}
	c.log.WithFields(logrus.Fields{"path": path, "entries": n}).Debug("lyrics cache opened")
	return c, nil
}

func (c *Cache) preload() (int, error) {
	count := 0
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var e entry
			if err := json.Unmarshal(v, &e); err != nil {
				c.log.WithField("key", string(k)).Debug("skipping unreadable cache entry")
				return nil
			}
			c.mem.Store(string(k), e)
			count++
			return nil
		})
	})
	return count, err
}

func (c *Cache) expired(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.StoredAt) > c.ttl
}

// Get returns the value for key. Expired entries are reported as missing.
func (c *Cache) Get(key string) (string, bool) {
	if v, ok := c.mem.Load(key); ok {
		e := v.(entry)
		if c.expired(e) {
			return "", false
		}
		return e.Value, true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return "", false
	}

	var e entry
	found := false
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil || !found || c.expired(e) {
		return "", false
	}
	c.mem.Store(key, e)
	return e.Value, true
}

// Set stores value under key in memory and on disk.
func (c *Cache) Set(key, value string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	e := entry{Value: value, StoredAt: c.now()}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	c.mem.Store(key, e)

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
}

// Delete removes key.
func (c *Cache) Delete(key string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	c.mem.Delete(key)
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Prune deletes expired entries and returns how many were removed.
func (c *Cache) Prune() (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, ErrClosed
	}

	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e entry
			if json.Unmarshal(v, &e) != nil || c.expired(e) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			c.mem.Delete(string(k))
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Len returns the number of entries in memory.
func (c *Cache) Len() int {
	n := 0
	c.mem.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close closes the database file.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}
