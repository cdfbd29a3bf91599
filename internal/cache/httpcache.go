package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is the metadata kept next to a cached document body. It carries the
// validators needed for conditional revalidation.
type Entry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// DocumentCache stores fetched documents on disk as <key>.meta.json and
// <key>.body, where key is sha256(url). There is no eviction beyond
// PurgeByAge and ClearDir. Safe for concurrent use on distinct URLs.
type DocumentCache struct {
	Dir string
	// StrictPerms restricts the directory to 0700 and files to 0600.
	StrictPerms bool
}

func (c *DocumentCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	if err := os.MkdirAll(c.Dir, c.dirMode()); err != nil {
		return err
	}
	if c.StrictPerms {
		return os.Chmod(c.Dir, 0o700)
	}
	return nil
}

func (c *DocumentCache) dirMode() os.FileMode {
	if c.StrictPerms {
		return 0o700
	}
	return 0o755
}

func (c *DocumentCache) fileMode() os.FileMode {
	if c.StrictPerms {
		return 0o600
	}
	return 0o644
}

func key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *DocumentCache) metaPath(k string) string { return filepath.Join(c.Dir, k+".meta.json") }
func (c *DocumentCache) bodyPath(k string) string { return filepath.Join(c.Dir, k+".body") }

// Lookup returns the cached entry and body for url. ok is false on any miss,
// including unreadable or malformed entries.
func (c *DocumentCache) Lookup(url string) (e Entry, body []byte, ok bool) {
	if c == nil || c.Dir == "" {
		return Entry{}, nil, false
	}
	k := key(url)
	b, err := os.ReadFile(c.metaPath(k))
	if err != nil {
		return Entry{}, nil, false
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, nil, false
	}
	body, err = os.ReadFile(c.bodyPath(k))
	if err != nil {
		return Entry{}, nil, false
	}
	return e, body, true
}

// Save writes body first and then swaps the metadata in atomically, so a
// reader never sees metadata pointing at a missing body.
func (c *DocumentCache) Save(e Entry, body []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	k := key(e.URL)
	if err := os.WriteFile(c.bodyPath(k), body, c.fileMode()); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	tmp := c.metaPath(k) + ".tmp"
	if err := os.WriteFile(tmp, data, c.fileMode()); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return os.Rename(tmp, c.metaPath(k))
}
