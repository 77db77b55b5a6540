package remote

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const cacheTTL = 24 * time.Hour

// ObjectCache stores fetched server objects on disk so the client can run
// offline. Files are named md5hex(key) under the cache directory.
type ObjectCache struct {
	dir string
}

func NewObjectCache(dir string) *ObjectCache {
	return &ObjectCache{dir: dir}
}

// CachedObject is one stored response body with its content type.
type CachedObject struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	Expiry      int64  `json:"expiry"`
}

// Expired reports whether the entry has passed its 24-hour expiry. Expired
// entries are still readable; offline mode serves them anyway.
func (o *CachedObject) Expired() bool {
	return o.Expiry < time.Now().Unix()
}

func (c *ObjectCache) path(key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:]))
}

// Set writes an entry atomically (temp file + rename).
func (c *ObjectCache) Set(key, contentType string, body []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	obj := CachedObject{
		ContentType: contentType,
		Body:        body,
		Expiry:      time.Now().Add(cacheTTL).Unix(),
	}
	data, err := json.Marshal(&obj)
	if err != nil {
		return err
	}

	tmp := filepath.Join(c.dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(key))
}

// Get reads an entry, returning ErrCacheMiss for unknown or unreadable keys.
func (c *ObjectCache) Get(key string) (*CachedObject, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, ErrCacheMiss
	}
	var obj CachedObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, ErrCacheMiss
	}
	return &obj, nil
}

// Delete removes an entry. Missing entries are not an error.
func (c *ObjectCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// SetJSON caches a JSON-marshalable object under key.
func (c *ObjectCache) SetJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, "application/json", data)
}

// GetJSON reads a cached JSON object into out.
func (c *ObjectCache) GetJSON(key string, out interface{}) error {
	obj, err := c.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(obj.Body, out)
}
