package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Digest identifies a snapshot's content.
type Digest [sha256.Size]byte

// Increment when diskPayload changes shape.
const diskCacheSchemaVersion uint16 = 1

// DiskCache keeps per-snapshot resolution outcomes on disk, keyed by
// content digest. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// diskPayload is the cached outcome of resolving one snapshot: the
// diagnostics it produced and whether any of them were errors.
type diskPayload struct {
	Schema uint16
	Path   string
	Broken bool
	Diags  []diskDiag
}

type diskDiag struct {
	Severity uint8
	Code     uint16
	File     uint32
	Start    uint32
	End      uint32
	Message  string
	Notes    []diskNote
}

type diskNote struct {
	File    uint32
	Start   uint32
	End     uint32
	Message string
}

// OpenDiskCache initializes a cache at dir, or at the standard XDG
// location for app when dir is empty.
func OpenDiskCache(app, dir string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	// "snaps" subdir keeps the cache root listable
	return filepath.Join(c.dir, "snaps", hex.EncodeToString(key[:])+".mp")
}

// Put serializes a payload under its digest, atomically.
func (c *DiskCache) Put(key Digest, payload *diskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a payload back. A miss, a schema mismatch or a missing
// file all report (false, nil).
func (c *DiskCache) Get(key Digest, out *diskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the whole cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}
