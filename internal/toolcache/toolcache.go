package toolcache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cometkim/setup-rclone/internal/fsh"
	"github.com/spf13/afero"
	"golang.org/x/mod/semver"
)

const (
	markerSuffix = ".complete"
	lockSuffix   = ".lock"
)

var ErrInvalidKey = errors.New("invalid cache key")

// Key addresses one cached tool build.
type Key struct {
	Tool    string
	Version string
	// Target is "<platform>-<arch>".
	Target string
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s (%s)", k.Tool, k.Version, k.Target)
}

func (k Key) validate() error {
	for _, part := range []string{k.Tool, k.Version, k.Target} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return fmt.Errorf("%w: %s", ErrInvalidKey, k)
		}
	}

	return nil
}

// marker is the content of the completion file.
type marker struct {
	Tool     string    `json:"tool"`
	Version  string    `json:"version"`
	Target   string    `json:"target"`
	StoredAt time.Time `json:"stored_at"`
}

type Entry struct {
	Key
	Path     string
	Size     int64
	StoredAt time.Time
}

// Cache is a tool cache laid out as <root>/<tool>/<version>/<target>.
// An entry is valid only when its <target>.complete marker exists.
type Cache struct {
	fs   fsh.FS
	root string
	now  func() time.Time
}

func New(fSys fsh.FS, root string) *Cache {
	return &Cache{
		fs:   fSys,
		root: root,
		now:  time.Now,
	}
}

func (c *Cache) Root() string {
	return c.root
}

func (c *Cache) dir(key Key) string {
	return filepath.Join(c.root, key.Tool, key.Version, key.Target)
}

// Find returns the directory of a completed entry.
func (c *Cache) Find(key Key) (string, bool) {
	if key.validate() != nil {
		return "", false
	}

	dir := c.dir(key)
	if !fsh.IsExists(c.fs, dir) || !fsh.IsExists(c.fs, dir+markerSuffix) {
		return "", false
	}

	return dir, true
}

// Store copies srcDir into the entry for key and marks it complete.
// A previous incomplete entry under the same key is replaced.
func (c *Cache) Store(ctx context.Context, srcDir string, key Key) (string, error) {
	if err := key.validate(); err != nil {
		return "", err
	}

	dir := c.dir(key)
	markerPath := dir + markerSuffix

	unlock, err := c.fs.Lock(ctx, dir+lockSuffix)
	if err != nil {
		return "", fmt.Errorf("lock cache entry (%s): %w", key, err)
	}
	defer unlock()

	for _, path := range []string{markerPath, dir} {
		if err := c.fs.RemoveAll(path); err != nil {
			return "", fmt.Errorf("remove stale cache entry (%s): %w", path, err)
		}
	}

	if err := c.fs.MkdirAll(dir, fsh.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create cache dir (%s): %w", dir, err)
	}

	if err := fsh.CopyTree(c.fs, srcDir, dir); err != nil {
		return "", fmt.Errorf("copy into cache (%s): %w", dir, err)
	}

	m := marker{
		Tool:     key.Tool,
		Version:  key.Version,
		Target:   key.Target,
		StoredAt: c.now().UTC(),
	}
	if err := fsh.WriteJson(c.fs, m, markerPath); err != nil {
		return "", fmt.Errorf("write cache marker (%s): %w", markerPath, err)
	}

	return dir, nil
}

// List returns completed entries ordered by tool, newest version first, then target.
func (c *Cache) List() ([]Entry, error) {
	tools, err := c.subdirs(c.root)
	if err != nil {
		return nil, err
	}

	res := make([]Entry, 0)
	for _, tool := range tools {
		versions, err := c.subdirs(filepath.Join(c.root, tool))
		if err != nil {
			return nil, err
		}

		for _, version := range versions {
			targets, err := c.subdirs(filepath.Join(c.root, tool, version))
			if err != nil {
				return nil, err
			}

			for _, target := range targets {
				key := Key{Tool: tool, Version: version, Target: target}
				dir, ok := c.Find(key)
				if !ok {
					continue
				}

				entry, err := c.entry(key, dir)
				if err != nil {
					return nil, err
				}

				res = append(res, entry)
			}
		}
	}

	slices.SortFunc(res, func(a, b Entry) int {
		return cmp.Or(
			cmp.Compare(a.Tool, b.Tool),
			semver.Compare("v"+b.Version, "v"+a.Version),
			cmp.Compare(a.Target, b.Target),
		)
	})

	return res, nil
}

func (c *Cache) entry(key Key, dir string) (Entry, error) {
	size, err := fsh.DirSize(c.fs, dir)
	if err != nil {
		return Entry{}, fmt.Errorf("get cache entry size (%s): %w", dir, err)
	}

	entry := Entry{
		Key:  key,
		Path: dir,
		Size: size,
	}

	// Markers written by other tools may be empty.
	if m, err := fsh.ReadJson[marker](c.fs, dir+markerSuffix); err == nil {
		entry.StoredAt = m.StoredAt
	}

	return entry, nil
}

func (c *Cache) subdirs(dir string) ([]string, error) {
	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read cache dir (%s): %w", dir, err)
	}

	res := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			res = append(res, e.Name())
		}
	}

	return res, nil
}
