package fsh

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
)

var _ FS = (*MemFS)(nil)

// MemFS is an in-memory FS for tests. Locks are process-local mutexes.
type MemFS struct {
	afero.Fs

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemFS(files map[string]string) *MemFS {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		_ = afero.WriteFile(fs, path, []byte(content), 0o644)
	}

	return &MemFS{
		Fs:    fs,
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *MemFS) GetCurrentDir() string {
	return "/"
}

func (m *MemFS) Lock(ctx context.Context, filename string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[filename]
	if !ok {
		l = new(sync.Mutex)
		m.locks[filename] = l
	}
	m.mu.Unlock()

	for !l.TryLock() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("try lock: %w", ctx.Err())
		case <-time.After(time.Millisecond):
		}
	}

	return l.Unlock, nil
}

func (m *MemFS) GetTree(dir string) ([]string, error) {
	res := make([]string, 0)
	err := afero.Walk(m, dir, func(path string, info os.FileInfo, err error) error {
		res = append(res, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk dir: %w", err)
	}

	return res, nil
}
