package fsh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

const DefaultDirPerm = 0o755

var _ FS = (*RealFs)(nil)

type RealFs struct {
	*afero.OsFs
}

func NewRealFS() FS {
	return &RealFs{
		OsFs: afero.NewOsFs().(*afero.OsFs),
	}
}

func (r *RealFs) GetCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}

	return dir
}

func (r *RealFs) Lock(ctx context.Context, filename string) (func(), error) {
	if err := r.MkdirAll(filepath.Dir(filename), DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	fileLock := flock.New(filename)

	locked, err := fileLock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("try lock: %w", err)
	}

	if !locked {
		return nil, errors.New("acquire lock on file")
	}

	return func() {
		_ = fileLock.Unlock()
	}, nil
}
