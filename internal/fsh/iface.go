package fsh

import (
	"context"

	"github.com/spf13/afero"
)

type FS interface {
	afero.Fs
	GetCurrentDir() string
	// Lock takes an exclusive lock keyed by filename. The returned func releases it.
	Lock(ctx context.Context, filename string) (func(), error)
}
