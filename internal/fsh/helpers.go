package fsh

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

func IsExists(fSys FS, path string) bool {
	exists, err := afero.Exists(fSys, path)
	if err != nil {
		return false
	}

	return exists
}

func Abs(fSys FS, path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	return filepath.Join(fSys.GetCurrentDir(), path), nil
}

func ReadJson[T any](fs FS, path string) (*T, error) {
	bb, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read file (%s): %w", path, err)
	}

	var res T
	if err := json.Unmarshal(bb, &res); err != nil {
		return nil, fmt.Errorf("parse file (%s): %w", path, err)
	}

	return &res, nil
}

func WriteJson(fs FS, in any, path string) error {
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "\t")

	if err := enc.Encode(in); err != nil {
		_ = file.Close()
		return fmt.Errorf("marshal file: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	return nil
}

func DirSize(fSys FS, path string) (int64, error) {
	var size int64

	err := afero.Walk(fSys, path, func(path string, d fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			size += d.Size()
		}

		return nil
	})

	return size, err
}

// FirstDir returns first directory name in given directory.
func FirstDir(fSys FS, dir string) (string, error) {
	entries, err := afero.ReadDir(fSys, dir)
	if err != nil {
		return "", err
	}

	for _, e := range entries {
		if e.IsDir() {
			return e.Name(), nil
		}
	}

	return "", errors.New("no directory found")
}

var multiExts = []string{".tar.gz", ".tar.bz2", ".tar.xz"}

// Ext works like filepath.Ext but supports .tar.gz extensions.
func Ext(filename string) string {
	base := strings.ToLower(filepath.Base(filename))
	for _, ext := range multiExts {
		if strings.HasSuffix(base, ext) && len(base) > len(ext) {
			return ext
		}
	}

	if strings.Count(base, ".") == 1 && strings.HasPrefix(base, ".") {
		return ""
	}

	return filepath.Ext(base)
}

// SetExecutable mark file as executable.
func SetExecutable(fSys FS, path string) error {
	info, err := fSys.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()

	// 0o111 == execute for user/group/other

	return fSys.Chmod(path, mode|0o111)
}

// CopyTree copies the regular files and directories under src into dst, keeping file modes.
func CopyTree(fSys FS, src, dst string) error {
	return afero.Walk(fSys, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return fSys.MkdirAll(target, DefaultDirPerm)
		case info.Mode().IsRegular():
			return copyFile(fSys, path, target, info.Mode().Perm())
		}

		return nil
	})
}

func copyFile(fSys FS, src, dst string, perm os.FileMode) error {
	in, err := fSys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := fSys.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	// OpenFile perm is subject to umask on real filesystems.
	return fSys.Chmod(dst, perm)
}
