package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cometkim/setup-rclone/internal/fsh"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
)

var (
	ErrUnsupported = errors.New("unsupported archive type")
	ErrUnsafePath  = errors.New("archive entry escapes destination")
)

// Extract unpacks archivePath into destDir. The format is chosen by extension.
func Extract(fs fsh.FS, archivePath, destDir string) error {
	f, err := fs.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	ext := fsh.Ext(archivePath)

	switch ext {
	case ".zip":
		return extractZip(fs, f, destDir)
	case ".tar.gz", ".tgz":
		return extractTar(fs, f, destDir, func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) })
	case ".tar.bz2":
		return extractTar(fs, f, destDir, func(r io.Reader) (io.Reader, error) { return bzip2.NewReader(r), nil })
	case ".tar.xz":
		return extractTar(fs, f, destDir, func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) })
	}

	return fmt.Errorf("%w (%s)", ErrUnsupported, ext)
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if target != filepath.Clean(dest) && !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return target, nil
}

func extractZip(fs fsh.FS, f afero.File, dest string) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}

	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		return err
	}

	for _, zf := range r.File {
		if err := extractZipFile(fs, zf, dest); err != nil {
			return fmt.Errorf("extract (%s): %w", zf.Name, err)
		}
	}

	return nil
}

func extractZipFile(fs fsh.FS, zf *zip.File, dest string) error {
	target, err := safeJoin(dest, zf.Name)
	if err != nil {
		return err
	}

	if zf.FileInfo().IsDir() {
		return fs.MkdirAll(target, fsh.DefaultDirPerm)
	}

	if err := fs.MkdirAll(filepath.Dir(target), fsh.DefaultDirPerm); err != nil {
		return err
	}

	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck

	return writeFile(fs, target, rc, zf.Mode().Perm())
}

func extractTar(fs fsh.FS, f afero.File, dest string, wrap func(io.Reader) (io.Reader, error)) error {
	reader, err := wrap(f)
	if err != nil {
		return err
	}

	tr := tar.NewReader(reader)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if err := extractTarFile(fs, tr, dest, hdr); err != nil {
			return fmt.Errorf("extract (%s): %w", hdr.Name, err)
		}
	}

	return nil
}

func extractTarFile(fs fsh.FS, tr *tar.Reader, dest string, hdr *tar.Header) error {
	target, err := safeJoin(dest, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return fs.MkdirAll(target, fsh.DefaultDirPerm)
	case tar.TypeReg:
		if err := fs.MkdirAll(filepath.Dir(target), fsh.DefaultDirPerm); err != nil {
			return err
		}

		return writeFile(fs, target, tr, os.FileMode(hdr.Mode).Perm())
	}

	return nil
}

func writeFile(fs fsh.FS, target string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}

	out, err := fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
