package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cometkim/setup-rclone/internal/archive"
	"github.com/cometkim/setup-rclone/internal/fsh"
	"github.com/cometkim/setup-rclone/internal/httpx"
	"github.com/cometkim/setup-rclone/internal/humanize"
	"github.com/cometkim/setup-rclone/internal/platform"
	"github.com/cometkim/setup-rclone/internal/toolcache"
	"github.com/spf13/afero"
)

const (
	Tool = "rclone"

	ReleasesBaseURL  = "https://github.com/rclone/rclone/releases/download"
	DownloadsBaseURL = "https://downloads.rclone.org"
)

var (
	ErrExtract        = errors.New("extract archive")
	ErrBinaryNotFound = errors.New("rclone binary not found in archive")
)

type Logger interface {
	Infof(msg string, args ...any)
	Debugf(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Debugf(string, ...any) {}

// BaseURL picks the release asset host. Public GitHub serves assets from
// release downloads; any other server falls back to the rclone downloads site.
func BaseURL(onPublicGitHub bool) string {
	if onPublicGitHub {
		return ReleasesBaseURL
	}

	return DownloadsBaseURL
}

// ArchiveName is the release asset name, e.g. rclone-v1.66.0-linux-amd64.zip.
func ArchiveName(version, platformKey, archKey string) string {
	return fmt.Sprintf("rclone-v%s-%s-%s.zip", version, platformKey, archKey)
}

// DownloadURL is <baseURL>/v<version>/<archive name>.
func DownloadURL(baseURL, version, platformKey, archKey string) string {
	return fmt.Sprintf("%s/v%s/%s", baseURL, version, ArchiveName(version, platformKey, archKey))
}

type Installer struct {
	fs      fsh.FS
	client  *http.Client
	cache   *toolcache.Cache
	baseURL string
	tempDir string
	log     Logger
}

func New(fSys fsh.FS, client *http.Client, cache *toolcache.Cache, baseURL, tempDir string, log Logger) *Installer {
	if log == nil {
		log = nopLogger{}
	}

	return &Installer{
		fs:      fSys,
		client:  client,
		cache:   cache,
		baseURL: baseURL,
		tempDir: tempDir,
		log:     log,
	}
}

// Install makes the given rclone build available in the tool cache and returns its directory.
// A cached build is returned without touching the network.
func (i *Installer) Install(ctx context.Context, version, platformKey, archKey string) (string, error) {
	key := toolcache.Key{
		Tool:    Tool,
		Version: version,
		Target:  platform.Target{Platform: platformKey, Arch: archKey}.String(),
	}

	if dir, ok := i.cache.Find(key); ok {
		i.log.Infof("Found in cache @ %s", dir)
		return dir, nil
	}

	if err := i.fs.MkdirAll(i.tempBase(), fsh.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create tmp dir base (%s): %w", i.tempBase(), err)
	}

	workDir, err := afero.TempDir(i.fs, i.tempBase(), "setup-rclone-")
	if err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}
	defer func() {
		if err := i.fs.RemoveAll(workDir); err != nil {
			i.log.Debugf("Failed to remove %s: %v", workDir, err)
		}
	}()

	url := DownloadURL(i.baseURL, version, platformKey, archKey)
	i.log.Infof("Downloading rclone from %s", url)

	archivePath := filepath.Join(workDir, ArchiveName(version, platformKey, archKey))
	size, err := i.download(ctx, url, archivePath)
	if err != nil {
		return "", err
	}

	i.log.Debugf("Downloaded %s to %s", humanize.Bytes(size), archivePath)

	extractDir := filepath.Join(workDir, "extract")
	if err := archive.Extract(i.fs, archivePath, extractDir); err != nil {
		return "", fmt.Errorf("%w (%s): %w", ErrExtract, archivePath, err)
	}

	binName := platform.BinaryName(Tool, platformKey)
	toolDir, err := i.toolDir(extractDir, binName)
	if err != nil {
		return "", err
	}

	i.log.Debugf("Extracted tool path: %s", toolDir)

	if err := fsh.SetExecutable(i.fs, filepath.Join(toolDir, binName)); err != nil {
		return "", fmt.Errorf("set executable (%s): %w", binName, err)
	}

	dir, err := i.cache.Store(ctx, toolDir, key)
	if err != nil {
		return "", fmt.Errorf("store in cache: %w", err)
	}

	i.log.Infof("Stored in cache @ %s", dir)

	return dir, nil
}

func (i *Installer) tempBase() string {
	if i.tempDir != "" {
		return i.tempDir
	}

	return os.TempDir()
}

func (i *Installer) download(ctx context.Context, url, dst string) (int64, error) {
	resp, err := httpx.Get(ctx, i.client, url, "")
	if err != nil {
		return 0, fmt.Errorf("download rclone: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	f, err := i.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create archive file (%s): %w", dst, err)
	}

	size, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("%w: download rclone (%s): %w", httpx.ErrNetwork, url, err)
	}

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close archive file (%s): %w", dst, err)
	}

	return size, nil
}

// toolDir locates the directory holding the binary. Release archives wrap
// everything into a single rclone-v<version>-<platform>-<arch> directory.
func (i *Installer) toolDir(extractDir, binName string) (string, error) {
	if fsh.IsExists(i.fs, filepath.Join(extractDir, binName)) {
		return extractDir, nil
	}

	dirName, err := fsh.FirstDir(i.fs, extractDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBinaryNotFound, err)
	}

	dir := filepath.Join(extractDir, dirName)
	if !fsh.IsExists(i.fs, filepath.Join(dir, binName)) {
		return "", fmt.Errorf("%w (%s)", ErrBinaryNotFound, binName)
	}

	return dir, nil
}
