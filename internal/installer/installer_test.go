package installer_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cometkim/setup-rclone/internal/fsh"
	"github.com/cometkim/setup-rclone/internal/httpx"
	"github.com/cometkim/setup-rclone/internal/installer"
	"github.com/cometkim/setup-rclone/internal/toolcache"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	cacheRoot = "/runner/tool-cache"
	tempDir   = "/runner/temp"
	userAgent = "cometkim/rclone-actions/setup-rclone"
)

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(0o644)

		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)

		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

type assetServer struct {
	*httptest.Server
	hits atomic.Int32
	ua   atomic.Value
}

func newAssetServer(t *testing.T, assets map[string][]byte) *assetServer {
	t.Helper()

	srv := &assetServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.hits.Add(1)
		srv.ua.Store(r.Header.Get("User-Agent"))

		body, ok := assets[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newInstaller(fs fsh.FS, baseURL string) *installer.Installer {
	return installer.New(fs, httpx.NewClient(userAgent), toolcache.New(fs, cacheRoot), baseURL, tempDir, nil)
}

func TestDownloadURL(t *testing.T) {
	require.Equal(t,
		"https://github.com/rclone/rclone/releases/download/v1.66.0/rclone-v1.66.0-linux-amd64.zip",
		installer.DownloadURL(installer.BaseURL(true), "1.66.0", "linux", "amd64"),
	)
	require.Equal(t,
		"https://downloads.rclone.org/v1.66.0/rclone-v1.66.0-osx-arm64.zip",
		installer.DownloadURL(installer.BaseURL(false), "1.66.0", "osx", "arm64"),
	)
	require.Equal(t,
		"https://downloads.rclone.org/v1.65.0/rclone-v1.65.0-windows-386.zip",
		installer.DownloadURL(installer.DownloadsBaseURL, "1.65.0", "windows", "386"),
	)
}

func TestInstall(t *testing.T) {
	ctx := context.Background()

	srv := newAssetServer(t, map[string][]byte{
		"/v1.65.0/rclone-v1.65.0-linux-amd64.zip": makeZip(t, map[string]string{
			"rclone-v1.65.0-linux-amd64/rclone":     "#!/bin/sh\necho rclone v1.65.0\n",
			"rclone-v1.65.0-linux-amd64/rclone.1":   "manpage",
			"rclone-v1.65.0-linux-amd64/README.txt": "readme",
		}),
	})

	fs := fsh.NewMemFS(nil)
	inst := newInstaller(fs, srv.URL)

	dir, err := inst.Install(ctx, "1.65.0", "linux", "amd64")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cacheRoot, "rclone", "1.65.0", "linux-amd64"), dir)
	require.EqualValues(t, 1, srv.hits.Load())
	require.Equal(t, userAgent, srv.ua.Load())

	binPath := filepath.Join(dir, "rclone")
	content, err := afero.ReadFile(fs, binPath)
	require.NoError(t, err)
	require.Equal(t, "#!/bin/sh\necho rclone v1.65.0\n", string(content))

	info, err := fs.Stat(binPath)
	require.NoError(t, err)
	require.NotZero(t, info.Mode().Perm()&0o111, "binary must be executable")
	require.True(t, fsh.IsExists(fs, filepath.Join(dir, "README.txt")))

	leftovers, err := afero.ReadDir(fs, tempDir)
	require.NoError(t, err)
	require.Empty(t, leftovers)

	t.Run("cache_hit", func(t *testing.T) {
		again, err := inst.Install(ctx, "1.65.0", "linux", "amd64")
		require.NoError(t, err)
		require.Equal(t, dir, again)
		require.EqualValues(t, 1, srv.hits.Load(), "cached build must not be downloaded again")
	})

	t.Run("other_target_misses", func(t *testing.T) {
		_, err := inst.Install(ctx, "1.65.0", "linux", "arm64")
		require.ErrorIs(t, err, httpx.ErrNetwork)
		require.EqualValues(t, 2, srv.hits.Load())
	})
}

func TestInstallFlatArchive(t *testing.T) {
	srv := newAssetServer(t, map[string][]byte{
		"/v1.66.0/rclone-v1.66.0-windows-amd64.zip": makeZip(t, map[string]string{
			"rclone.exe": "MZ",
		}),
	})

	fs := fsh.NewMemFS(nil)
	dir, err := newInstaller(fs, srv.URL).Install(context.Background(), "1.66.0", "windows", "amd64")
	require.NoError(t, err)
	require.True(t, fsh.IsExists(fs, filepath.Join(dir, "rclone.exe")))
}

func TestInstallErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		assets map[string][]byte
		expErr error
	}{
		{
			name:   "not_found",
			assets: map[string][]byte{},
			expErr: httpx.ErrNetwork,
		},
		{
			name: "corrupted_archive",
			assets: map[string][]byte{
				"/v1.66.0/rclone-v1.66.0-linux-amd64.zip": []byte("not a zip"),
			},
			expErr: installer.ErrExtract,
		},
		{
			name: "binary_missing",
			assets: map[string][]byte{
				"/v1.66.0/rclone-v1.66.0-linux-amd64.zip": makeZip(t, map[string]string{
					"rclone-v1.66.0-linux-amd64/README.txt": "readme",
				}),
			},
			expErr: installer.ErrBinaryNotFound,
		},
		{
			name: "no_directory",
			assets: map[string][]byte{
				"/v1.66.0/rclone-v1.66.0-linux-amd64.zip": makeZip(t, map[string]string{
					"README.txt": "readme",
				}),
			},
			expErr: installer.ErrBinaryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAssetServer(t, tt.assets)
			fs := fsh.NewMemFS(nil)

			_, err := newInstaller(fs, srv.URL).Install(ctx, "1.66.0", "linux", "amd64")
			require.ErrorIs(t, err, tt.expErr)

			_, ok := toolcache.New(fs, cacheRoot).Find(toolcache.Key{Tool: "rclone", Version: "1.66.0", Target: "linux-amd64"})
			require.False(t, ok, "failed install must not leave a cache entry")

			leftovers, err := afero.ReadDir(fs, tempDir)
			require.NoError(t, err)
			require.Empty(t, leftovers)
		})
	}
}

func TestInstallRealFS(t *testing.T) {
	srv := newAssetServer(t, map[string][]byte{
		"/v1.65.0/rclone-v1.65.0-linux-amd64.zip": makeZip(t, map[string]string{
			"rclone-v1.65.0-linux-amd64/rclone": "#!/bin/sh\necho rclone\n",
		}),
	})

	base := t.TempDir()
	fs := fsh.NewRealFS()
	inst := installer.New(fs, httpx.NewClient(userAgent), toolcache.New(fs, filepath.Join(base, "cache")), srv.URL, filepath.Join(base, "temp"), nil)

	dir, err := inst.Install(context.Background(), "1.65.0", "linux", "amd64")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "rclone"))
	require.NoError(t, err)
	require.NotZero(t, info.Mode().Perm()&0o111)
	require.FileExists(t, dir+".complete")
}
