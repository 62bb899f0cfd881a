package setup_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cometkim/setup-rclone/internal/config"
	"github.com/cometkim/setup-rclone/internal/fsh"
	"github.com/cometkim/setup-rclone/internal/httpx"
	"github.com/cometkim/setup-rclone/internal/installer"
	"github.com/cometkim/setup-rclone/internal/platform"
	"github.com/cometkim/setup-rclone/internal/resolver"
	"github.com/cometkim/setup-rclone/internal/setup"
	"github.com/cometkim/setup-rclone/internal/toolcache"
	"github.com/stretchr/testify/require"
)

type tagSource []string

func (s tagSource) Name() string { return "tags" }

func (s tagSource) Versions(_ context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, tag := range s {
			if !yield(tag, nil) {
				return
			}
		}
	}
}

func releaseZip(t *testing.T, dir, binName string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(dir + "/" + binName)
	require.NoError(t, err)
	_, err = io.WriteString(w, "rclone")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func TestRunExactVersionOnHost(t *testing.T) {
	ctx := context.Background()

	target, err := platform.Normalize("", "")
	if err != nil {
		t.Skipf("host is not a release target: %v", err)
	}

	binName := platform.BinaryName(installer.Tool, target.Platform)
	assetPath := "/v1.65.0/" + installer.ArchiveName("1.65.0", target.Platform, target.Arch)
	body := releaseZip(t, "rclone-v1.65.0-"+target.String(), binName)

	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != assetPath {
			http.NotFound(w, r)
			return
		}

		downloads.Add(1)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	fs := fsh.NewMemFS(nil)
	client := httpx.NewClient(config.UserAgent)
	cache := toolcache.New(fs, "/runner/tool-cache")
	res := resolver.New(client, "", tagSource{"v1.66.0", "v1.65.0", "v1.64.2"}, nil)
	inst := installer.New(fs, client, cache, srv.URL, "/runner/temp", nil)
	action := newFakeAction()
	driver := setup.New(res, inst, action, action, action)

	out, err := driver.Run(ctx, config.Config{Version: "1.65.0"})
	require.NoError(t, err)

	expDir := filepath.Join("/runner/tool-cache", "rclone", "1.65.0", target.String())
	require.Equal(t, "1.65.0", out.Version)
	require.Equal(t, target, out.Target)
	require.Equal(t, expDir, out.Dir)
	require.True(t, fsh.IsExists(fs, filepath.Join(expDir, binName)))
	require.Equal(t, []string{expDir}, action.paths)
	require.Equal(t, "1.65.0", action.outputs["rclone-version"])

	dir, ok := cache.Find(toolcache.Key{Tool: "rclone", Version: "1.65.0", Target: target.String()})
	require.True(t, ok)
	require.Equal(t, expDir, dir)

	_, err = driver.Run(ctx, config.Config{Version: "1.65.0"})
	require.NoError(t, err)
	require.EqualValues(t, 1, downloads.Load(), "second run must be served from the cache")
	require.Equal(t, []string{expDir, expDir}, action.paths)
}
