package httpx_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cometkim/setup-rclone/internal/httpx"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	const ua = "cometkim/rclone-actions/setup-rclone"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = io.WriteString(w, r.Header.Get("User-Agent")+"|"+r.Header.Get("Accept"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := httpx.NewClient(ua)
	ctx := context.Background()

	t.Run("sends_user_agent_and_accept", func(t *testing.T) {
		resp, err := httpx.Get(ctx, client, srv.URL+"/ok", "text/plain")
		require.NoError(t, err)
		defer resp.Body.Close()

		bb, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, ua+"|text/plain", string(bb))
	})

	t.Run("non_200_is_network_error", func(t *testing.T) {
		resp, err := httpx.Get(ctx, client, srv.URL+"/missing", "")
		require.ErrorIs(t, err, httpx.ErrNetwork)
		require.Nil(t, resp)
	})

	t.Run("unreachable_is_network_error", func(t *testing.T) {
		resp, err := httpx.Get(ctx, client, "http://127.0.0.1:1/none", "")
		require.ErrorIs(t, err, httpx.ErrNetwork)
		require.Nil(t, resp)
	})
}
