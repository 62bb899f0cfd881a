package sourcedl

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/cometkim/setup-rclone/internal/httpx"
)

const (
	sourceName = "downloads"
	DefaultURL = "https://downloads.rclone.org"
)

// entry is one item of the downloads server JSON directory listing.
type entry struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	URL       string `json:"url"`
	ModTime   string `json:"mod_time"`
	Mode      uint32 `json:"mode"`
	IsDir     bool   `json:"is_dir"`
	IsSymlink bool   `json:"is_symlink"`
}

// Source lists version directories of the rclone downloads server.
type Source struct {
	client  *http.Client
	baseURL string
}

func New(client *http.Client, baseURL string) *Source {
	if baseURL == "" {
		baseURL = DefaultURL
	}

	return &Source{
		client:  client,
		baseURL: baseURL,
	}
}

func (s *Source) Name() string {
	return sourceName
}

// Versions yields "v"-prefixed directory names with the trailing slash stripped.
func (s *Source) Versions(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		entries, err := s.list(ctx)
		if err != nil {
			yield("", err)
			return
		}

		for _, e := range entries {
			if !e.IsDir || !strings.HasPrefix(e.Name, "v") {
				continue
			}

			if !yield(strings.TrimSuffix(e.Name, "/"), nil) {
				return
			}
		}
	}
}

func (s *Source) list(ctx context.Context) ([]entry, error) {
	resp, err := httpx.Get(ctx, s.client, s.baseURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var entries []entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode downloads listing (%s): %w", s.baseURL, err)
	}

	return entries, nil
}
