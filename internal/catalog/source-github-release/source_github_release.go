package sourcegh

import (
	"context"
	"fmt"
	"iter"
	"net/http"

	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

const (
	sourceName = "github-releases"
	owner      = "rclone"
	repo       = "rclone"
	perPage    = 100
)

// Source lists rclone releases through the GitHub REST API.
type Source struct {
	github *github.Client
}

func New(ghClient *github.Client) *Source {
	return &Source{github: ghClient}
}

// NewClient builds a token-authenticated GitHub client on top of httpClient.
// httpClient carries the user agent transport; an empty token keeps requests anonymous.
func NewClient(ctx context.Context, httpClient *http.Client, token, userAgent string) *github.Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, src)
	}

	ghClient := github.NewClient(httpClient)
	if userAgent != "" {
		ghClient.UserAgent = userAgent
	}

	return ghClient
}

func (s *Source) Name() string {
	return sourceName
}

// Versions yields release tag names page by page, in API order.
func (s *Source) Versions(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		opts := &github.ListOptions{PerPage: perPage, Page: 1}
		for {
			releases, resp, err := s.github.Repositories.ListReleases(ctx, owner, repo, opts)
			if err != nil {
				yield("", fmt.Errorf("list releases (%s/%s, page %d): %w", owner, repo, opts.Page, err))
				return
			}

			for _, release := range releases {
				if !yield(release.GetTagName(), nil) {
					return
				}
			}

			if resp == nil || resp.NextPage == 0 {
				return
			}

			opts.Page = resp.NextPage
		}
	}
}
