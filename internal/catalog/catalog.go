package catalog

import (
	"context"
	"iter"
)

// Source enumerates published rclone version tags ("v1.66.0").
type Source interface {
	// Name identifies the source in logs and listings.
	Name() string
	// Versions yields raw tags lazily. The sequence is finite and can be consumed once.
	// A non-nil error is the last element.
	Versions(ctx context.Context) iter.Seq2[string, error]
}

// Collect drains the sequence into a slice. The first error aborts.
func Collect(ctx context.Context, src Source) ([]string, error) {
	var res []string
	for tag, err := range src.Versions(ctx) {
		if err != nil {
			return nil, err
		}

		res = append(res, tag)
	}

	return res, nil
}

// UseReleasesAPI reports whether the GitHub releases API may be used: only on
// public github.com with a token, because other hosts may block it and anonymous
// calls are rate limited.
func UseReleasesAPI(onPublicGitHub bool, token string) bool {
	return onPublicGitHub && token != ""
}

// Select picks the fast path or the fallback path.
func Select(onPublicGitHub bool, token string, fast, fallback func() Source) Source {
	if UseReleasesAPI(onPublicGitHub, token) {
		return fast()
	}

	return fallback()
}
