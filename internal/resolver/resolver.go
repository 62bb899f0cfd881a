package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/cometkim/setup-rclone/internal/catalog"
	"github.com/cometkim/setup-rclone/internal/httpx"
	"github.com/cometkim/setup-rclone/internal/semrange"
	"github.com/kazhuravlev/optional"
	modsemver "golang.org/x/mod/semver"
)

const DefaultCurrentURL = "https://downloads.rclone.org/version.txt"

var ErrVersionNotAvailable = errors.New("version is not available")

// maxVersionFileSize bounds the version.txt read.
const maxVersionFileSize = 4 << 10

type Logger interface {
	Debugf(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

type Resolver struct {
	client     *http.Client
	currentURL string
	source     catalog.Source
	log        Logger
}

func New(client *http.Client, currentURL string, source catalog.Source, log Logger) *Resolver {
	if currentURL == "" {
		currentURL = DefaultCurrentURL
	}

	if log == nil {
		log = nopLogger{}
	}

	return &Resolver{
		client:     client,
		currentURL: currentURL,
		source:     source,
		log:        log,
	}
}

// IsCurrent reports whether specifier names the most recent stable release.
func IsCurrent(specifier string) bool {
	switch strings.TrimSpace(specifier) {
	case "latest", "current":
		return true
	}

	return false
}

// Resolve turns a specifier into a concrete version like "1.66.0".
// An empty result without error means no published version satisfies the range.
func (r *Resolver) Resolve(ctx context.Context, specifier string) (optional.Val[string], error) {
	if IsCurrent(specifier) {
		version, err := r.Current(ctx)
		if err != nil {
			return optional.Empty[string](), err
		}

		return optional.New(version), nil
	}

	rng, err := semrange.Parse(specifier)
	if err != nil {
		return optional.Empty[string](), fmt.Errorf("parse specifier (%s): %w", specifier, err)
	}

	candidates, err := r.Candidates(ctx)
	if err != nil {
		return optional.Empty[string](), err
	}

	r.log.Debugf("Matching %d candidates against %s", len(candidates), rng.String())

	best, ok := semrange.MaxSatisfying(rng, candidates)
	if !ok {
		return optional.Empty[string](), nil
	}

	return optional.New(best.String()), nil
}

// Current returns the version published in version.txt of the downloads server.
func (r *Resolver) Current(ctx context.Context) (string, error) {
	resp, err := httpx.Get(ctx, r.client, r.currentURL, "text/plain")
	if err != nil {
		return "", fmt.Errorf("get current version: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVersionFileSize))
	if err != nil {
		return "", fmt.Errorf("%w: read current version: %w", httpx.ErrNetwork, err)
	}

	return parseVersionFile(string(body))
}

// Candidates drains the catalog source. Tags that are not semantic versions are skipped.
func (r *Resolver) Candidates(ctx context.Context) ([]semver.Version, error) {
	var res []semver.Version
	for tag, err := range r.source.Versions(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list versions (%s): %w", r.source.Name(), err)
		}

		v, err := semver.ParseTolerant(tag)
		if err != nil || !modsemver.IsValid(canonicalTag(tag)) {
			r.log.Debugf("Skipping tag %q", tag)
			continue
		}

		res = append(res, v)
	}

	return res, nil
}

// parseVersionFile reads the second whitespace separated token, e.g. "rclone v1.66.0".
func parseVersionFile(body string) (string, error) {
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return "", fmt.Errorf("unexpected version file (%q): %w", body, ErrVersionNotAvailable)
	}

	version := strings.TrimPrefix(fields[1], "v")
	if !modsemver.IsValid("v" + version) {
		return "", fmt.Errorf("unexpected version (%s): %w", fields[1], ErrVersionNotAvailable)
	}

	return version, nil
}

func canonicalTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}

	return tag
}
