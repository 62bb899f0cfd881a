package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cometkim/setup-rclone/internal/catalog"
	"github.com/cometkim/setup-rclone/internal/fsh"
	"github.com/kazhuravlev/optional"
	"github.com/sethvargo/go-githubactions"
	cli "github.com/urfave/cli/v2"
)

const (
	UserAgent       = "cometkim/rclone-actions/setup-rclone"
	PublicServerURL = "https://github.com"
	DefaultVersion  = "latest"
	OutputVersion   = "rclone-version"
)

const (
	KeyVersion      = "rclone-version"
	KeyPlatform     = "platform"
	KeyArchitecture = "architecture"
	KeyGithubToken  = "github-token"
	KeyToolCacheDir = "tool-cache-dir"
	KeyTempDir      = "temp-dir"
	KeyServerURL    = "server-url"
)

// Config is the resolved set of step inputs and runner context.
type Config struct {
	Version      string
	Platform     optional.Val[string]
	Arch         optional.Val[string]
	Token        string
	ServerURL    string
	ToolCacheDir string
	TempDir      string
}

// OnPublicGitHub reports whether the workflow runs on github.com rather than an enterprise server.
func (c Config) OnPublicGitHub() bool {
	return c.ServerURL == PublicServerURL
}

func (c Config) UseReleasesAPI() bool {
	return catalog.UseReleasesAPI(c.OnPublicGitHub(), c.Token)
}

// Flags are shared by every command. Action inputs arrive as INPUT_<NAME> variables.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    KeyVersion,
			Usage:   "rclone version: latest, current or a semver range",
			EnvVars: []string{"INPUT_RCLONE-VERSION"},
			Value:   DefaultVersion,
		},
		&cli.StringFlag{
			Name:    KeyPlatform,
			Usage:   "target platform, defaults to the host",
			EnvVars: []string{"INPUT_PLATFORM"},
		},
		&cli.StringFlag{
			Name:    KeyArchitecture,
			Usage:   "target architecture, defaults to the host",
			EnvVars: []string{"INPUT_ARCHITECTURE"},
		},
		&cli.StringFlag{
			Name:    KeyGithubToken,
			Usage:   "token for the GitHub releases API",
			EnvVars: []string{"INPUT_GITHUB-TOKEN", "GITHUB_TOKEN"},
		},
		&cli.StringFlag{
			Name:    KeyToolCacheDir,
			Usage:   "tool cache root",
			EnvVars: []string{"RUNNER_TOOL_CACHE"},
		},
		&cli.StringFlag{
			Name:    KeyTempDir,
			Usage:   "directory for downloads",
			EnvVars: []string{"RUNNER_TEMP"},
		},
		&cli.StringFlag{
			Name:  KeyServerURL,
			Usage: "GitHub server URL, defaults to GITHUB_SERVER_URL",
		},
	}
}

// Load reads flags first and falls back to the Actions environment.
// Directories are made absolute against the working directory of fSys.
func Load(c *cli.Context, action *githubactions.Action, fSys fsh.FS) (Config, error) {
	cfg := Config{
		Version:      c.String(KeyVersion),
		Token:        c.String(KeyGithubToken),
		ServerURL:    c.String(KeyServerURL),
		ToolCacheDir: c.String(KeyToolCacheDir),
		TempDir:      c.String(KeyTempDir),
	}

	if val := c.String(KeyPlatform); val != "" {
		cfg.Platform.Set(val)
	}

	if val := c.String(KeyArchitecture); val != "" {
		cfg.Arch.Set(val)
	}

	// An empty token input shadows GITHUB_TOKEN on the flag level.
	if cfg.Token == "" {
		cfg.Token = action.Getenv("GITHUB_TOKEN")
	}

	if cfg.ServerURL == "" {
		ghCtx, err := action.Context()
		if err != nil {
			return Config{}, fmt.Errorf("read actions context: %w", err)
		}

		cfg.ServerURL = ghCtx.ServerURL
	}

	if cfg.ToolCacheDir == "" {
		cfg.ToolCacheDir = defaultToolCacheDir()
	}

	if cfg.TempDir == "" {
		cfg.TempDir = filepath.Join(os.TempDir(), "setup-rclone")
	}

	for _, dir := range []*string{&cfg.ToolCacheDir, &cfg.TempDir} {
		abs, err := resolveDir(fSys, *dir)
		if err != nil {
			return Config{}, err
		}

		*dir = abs
	}

	return cfg, nil
}

// defaultToolCacheDir is used outside of a runner.
func defaultToolCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "setup-rclone", "tool-cache")
}
