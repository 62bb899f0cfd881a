package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/cometkim/setup-rclone/internal/catalog"
	sourcedl "github.com/cometkim/setup-rclone/internal/catalog/source-downloads"
	sourcegh "github.com/cometkim/setup-rclone/internal/catalog/source-github-release"
	"github.com/cometkim/setup-rclone/internal/config"
	"github.com/cometkim/setup-rclone/internal/fsh"
	"github.com/cometkim/setup-rclone/internal/httpx"
	"github.com/cometkim/setup-rclone/internal/humanize"
	"github.com/cometkim/setup-rclone/internal/installer"
	"github.com/cometkim/setup-rclone/internal/resolver"
	"github.com/cometkim/setup-rclone/internal/setup"
	"github.com/cometkim/setup-rclone/internal/timeh"
	"github.com/cometkim/setup-rclone/internal/toolcache"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sethvargo/go-githubactions"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/mod/semver"
)

var version = "unknown-dirty"

func main() {
	action := githubactions.New()

	app := &cli.App{
		Name:  "setup-rclone",
		Usage: "Install rclone into the tool cache and put it on PATH",
		Description: `Resolve an rclone version, download the build for the target platform,
cache it and expose it to the following workflow steps.

	$ setup-rclone
	$ setup-rclone --rclone-version='^1.65' --platform=linux --architecture=arm64

Inside GitHub Actions inputs are read from INPUT_* variables.`,
		Flags:  config.Flags(),
		Action: withEnv(action, cmdInstall),
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "show setup-rclone version",
				Action: func(c *cli.Context) error {
					fmt.Println("version:", version)
					return nil
				},
			},
			{
				Name:  "resolve",
				Usage: "print the concrete rclone version for a specifier",
				Description: `Resolve a specifier without installing anything.

	$ setup-rclone resolve latest
	$ setup-rclone resolve '~1.65.0'

Without an argument the --rclone-version value is used.`,
				Action: withEnv(action, cmdResolve),
				Args:   true,
			},
			{
				Name:   "versions",
				Usage:  "list published rclone versions",
				Action: withEnv(action, cmdVersions),
			},
			{
				Name:   "cache",
				Usage:  "list rclone builds in the tool cache",
				Action: withEnv(action, cmdCache),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		action.Fatalf("%v", err)
	}
}

// env holds what every command needs.
type env struct {
	cfg    config.Config
	action *githubactions.Action
	fs     fsh.FS
	client *http.Client
}

func withEnv(action *githubactions.Action, fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		fs := fsh.NewRealFS()

		cfg, err := config.Load(c, action, fs)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		return fn(c, &env{
			cfg:    cfg,
			action: action,
			fs:     fs,
			client: httpx.NewClient(config.UserAgent),
		})
	}
}

func (e *env) source(ctx context.Context) catalog.Source {
	return catalog.Select(e.cfg.OnPublicGitHub(), e.cfg.Token,
		func() catalog.Source {
			return sourcegh.New(sourcegh.NewClient(ctx, e.client, e.cfg.Token, config.UserAgent))
		},
		func() catalog.Source {
			return sourcedl.New(e.client, sourcedl.DefaultURL)
		},
	)
}

func (e *env) resolver(ctx context.Context) *resolver.Resolver {
	return resolver.New(e.client, resolver.DefaultCurrentURL, e.source(ctx), e.action)
}

func cmdInstall(c *cli.Context, e *env) error {
	ctx := c.Context

	cache := toolcache.New(e.fs, e.cfg.ToolCacheDir)
	inst := installer.New(e.fs, e.client, cache, installer.BaseURL(e.cfg.OnPublicGitHub()), e.cfg.TempDir, e.action)
	driver := setup.New(e.resolver(ctx), inst, setup.ActionPaths{Action: e.action}, e.action, e.action)

	e.action.Group("Setup rclone")
	defer e.action.EndGroup()

	res, err := driver.Run(ctx, e.cfg)
	if err != nil {
		return err
	}

	e.action.Infof("rclone %s (%s) is available @ %s", res.Version, res.Target, res.Dir)

	return nil
}

func cmdResolve(c *cli.Context, e *env) error {
	specifier := c.Args().First()
	if specifier == "" {
		specifier = e.cfg.Version
	}

	res, err := e.resolver(c.Context).Resolve(c.Context, specifier)
	if err != nil {
		return fmt.Errorf("resolve (%s): %w", specifier, err)
	}

	resolved, ok := res.Get()
	if !ok {
		return setup.NotAvailableError{Specifier: specifier}
	}

	fmt.Println(resolved)

	return nil
}

func cmdVersions(c *cli.Context, e *env) error {
	src := e.source(c.Context)

	tags, err := catalog.Collect(c.Context, src)
	if err != nil {
		return fmt.Errorf("list versions (%s): %w", src.Name(), err)
	}

	// Newest first. Tags that are not semver go last.
	slices.SortStableFunc(tags, func(a, b string) int {
		return semver.Compare(canonical(b), canonical(a))
	})

	rows := make([]table.Row, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, table.Row{
			tag,
			semver.IsValid(canonical(tag)),
			semver.Prerelease(canonical(tag)) != "",
		})
	}

	t := table.NewWriter()
	t.SetTitle("Source: " + src.Name())
	t.AppendHeader(table.Row{
		"Tag",
		"Semver",
		"Prerelease",
	})
	t.AppendRows(rows)
	t.AppendFooter(table.Row{"Total", len(tags)})

	fmt.Println(t.Render())

	return nil
}

func cmdCache(_ *cli.Context, e *env) error {
	entries, err := toolcache.New(e.fs, e.cfg.ToolCacheDir).List()
	if err != nil {
		return fmt.Errorf("list cache: %w", err)
	}

	now := time.Now()
	rows := make([]table.Row, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, table.Row{
			entry.Tool,
			entry.Version,
			entry.Target,
			humanize.Bytes(entry.Size),
			timeh.Since(entry.StoredAt, now),
			entry.Path,
		})
	}

	t := table.NewWriter()
	t.SetTitle("Tool cache: " + e.cfg.ToolCacheDir)
	t.AppendHeader(table.Row{
		"Tool",
		"Version",
		"Target",
		"Size",
		"Age",
		"Path",
	})
	t.AppendRows(rows)

	fmt.Println(t.Render())

	return nil
}

func canonical(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}

	return "v" + tag
}
