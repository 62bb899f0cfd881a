package setup

import (
	"context"
	"fmt"

	"github.com/cometkim/setup-rclone/internal/config"
	"github.com/cometkim/setup-rclone/internal/envh"
	"github.com/cometkim/setup-rclone/internal/platform"
	"github.com/cometkim/setup-rclone/internal/resolver"
	"github.com/kazhuravlev/optional"
)

type Resolver interface {
	Resolve(ctx context.Context, specifier string) (optional.Val[string], error)
}

type Installer interface {
	Install(ctx context.Context, version, platformKey, archKey string) (string, error)
}

// PathRegistrar exposes a directory on the executable search path of later steps.
type PathRegistrar interface {
	AddPath(dir string)
}

type OutputSetter interface {
	SetOutput(key, value string)
}

type Logger interface {
	Infof(msg string, args ...any)
}

// NotAvailableError means no published version satisfies the specifier.
type NotAvailableError struct {
	Specifier string
}

func (e NotAvailableError) Error() string {
	return fmt.Sprintf("rclone-version %s is not available", e.Specifier)
}

func (e NotAvailableError) Unwrap() error {
	return resolver.ErrVersionNotAvailable
}

type Result struct {
	Version string
	Target  platform.Target
	Dir     string
}

type Driver struct {
	resolver  Resolver
	installer Installer
	paths     PathRegistrar
	outputs   OutputSetter
	log       Logger
}

func New(res Resolver, inst Installer, paths PathRegistrar, outputs OutputSetter, log Logger) *Driver {
	return &Driver{
		resolver:  res,
		installer: inst,
		paths:     paths,
		outputs:   outputs,
		log:       log,
	}
}

// Run resolves, installs and publishes rclone. Nothing is published when any step fails.
func (d *Driver) Run(ctx context.Context, cfg config.Config) (Result, error) {
	target, err := platform.Normalize(cfg.Platform.ValDefault(""), cfg.Arch.ValDefault(""))
	if err != nil {
		return Result{}, fmt.Errorf("normalize target: %w", err)
	}

	d.log.Infof("Resolving rclone-version %s for %s", cfg.Version, target)

	resolved, err := d.resolver.Resolve(ctx, cfg.Version)
	if err != nil {
		return Result{}, fmt.Errorf("resolve version (%s): %w", cfg.Version, err)
	}

	version, ok := resolved.Get()
	if !ok {
		return Result{}, NotAvailableError{Specifier: cfg.Version}
	}

	d.log.Infof("Resolved rclone-version %s", version)

	dir, err := d.installer.Install(ctx, version, target.Platform, target.Arch)
	if err != nil {
		return Result{}, fmt.Errorf("install rclone %s (%s): %w", version, target, err)
	}

	d.paths.AddPath(dir)
	d.outputs.SetOutput(config.OutputVersion, version)

	return Result{
		Version: version,
		Target:  target,
		Dir:     dir,
	}, nil
}

// ActionPaths registers directories for later steps and for the current process.
type ActionPaths struct {
	Action PathRegistrar
}

func (p ActionPaths) AddPath(dir string) {
	p.Action.AddPath(dir)
	// PATH is a valid variable name, Setenv cannot fail.
	_ = envh.PrependProcessPath(dir)
}
