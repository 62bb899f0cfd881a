package platform

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
)

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrUnsupportedArch     = errors.New("unsupported architecture")
)

// platforms maps host/user platform names to rclone release platform keys.
var platforms = map[string]string{
	"freebsd": "freebsd",
	"linux":   "linux",
	"netbsd":  "netbsd",
	"openbsd": "openbsd",
	"darwin":  "osx",
	"win":     "windows",
	"windows": "windows",
	"win32":   "windows",
}

// arches maps host/user architecture names to rclone release arch keys.
var arches = map[string]string{
	"i386":    "386",
	"ia32":    "386",
	"x86":     "386",
	"386":     "386",
	"x86_64":  "amd64",
	"x64":     "amd64",
	"amd64":   "amd64",
	"arm64":   "arm64",
	"aarch64": "arm64",
	"armv7":   "arm-v7",
	"armv6":   "arm-v6",
	"arm":     "arm",
	"mips":    "mips",
	"mipsel":  "mipsle",
	"mipsle":  "mipsle",
}

// Target is a normalized platform/arch pair as used in rclone release file names.
type Target struct {
	Platform string
	Arch     string
}

// String returns "<platform>-<arch>", the cache target and file name suffix.
func (t Target) String() string {
	return t.Platform + "-" + t.Arch
}

// NormalizePlatform maps name to a release platform key. Empty name means the host OS.
func NormalizePlatform(name string) (string, error) {
	if name == "" {
		name = runtime.GOOS
	}

	res, ok := platforms[name]
	if !ok {
		return "", fmt.Errorf("OS %s is not supported: %w", name, ErrUnsupportedPlatform)
	}

	return res, nil
}

// NormalizeArch maps name to a release arch key. Empty name means the host CPU.
func NormalizeArch(name string) (string, error) {
	if name == "" {
		name = runtime.GOARCH
	}

	res, ok := arches[name]
	if !ok {
		return "", fmt.Errorf("arch %s is not supported: %w", name, ErrUnsupportedArch)
	}

	return res, nil
}

// Normalize resolves both parts of a target. Platform is checked first.
func Normalize(platformName, archName string) (Target, error) {
	p, err := NormalizePlatform(platformName)
	if err != nil {
		return Target{}, err
	}

	a, err := NormalizeArch(archName)
	if err != nil {
		return Target{}, err
	}

	return Target{Platform: p, Arch: a}, nil
}

// BinaryName returns the executable file name for the given release platform key.
func BinaryName(tool, platformKey string) string {
	if platformKey == "windows" {
		return tool + ".exe"
	}

	return tool
}

// SupportedPlatforms lists accepted platform names, sorted.
func SupportedPlatforms() []string {
	return keys(platforms)
}

// SupportedArches lists accepted architecture names, sorted.
func SupportedArches() []string {
	return keys(arches)
}

func keys(m map[string]string) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}

	sort.Strings(res)

	return res
}
