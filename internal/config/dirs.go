package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cometkim/setup-rclone/internal/fsh"
)

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home dir: %w", err)
	}

	return filepath.Join(home, path[1:]), nil
}

// resolveDir makes dir absolute against the working directory of fSys.
func resolveDir(fSys fsh.FS, dir string) (string, error) {
	dir, err := expandHome(dir)
	if err != nil {
		return "", fmt.Errorf("expand home (%s): %w", dir, err)
	}

	abs, err := fsh.Abs(fSys, dir)
	if err != nil {
		return "", fmt.Errorf("resolve dir (%s): %w", dir, err)
	}

	return abs, nil
}
