package envh

import (
	"os"
	"path/filepath"
	"strings"
)

// PrependPath returns pathList with dir moved to the front. Other copies of dir are dropped.
func PrependPath(pathList, dir string) string {
	dir = filepath.Clean(dir)

	out := []string{dir}
	for _, p := range filepath.SplitList(pathList) {
		if p == "" || filepath.Clean(p) == dir {
			continue
		}

		out = append(out, p)
	}

	return strings.Join(out, string(os.PathListSeparator))
}

// PrependProcessPath puts dir in front of PATH of the current process.
func PrependProcessPath(dir string) error {
	return os.Setenv("PATH", PrependPath(os.Getenv("PATH"), dir))
}
