package synth

import (
	"os"
	"path/filepath"
	"strings"
)

// SearchPath is the ordered module path offered to jdeps: found modules, then
// not-modules, then any provided module directories.
type SearchPath []string

// BuildSearchPath builds the path from the output areas as they stand now. Call
// it only after classification has populated both areas.
func BuildSearchPath(modulesDir, notModulesDir string, provided []string) (SearchPath, error) {
	dirs := append([]string{modulesDir, notModulesDir}, provided...)
	sp := make(SearchPath, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, err
		}
		sp = append(sp, abs)
	}
	return sp, nil
}

// String joins the entries with the platform path-list separator.
func (s SearchPath) String() string {
	return strings.Join(s, string(os.PathListSeparator))
}
