// Package version picks a collision-free artifact directory name.
package version

import (
	"fmt"
	"path/filepath"

	"makellamafile/internal/common/fsutil"
)

// Resolve returns base if outputDir/base does not exist, otherwise the first
// base_v{k} (k = 1, 2, ...) whose directory is absent. The probe is a plain
// existence check: two invocations racing on the same outputDir can pick the
// same name.
func Resolve(outputDir, base string) string {
	if !fsutil.PathExists(filepath.Join(outputDir, base)) {
		return base
	}
	for k := 1; ; k++ {
		name := fmt.Sprintf("%s_v%d", base, k)
		if !fsutil.PathExists(filepath.Join(outputDir, name)) {
			return name
		}
	}
}
