package doctor

import (
	"os"
	"path/filepath"
)

// checkShimIntegrity verifies that every known shim symlink still resolves
// to an existing target, catching store entries removed out from under a
// live global shim or project .vx/bin entry.
func (d *Doctor) checkShimIntegrity() []StateIssue {
	var issues []StateIssue

	for _, shim := range d.shims {
		info, err := os.Lstat(shim.Path)
		if err != nil {
			if os.IsNotExist(err) {
				issues = append(issues, StateIssue{
					Kind: StateIssueMissingBinary,
					Name: shim.Name,
					Path: shim.Path,
				})
			}
			continue
		}

		if info.Mode()&os.ModeSymlink == 0 {
			continue
		}

		target, err := os.Readlink(shim.Path)
		if err != nil {
			issues = append(issues, StateIssue{
				Kind: StateIssueBrokenSymlink,
				Name: shim.Name,
				Path: shim.Path,
			})
			continue
		}

		targetPath := target
		if !filepath.IsAbs(target) {
			targetPath = filepath.Join(filepath.Dir(shim.Path), target)
		}

		if _, err := os.Stat(targetPath); os.IsNotExist(err) {
			issues = append(issues, StateIssue{
				Kind:   StateIssueBrokenSymlink,
				Name:   shim.Name,
				Path:   shim.Path,
				Target: target,
			})
		}
	}

	return issues
}
