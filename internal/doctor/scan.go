package doctor

import (
	"os"
	"path/filepath"
	"strings"
)

// executableBits is the Unix permission bitmask for executable files (owner/group/other execute).
const executableBits os.FileMode = 0111

// scanForUnmanaged scans all paths and returns unmanaged tools.
func (d *Doctor) scanForUnmanaged() (map[string][]UnmanagedTool, error) {
	result := make(map[string][]UnmanagedTool)

	for category, binPath := range d.scanPaths {
		tools, err := d.scanPath(category, binPath)
		if err != nil {
			// Skip non-existent directories
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if len(tools) > 0 {
			result[category] = tools
		}
	}

	return result, nil
}

// scanPath scans a single directory for unmanaged tools.
func (d *Doctor) scanPath(category, binPath string) ([]UnmanagedTool, error) {
	entries, err := os.ReadDir(binPath)
	if err != nil {
		return nil, err
	}

	var unmanaged []UnmanagedTool

	for _, entry := range entries {
		name := entry.Name()

		// Skip hidden files
		if strings.HasPrefix(name, ".") {
			continue
		}

		fullPath := filepath.Join(binPath, name)

		// Check if it's executable
		info, err := os.Stat(fullPath)
		if err != nil {
			continue
		}

		// Skip directories
		if info.IsDir() {
			continue
		}

		// Skip non-executable files (on Unix)
		if info.Mode()&executableBits == 0 {
			continue
		}

		// Check if this tool is managed by vx
		if !d.isManagedTool(name, category) {
			unmanaged = append(unmanaged, UnmanagedTool{
				Name: name,
				Path: fullPath,
			})
		}
	}

	return unmanaged, nil
}

// isManagedTool checks if a tool is managed by vx.
func (d *Doctor) isManagedTool(name, category string) bool {
	return d.managed(name, category)
}
