//go:build !windows

package link

import "fmt"

// createJunction is unreachable outside Windows; createDirLink only calls
// it when runtime.GOOS == "windows".
func createJunction(src, dst string) error {
	return fmt.Errorf("junctions are only supported on windows")
}
