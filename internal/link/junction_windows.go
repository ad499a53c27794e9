//go:build windows

package link

import "os/exec"

// createJunction creates a Windows directory junction at dst pointing to
// src, via mklink /J. Junctions don't require Developer Mode or admin
// rights the way directory symlinks do.
func createJunction(src, dst string) error {
	cmd := exec.Command("cmd", "/c", "mklink", "/J", dst, src)
	return cmd.Run()
}
