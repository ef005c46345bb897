// Package browser opens files and URLs in the user's default browser.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// command returns the launcher for goos, or an error for unsupported platforms.
func command(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", target), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target), nil
	case "darwin":
		return exec.Command("open", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", goos)
	}
}

// Open starts the platform launcher for target and returns without waiting
// for the browser.
func Open(target string) error {
	cmd, err := command(runtime.GOOS, target)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
