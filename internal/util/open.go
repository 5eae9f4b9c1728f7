package util

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/theakshaypant/meetbar/internal/core"
)

// OpenBrowser opens a URL with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	// reap the child without blocking the caller
	go cmd.Wait()
	return nil
}

// Browser is the system Opener.
var Browser core.Opener = core.OpenerFunc(OpenBrowser)
