package shared

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// Navigator sends the user agent to an authorization URL.
type Navigator func(url string) error

// OpenBrowser opens the default system browser to the specified URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

// BrowserNavigator opens url in the system browser and falls back to printing it to w.
func BrowserNavigator(w io.Writer) Navigator {
	return func(url string) error {
		if err := OpenBrowser(url); err != nil {
			_, werr := fmt.Fprintf(w, "Open this URL in your browser:\n%s\n\n", url)
			return werr
		}
		return nil
	}
}
