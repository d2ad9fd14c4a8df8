// ABOUTME: Opens verification URLs in the system browser
// ABOUTME: Only http(s) URLs are accepted; the launcher is swappable for tests

package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// ErrUnsupportedURL is returned for anything but an absolute http(s) URL.
var ErrUnsupportedURL = errors.New("only http and https URLs can be opened")

// launch starts the platform opener. It is a package-level variable so
// tests can override it.
var launch = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open validates u and hands it to the platform's default browser. It does
// not wait for the browser to exit.
func Open(u string) error {
	parsed, err := url.Parse(u)
	if err != nil {
		return fmt.Errorf("open %q: %w", u, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("open %q: %w", u, ErrUnsupportedURL)
	}

	name, args, err := command(runtime.GOOS, parsed.String())
	if err != nil {
		return err
	}
	if err := launch(name, args...); err != nil {
		return fmt.Errorf("launching %s: %w", name, err)
	}
	return nil
}

func command(goos, u string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{u}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{u}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", u}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform %q for opening browser", goos)
	}
}
