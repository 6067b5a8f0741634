package session

import (
	"net/url"
	"strings"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
)

// LaunchScheme is the protocol handler scheme for directory links.
const LaunchScheme = "ext+hds:"

// ParseLaunchFragment extracts the directory address from a startup link.
// It accepts the registered handler fragment ("#!/ext%2Bhds%3A<host>"), a
// bare "ext+hds:<host>" URL and a page URL carrying either as its fragment.
func ParseLaunchFragment(fragment string) (string, error) {
	raw := strings.TrimSpace(fragment)
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[i+1:]
	}
	raw = strings.TrimPrefix(raw, "!/")

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", errors.NewValidationError("fragment", "malformed escape sequence", fragment)
	}

	if len(decoded) < len(LaunchScheme) || !strings.EqualFold(decoded[:len(LaunchScheme)], LaunchScheme) {
		return "", errors.NewValidationError("fragment", "not an ext+hds link", fragment)
	}
	host := strings.TrimPrefix(decoded[len(LaunchScheme):], "//")
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return "", errors.NewValidationError("fragment", "link names no host", fragment)
	}
	return host, nil
}
