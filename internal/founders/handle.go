// Package founders resolves founder names to profile handles and fetches
// their profiles.
package founders

import (
	"net/url"
	"strings"
)

// ExtractHandle returns the profile handle addressed by rawURL, or false when
// the URL is not a profile URL on domain. Handle formats vary, so parsing is
// best effort and tolerates:
//
//   - a missing scheme ("linkedin.com/in/foo")
//   - any subdomain of domain ("fr.linkedin.com")
//   - trailing slashes, query strings and fragments
//   - percent-encoded characters, which are decoded
//   - numeric or hex suffixes ("foo-1a2b3c"), which stay part of the handle
//   - extra path segments after the handle ("/in/foo/details/experience/")
func ExtractHandle(rawURL, domain, pathPrefix string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}
	if !hasScheme(rawURL) {
		rawURL = "https://" + strings.TrimPrefix(rawURL, "//")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if !hostMatches(u.Hostname(), domain) {
		return "", false
	}

	prefix := "/" + strings.Trim(pathPrefix, "/") + "/"
	path := u.Path
	if !strings.HasPrefix(strings.ToLower(path), strings.ToLower(prefix)) {
		return "", false
	}

	for _, segment := range strings.Split(path[len(prefix):], "/") {
		// query or fragment characters that survived an extra round of encoding
		if i := strings.IndexAny(segment, "?#"); i >= 0 {
			segment = segment[:i]
		}
		if segment = strings.TrimSpace(segment); segment != "" {
			return segment, true
		}
	}
	return "", false
}

// hasScheme reports whether s starts with "scheme://". A "://" inside the
// path or query does not count.
func hasScheme(s string) bool {
	i := strings.Index(s, "://")
	return i > 0 && !strings.ContainsAny(s[:i], "/?#")
}

func hostMatches(host, domain string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	if domain == "" {
		return true
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
