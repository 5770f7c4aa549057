package job

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/url"
	"strings"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"ref":     true,
	"refid":   true,
	"trk":     true,
}

// NormalizeURL canonicalizes a posting URL so that cosmetic variants of the
// same address produce the same fingerprint.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidSourceURL().WithDetail("source_url", "empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidSourceURL().WithDetail("source_url", raw).WithCause(err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrInvalidSourceURL().WithDetail("source_url", raw).WithDetail("reason", "scheme must be http or https")
	}
	if u.Hostname() == "" {
		return "", ErrInvalidSourceURL().WithDetail("source_url", raw).WithDetail("reason", "missing host")
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host = net.JoinHostPort(host, port)
	}

	query := u.Query()
	for key := range query {
		lk := strings.ToLower(key)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			query.Del(key)
		}
	}

	out := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     strings.TrimRight(u.Path, "/"),
		RawQuery: query.Encode(), // sorted by key
	}
	return out.String(), nil
}

// ComputeFingerprint returns the hex SHA-256 of the normalized source URL
func ComputeFingerprint(sourceURL string) (kernel.Fingerprint, string, error) {
	normalized, err := NormalizeURL(sourceURL)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256([]byte(normalized))
	return kernel.Fingerprint(hex.EncodeToString(sum[:])), normalized, nil
}
