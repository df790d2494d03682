package object

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// DefaultPrefix is the fixed path segment objects live under.
const DefaultPrefix = "images"

const maxExtLen = 10

// NewKey returns a fresh object key: a random UUID plus the extension of originalName.
// The extension is kept only when it is short and alphanumeric.
func NewKey(originalName string) string {
	return uuid.NewString() + SafeExt(originalName)
}

// SafeExt returns the lowercased extension of name including the dot, or "" when it
// is missing or not plain alphanumeric.
func SafeExt(name string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")))
	if len(ext) < 2 || len(ext) > maxExtLen+1 {
		return ""
	}
	for _, ch := range ext[1:] {
		if !((ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9')) {
			return ""
		}
	}
	return ext
}

// NormalizePrefix trims whitespace and surrounding slashes.
func NormalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

// ApplyPrefix joins prefix and key into the path used inside the bucket.
func ApplyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

// URLFor builds <base>/<prefix>/<key> with the key path-escaped.
func URLFor(base, prefix, key string) string {
	escaped := url.PathEscape(key)
	return strings.TrimRight(base, "/") + "/" + ApplyPrefix(prefix, escaped)
}

// ResolveKeyFromURL extracts the key from a URL of the form <base>/<prefix>/<key>.
// The key is the URL-decoded path suffix after the last prefix segment. No I/O.
func ResolveKeyFromURL(rawURL, prefix string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: parse url: %v", ErrInvalidKey, err)
	}
	escapedPath := u.EscapedPath()
	marker := "/" + NormalizePrefix(prefix) + "/"
	if NormalizePrefix(prefix) == "" {
		marker = "/"
	}
	idx := strings.LastIndex(escapedPath, marker)
	if idx < 0 {
		return "", fmt.Errorf("%w: url %q has no %q segment", ErrInvalidKey, rawURL, marker)
	}
	key, err := url.PathUnescape(escapedPath[idx+len(marker):])
	if err != nil {
		return "", fmt.Errorf("%w: decode key: %v", ErrInvalidKey, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: empty key in %q", ErrInvalidKey, rawURL)
	}
	return key, nil
}

// KeyFromRef accepts either a bare key or a full object URL and returns the key.
func KeyFromRef(urlOrKey, prefix string) (string, error) {
	ref := strings.TrimSpace(urlOrKey)
	if ref == "" {
		return "", ErrInvalidKey
	}
	if strings.Contains(ref, "://") {
		return ResolveKeyFromURL(ref, prefix)
	}
	return ref, nil
}

// ValidKey reports whether key is safe to use as a single path element.
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, "/\\") && !strings.Contains(key, "..")
}
