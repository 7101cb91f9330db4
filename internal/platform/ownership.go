package platform

import (
	"net/url"
	"strings"
)

// Authorize applies the storage ownership rule for stores that do not
// evaluate policies themselves: a caller may only touch keys under "{userId}/".
func Authorize(cred Credential, key string) error {
	if cred.IsService() {
		return nil
	}
	if cred.UserID() == "" {
		return NewError(KindUnauthorized, "401", "missing caller credential")
	}
	if !strings.HasPrefix(key, cred.UserID()+"/") {
		return NewError(KindForbidden, "403", "new row violates row-level security policy for object %q", key)
	}
	return nil
}

// KeyFromPublicURL recovers the object key from a URL produced by objects.PublicURL.
// Query strings (cache busting) are ignored.
func KeyFromPublicURL(objects Objects, bucket, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || objects == nil {
		return "", false
	}
	if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		u.RawQuery = ""
		raw = u.String()
	}
	prefix := objects.PublicURL(bucket, "")
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(raw, prefix)
	if key == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	return key, true
}
