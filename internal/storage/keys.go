// Package storage wraps the S3-compatible object store that holds uploaded media.
package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/piwcasokwa/backend/internal/models"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFileName strips every character outside [A-Za-z0-9._-]
func SanitizeFileName(name string) string {
	return unsafeKeyChars.ReplaceAllString(name, "")
}

// ObjectKey composes the storage key {category}/{unixMillis}_{sanitizedName}
func ObjectKey(category models.PathCategory, at time.Time, fileName string) string {
	return fmt.Sprintf("%s/%d_%s", category, at.UnixMilli(), SanitizeFileName(fileName))
}

// PublicURL builds the canonical public URL of a key. It is the only place such URLs are built.
func PublicURL(baseURL, bucket, key string) string {
	return publicPrefix(baseURL, bucket) + key
}

// KeyFromPublicURL recovers the storage key from a URL built by PublicURL with the same base and bucket.
// The URL must start with "{baseURL}/{bucket}/"; the rest is the key.
func KeyFromPublicURL(baseURL, bucket, publicURL string) (string, error) {
	key, found := strings.CutPrefix(publicURL, publicPrefix(baseURL, bucket))
	if !found || key == "" {
		return "", models.ErrForeignURL
	}
	return key, nil
}

func publicPrefix(baseURL, bucket string) string {
	return strings.TrimRight(baseURL, "/") + "/" + bucket + "/"
}
