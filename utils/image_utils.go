package utils

import (
	"fmt"
	"strings"
)

const storageURLPrefix = "https://storage.googleapis.com/"

// ExtractObjectPath turns a public storage URL into the bucket-relative
// object path, e.g. "books/cover.jpg". Deleting a file from storage needs
// the object path, not the URL.
func ExtractObjectPath(url string) (string, error) {
	if !strings.HasPrefix(url, storageURLPrefix) {
		return "", fmt.Errorf("not a storage URL: %s", url)
	}

	// Strip the prefix, then the bucket name.
	rest := strings.TrimPrefix(url, storageURLPrefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("storage URL has no object path: %s", url)
	}

	return parts[1], nil
}
