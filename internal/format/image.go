package format

import "strings"

// FullImageURL resolves an image path returned by the backend against origin.
// Absolute URLs pass through, rooted paths are joined to origin and bare
// paths are served from the backend's public storage directory.
func FullImageURL(origin, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	origin = strings.TrimRight(origin, "/")
	if strings.HasPrefix(path, "/") {
		return origin + path
	}
	return origin + "/storage/" + path
}
