// Package mediatypes classifies upload content types and file extensions.
package mediatypes

import "strings"

// VideoExtensions maps file extensions to whether they are accepted video
// container formats. The list tracks what ffmpeg demuxes reliably.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps video file extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// IsVideoExtension reports whether ext is an accepted video container.
// The extension should be lowercase and include the leading dot (e.g., ".mp4").
func IsVideoExtension(ext string) bool {
	return VideoExtensions[ext]
}

// GetMimeType returns the MIME type for a given video file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsVideoContentType reports whether the declared content type is a video,
// ignoring any media type parameters.
func IsVideoContentType(contentType string) bool {
	if i := strings.Index(contentType, ";"); i != -1 {
		contentType = contentType[:i]
	}
	return strings.HasPrefix(strings.TrimSpace(contentType), "video/")
}
