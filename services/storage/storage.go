package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxUploadSize bounds a single upload
	MaxUploadSize = 10 << 20
	// SignedURLTTL is the validity window of presigned download links
	SignedURLTTL = 15 * time.Minute
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the object storage collaborator
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	PublicURL(key string) string
	// KeyFromURL maps a URL produced by Put or PublicURL back to its key
	KeyFromURL(url string) (string, bool)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename keeps a filename safe for use inside an object key
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	if len(name) > 120 {
		ext := filepath.Ext(name)
		if len(ext) > 20 {
			ext = ""
		}
		name = name[:120-len(ext)] + ext
	}
	return name
}

// UploadKey builds uploads/<userId>/<unix>_<name>
func UploadKey(userID, filename string, now time.Time) string {
	return fmt.Sprintf("uploads/%s/%d_%s", userID, now.Unix(), SanitizeFilename(filename))
}

// ThumbnailKey builds the key of a course thumbnail
func ThumbnailKey(courseID, filename string, now time.Time) string {
	return fmt.Sprintf("thumbnails/%s/%d_%s", courseID, now.Unix(), SanitizeFilename(filename))
}

// CertificateKey builds the key of a completion certificate
func CertificateKey(userID, courseID string) string {
	return fmt.Sprintf("certificates/%s/%s.pdf", userID, courseID)
}

// UserPrefix is the key prefix a user may delete under
func UserPrefix(userID string) string {
	return "uploads/" + userID + "/"
}

// ContentType returns the content type for a filename
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".json":
		return "application/json"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// IsImage reports whether filename has an image extension
func IsImage(filename string) bool {
	return strings.HasPrefix(ContentType(filename), "image/")
}
