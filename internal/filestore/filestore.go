// Package filestore keeps uploaded blobs (avatars, chat images) under
// generated keys and resolves them to public URLs.
package filestore

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	AvatarPrefix = "avatars"
	ImagePrefix  = "images"
)

var ErrInvalidKey = errors.New("invalid file key")

// FileStore is implemented by LocalStore and S3Store.
type FileStore interface {
	// Store writes data under key.
	Store(ctx context.Context, key, contentType string, data []byte) error
	// Delete removes key. Removing a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL returns the public location of key, either absolute or rooted at "/".
	URL(key string) string
}

// NewKey returns a fresh key such as "avatars/3f0c...e1.png".
func NewKey(prefix, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(prefix, uuid.NewString()+strings.ToLower(ext))
}

// validKey rejects keys that could escape the storage root.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return ErrInvalidKey
		}
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
