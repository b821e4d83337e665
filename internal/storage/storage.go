// Package storage is the blob store for pet, adoption and profile images. Records hold only
// the opaque key returned by Put or Copy and own the blob behind it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"purpaws/internal/config"

	"github.com/google/uuid"
)

// Key prefixes, one per owning record type.
const (
	PrefixPetImages      = "pet_images"
	PrefixAdoptionImages = "adoption_images"
	PrefixProfilePics    = "profile_pics"
)

var knownPrefixes = map[string]struct{}{
	PrefixPetImages:      {},
	PrefixAdoptionImages: {},
	PrefixProfilePics:    {},
}

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Store persists and serves blobs.
type Store interface {
	// Put writes r under a fresh key in prefix and returns the key.
	Put(ctx context.Context, prefix string, r io.Reader, size int64, contentType string) (string, error)
	// Open streams the blob at key. Callers close the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Copy duplicates srcKey into prefix under a fresh key, leaving the source untouched.
	Copy(ctx context.Context, srcKey, prefix string) (string, error)
	// Delete removes the blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by BLOB_BACKEND.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.BlobBackend {
	case "", "local":
		return NewLocal(cfg.BlobDir)
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unsupported blob backend %q", cfg.BlobBackend)
	}
}

// NewKey returns prefix/<uuid><ext>.
func NewKey(prefix, ext string) (string, error) {
	if _, ok := knownPrefixes[prefix]; !ok {
		return "", fmt.Errorf("%w: unknown prefix %q", ErrInvalidKey, prefix)
	}
	return prefix + "/" + uuid.NewString() + ext, nil
}

// ValidateKey accepts only keys this package could have produced.
func ValidateKey(key string) error {
	prefix, name, ok := strings.Cut(key, "/")
	if !ok || name == "" || strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.HasPrefix(name, ".") {
		return ErrInvalidKey
	}
	if _, known := knownPrefixes[prefix]; !known {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	return nil
}

// Ext returns the extension of key including the dot.
func Ext(key string) string {
	return path.Ext(key)
}
