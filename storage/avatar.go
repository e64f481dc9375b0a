// Package storage resolves objects of the backend blob store into public URLs.
package storage

import (
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AvatarResolver turns a stored avatar path into a retrievable URL.
type AvatarResolver interface {
	PublicURL(path string) string
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Avatars builds path-style public URLs on a MinIO/S3 endpoint.
// Building a URL never contacts the server.
type Avatars struct {
	bucket string
	client *minio.Client
}

func NewAvatars(cfg Config) (*Avatars, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Avatars{bucket: cfg.Bucket, client: client}, nil
}

// PublicURL returns "" for an empty path and leaves absolute URLs untouched.
func (a *Avatars) PublicURL(path string) string {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return a.client.EndpointURL().JoinPath(a.bucket, path).String()
}
