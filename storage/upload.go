package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
)

// AvatarKey is the object key of the avatar of userID.
func AvatarKey(userID, extension string) string {
	return path.Join(userID, "avatar"+extension)
}

// DetectImage sniffs data and accepts images only.
func DetectImage(data []byte) (*mimetype.MIME, error) {
	return requireImage(mimetype.Detect(data))
}

func requireImage(mtype *mimetype.MIME) (*mimetype.MIME, error) {
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("avatar must be an image, got %s", mtype.String())
	}
	return mtype, nil
}

// Upload stores the image at file as the avatar of userID and returns its
// object key, the value kept in the user row.
func (a *Avatars) Upload(ctx context.Context, userID, file string) (string, error) {
	detected, err := mimetype.DetectFile(file)
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	mtype, err := requireImage(detected)
	if err != nil {
		return "", err
	}
	key := AvatarKey(userID, mtype.Extension())
	if _, err = a.client.FPutObject(ctx, a.bucket, key, file, minio.PutObjectOptions{
		ContentType: mtype.String(),
	}); err != nil {
		return "", fmt.Errorf("upload avatar %s: %w", key, err)
	}
	return key, nil
}
