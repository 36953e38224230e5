package core

import (
	"context"

	"github.com/pkg/errors"
)

// ErrInvalidUpload is the cause of every Upload error due to the payload itself rather than the asset host.
var ErrInvalidUpload = errors.New("invalid upload payload")

// Asset is an uploaded file as known by the asset host.
type Asset struct {
	PublicID string `json:"public_id" bson:"public_id"`
	URL      string `json:"url" bson:"url"`
}

// Uploader stores and deletes user supplied media.
type Uploader interface {
	// Upload stores payload (a data URI or a raw base64 string) under folder.
	Upload(ctx context.Context, payload, folder string) (Asset, error)
	Destroy(ctx context.Context, publicID string) error
}
