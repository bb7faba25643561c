package core

import (
	"context"
	"io"
)

type (
	// Upload is a file received from a client.
	Upload struct {
		Filename    string
		ContentType string
		Size        int64
		Content     io.Reader
	}

	// FileStorage stores uploaded files and returns their public URL.
	FileStorage interface {
		Save(ctx context.Context, folder string, upload Upload) (url string, err error)
		// Delete removes the file behind url. It returns false when the url is not managed by the storage.
		Delete(ctx context.Context, url string) (bool, error)
	}
)
