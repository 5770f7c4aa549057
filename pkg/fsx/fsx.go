// Package fsx abstracts blob storage used for raw crawled documents.
package fsx

import (
	"context"
	"errors"
)

var ErrNotExist = errors.New("fsx: file does not exist")

type FileSystem interface {
	// WriteFile stores data at path and returns a stable reference to it
	WriteFile(ctx context.Context, path string, data []byte, contentType string) (string, error)

	// ReadFile loads the content stored at path
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether path has content
	Exists(ctx context.Context, path string) (bool, error)
}
