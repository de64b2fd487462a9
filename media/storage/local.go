package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalProvider implements Provider on the local filesystem.
type LocalProvider struct {
	basePath string
	baseURL  string
}

// NewLocalProvider creates a new local storage provider
func NewLocalProvider(basePath, baseURL string) (*LocalProvider, error) {
	if basePath == "" {
		basePath = "data/media"
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalProvider{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// BasePath 本地存储根目录
func (p *LocalProvider) BasePath() string {
	return p.basePath
}

// Upload writes to a temporary file and renames it into place, so readers
// never observe a partially written object.
func (p *LocalProvider) Upload(ctx context.Context, input UploadInput) (UploadOutput, error) {
	key, err := ObjectRef{Folder: input.Folder, Filename: input.Filename}.Key()
	if err != nil {
		return UploadOutput{}, err
	}
	if err := ctx.Err(); err != nil {
		return UploadOutput{}, err
	}

	fullPath := filepath.Join(p.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return UploadOutput{}, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return UploadOutput{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, input.File)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return UploadOutput{}, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return UploadOutput{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	return UploadOutput{
		URL:  p.url(key),
		Key:  key,
		Size: size,
	}, nil
}

// Delete removes a file; a missing file is not an error.
func (p *LocalProvider) Delete(ctx context.Context, ref ObjectRef) error {
	key, err := ref.Key()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(p.basePath, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetURL returns the public URL for a file
func (p *LocalProvider) GetURL(ctx context.Context, ref ObjectRef) (string, error) {
	key, err := ref.Key()
	if err != nil {
		return "", err
	}
	return p.url(key), nil
}

// GetSignedURL for local provider just returns the public URL
func (p *LocalProvider) GetSignedURL(ctx context.Context, ref ObjectRef, _ time.Duration) (string, error) {
	return p.GetURL(ctx, ref)
}

// Exists checks if a file exists
func (p *LocalProvider) Exists(ctx context.Context, ref ObjectRef) (bool, error) {
	key, err := ref.Key()
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(p.basePath, filepath.FromSlash(key)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (p *LocalProvider) Name() string {
	return "local"
}

// url uses forward slashes even on Windows.
func (p *LocalProvider) url(key string) string {
	return p.baseURL + "/" + key
}
