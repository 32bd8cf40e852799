package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blogsphere/backend/internal/models"
)

// DiskStore writes images under a local directory that the server exposes at urlPrefix.
type DiskStore struct {
	dir       string
	urlPrefix string
}

func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create upload folder: %w", err)
	}
	return &DiskStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (d *DiskStore) Put(_ context.Context, folder string, r io.Reader, size int64, contentType string) (*models.Image, error) {
	key := objectKey(folder, contentType)
	savePath, err := d.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(savePath), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create upload folder: %w", err)
	}

	out, err := os.Create(savePath)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(r, size)); err != nil {
		os.Remove(savePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	return &models.Image{URL: d.urlPrefix + "/" + key, PublicID: key}, nil
}

func (d *DiskStore) Delete(_ context.Context, publicID string) error {
	target, err := d.resolve(publicID)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve maps a key onto a path inside dir, rejecting keys that escape it.
func (d *DiskStore) resolve(key string) (string, error) {
	root, err := filepath.Abs(d.dir)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(key))
	if !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return target, nil
}
