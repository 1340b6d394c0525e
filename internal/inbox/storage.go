package inbox

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BlobRef locates attachment bytes inside a storage container
type BlobRef struct {
	Container string
	Blob      string
}

func (r BlobRef) String() string {
	return r.Container + "/" + r.Blob
}

// ParseBlobRef resolves an attachment reference. An http(s) URL names its
// container in the first path segment; anything else is a blob path inside
// defaultContainer.
func ParseBlobRef(ref, defaultContainer string) (BlobRef, error) {
	if strings.HasPrefix(ref, "http") {
		u, err := url.Parse(ref)
		if err != nil {
			return BlobRef{}, fmt.Errorf("parsing blob url: %w", err)
		}
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return BlobRef{}, fmt.Errorf("blob url must contain /<container>/<blob>: %s", ref)
		}
		return BlobRef{Container: parts[0], Blob: parts[1]}, nil
	}
	if ref == "" {
		return BlobRef{}, fmt.Errorf("empty blob reference")
	}
	return BlobRef{Container: defaultContainer, Blob: ref}, nil
}

// Storage defines the interface for attachment byte storage
type Storage interface {
	// Resolve turns an attachment reference into a BlobRef
	Resolve(ref string) (BlobRef, error)

	// Save writes a blob, replacing any existing one
	Save(ref BlobRef, data []byte) error

	// Get reads a blob, returning ErrBlobNotFound when it does not exist
	Get(ref BlobRef) ([]byte, error)

	// Delete removes a blob
	Delete(ref BlobRef) error
}

// LocalStorage implements the Storage interface using the local filesystem.
// Each container is a directory under basePath.
type LocalStorage struct {
	basePath         string
	defaultContainer string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath, defaultContainer string) (*LocalStorage, error) {
	if defaultContainer == "" {
		return nil, fmt.Errorf("default container is required")
	}
	if err := os.MkdirAll(filepath.Join(basePath, defaultContainer), 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath:         basePath,
		defaultContainer: defaultContainer,
	}, nil
}

// Resolve parses ref against the default container
func (l *LocalStorage) Resolve(ref string) (BlobRef, error) {
	return ParseBlobRef(ref, l.defaultContainer)
}

func (l *LocalStorage) fullPath(ref BlobRef) (string, error) {
	rel := path.Join(ref.Container, ref.Blob)
	if ref.Container == "" || ref.Blob == "" || !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidBlobRef, ref.String())
	}
	return filepath.Join(l.basePath, filepath.FromSlash(rel)), nil
}

// Save writes data under basePath/container/blob
func (l *LocalStorage) Save(ref BlobRef, data []byte) error {
	p, err := l.fullPath(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating blob directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// Get reads a blob from local storage
func (l *LocalStorage) Get(ref BlobRef) ([]byte, error) {
	p, err := l.fullPath(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a blob from local storage
func (l *LocalStorage) Delete(ref BlobRef) error {
	p, err := l.fullPath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
