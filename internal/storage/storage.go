// Package storage persists received files.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Encoding string

const (
	// EncodingRaw writes data as given.
	EncodingRaw Encoding = "raw"
	// EncodingBase64 treats data as base64 text and writes the decoded bytes.
	EncodingBase64 Encoding = "base64-decoded"
)

var (
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrInvalidPath     = errors.New("invalid path")
)

// Store is where completed transfers end up.
type Store interface {
	Write(ctx context.Context, path string, data []byte, encoding Encoding) error
}

// Disk stores files under a root directory. Paths are relative to the
// root and may not escape it. Writes go through a temp file and a rename,
// so readers never see a half-written file.
type Disk struct {
	root string
	perm os.FileMode
}

func NewDisk(root string) *Disk {
	return &Disk{root: root, perm: 0o644}
}

func (d *Disk) Root() string {
	return d.root
}

// Resolve returns the on-disk location of path.
func (d *Disk) Resolve(path string) (string, error) {
	if !filepath.IsLocal(path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return filepath.Join(d.root, path), nil
}

func (d *Disk) Write(ctx context.Context, path string, data []byte, encoding Encoding) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch encoding {
	case EncodingRaw:
	case EncodingBase64:
		decoded, err := base64.StdEncoding.DecodeString(string(data))
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		data = decoded
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}

	full, err := d.Resolve(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(full)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), d.perm); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

func (d *Disk) Read(path string) ([]byte, error) {
	full, err := d.Resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func HashFile(r io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

var _ Store = (*Disk)(nil)
