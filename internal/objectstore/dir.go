package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

// Dir stores objects as files under Root/<bucket>/<key>. It keeps no
// object metadata.
type Dir struct {
	Root string
}

func (d Dir) path(bucket, key string) (string, error) {
	clean := filepath.FromSlash(key)
	if strings.Contains(key, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("objectstore: invalid key %q", key)
	}
	return filepath.Join(d.Root, bucket, clean), nil
}

func (d Dir) Put(_ context.Context, bucket, key string, body []byte, _ string, _ map[string]string) error {
	p, err := d.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("objectstore: create directory: %w", err)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("objectstore: %s/%s: %w", bucket, key, domain.ErrConflict)
		}
		return fmt.Errorf("objectstore: create %s: %w", p, err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("objectstore: write %s: %w", p, err)
	}
	return f.Close()
}

func (d Dir) List(_ context.Context, bucket, prefix string) ([]Object, error) {
	base := filepath.Join(d.Root, bucket)
	var out []Object
	err := filepath.WalkDir(base, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == base {
				return fs.SkipAll
			}
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{Key: key, Size: info.Size(), LastModified: info.ModTime().UTC()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: list %s: %w", base, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (d Dir) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	p, err := d.path(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("objectstore: %s/%s: %w", bucket, key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("objectstore: open %s: %w", p, err)
	}
	return f, nil
}
