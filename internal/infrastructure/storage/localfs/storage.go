// Package localfs keeps one JSON file per record under a directory per
// category.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

const recordExt = ".json"

type Storage struct {
	basePath string
}

func New(basePath string, categories ...domain.Category) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/secure_storage"
	}
	if len(categories) == 0 {
		categories = domain.StorableCategories
	}
	for _, category := range categories {
		if err := os.MkdirAll(filepath.Join(basePath, string(category)), 0o700); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Name() string {
	return "local"
}

// Put writes to a temp file in the target directory and renames it into
// place, so readers never see a partial record.
func (s *Storage) Put(_ context.Context, category domain.Category, id string, data []byte) error {
	path, err := s.path(category, id)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create category dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+id+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

func (s *Storage) Get(_ context.Context, category domain.Category, id string) ([]byte, error) {
	path, err := s.path(category, id)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrRecordNotFound, "read file", err)
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return raw, nil
}

func (s *Storage) Delete(_ context.Context, category domain.Category, id string) error {
	path, err := s.path(category, id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.WrapError(domain.ErrRecordNotFound, "remove file", err)
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *Storage) List(_ context.Context, category domain.Category) ([]domain.ObjectInfo, error) {
	dir := filepath.Join(s.basePath, string(category))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list dir: %w", err)
	}

	out := make([]domain.ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, domain.ObjectInfo{
			ID:        strings.TrimSuffix(name, recordExt),
			SizeBytes: info.Size(),
		})
	}
	return out, nil
}

func (s *Storage) path(category domain.Category, id string) (string, error) {
	if !category.Storable() {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve path", fmt.Errorf("category %q", category))
	}
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve path", fmt.Errorf("storage id %q", id))
	}
	return filepath.Join(s.basePath, string(category), id+recordExt), nil
}
