// internal/infrastructure/storage/local.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
)

// LocalStore keeps uploaded images on the local filesystem under a
// per-category directory. Returned paths are relative to the storage root.
type LocalStore struct {
	root       string
	publicPath string
	category   string
	maxSize    int64
	allowed    map[string]bool
}

// NewLocalStore creates a store writing into category below the configured
// storage root.
func NewLocalStore(cfg *config.Config, category string) *LocalStore {
	allowed := make(map[string]bool, len(cfg.Upload.AllowedExtensions))
	for _, ext := range cfg.Upload.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &LocalStore{
		root:       cfg.External.Storage.LocalPath,
		publicPath: cfg.External.Storage.PublicPath,
		category:   category,
		maxSize:    cfg.Upload.MaxSize,
		allowed:    allowed,
	}
}

// Validate checks the file name extension and size
func (s *LocalStore) Validate(filename string, size int64) error {
	if filename == "" {
		return apperror.InvalidField("image", "la imagen es obligatoria")
	}
	if size <= 0 {
		return apperror.InvalidField("image", "el archivo está vacío")
	}
	if s.maxSize > 0 && size > s.maxSize {
		return apperror.InvalidField("image", fmt.Sprintf("el archivo supera el máximo de %d bytes", s.maxSize))
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !s.allowed[ext] {
		return apperror.InvalidField("image", fmt.Sprintf("extensión no permitida: %q", ext))
	}
	return nil
}

// Save writes data under a unique name and returns its relative path
func (s *LocalStore) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.Validate(filename, int64(len(data))); err != nil {
		return "", err
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", apperror.InvalidField("image", "el archivo no es una imagen válida")
	}

	relativePath := filepath.Join(s.category, s.generateUniqueFilename(filename))
	fullPath := filepath.Join(s.root, relativePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filepath.ToSlash(relativePath), nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Open returns the full filesystem path of a stored file
func (s *LocalStore) Open(path string) (string, error) {
	return s.resolve(path)
}

// URL returns the public URL of a stored file
func (s *LocalStore) URL(path string) string {
	return strings.TrimRight(s.publicPath, "/") + "/" + strings.TrimLeft(path, "/")
}

func (s *LocalStore) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	fullPath := filepath.Join(s.root, clean)
	if !strings.HasPrefix(fullPath, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", apperror.InvalidField("path", "ruta inválida")
	}
	return fullPath, nil
}

func (s *LocalStore) generateUniqueFilename(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%s_%s%s", time.Now().UTC().Format("20060102"), uuid.NewString(), ext)
}
