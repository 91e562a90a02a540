// Package media decodes uploaded recipe images and avatars and stores them on disk.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"
	"path/filepath"
	"strings"

	"foodgram-api/apperrors"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	recipesDir   = "recipes"
	avatarsDir   = "avatars"
	maxImageSize = 10 << 20
)

// Image is a verified, decoded upload.
type Image struct {
	Data   []byte
	Format string // png, jpeg, gif or webp
	Width  int
	Height int
}

// Ext returns the file extension used when storing the image.
func (img *Image) Ext() string {
	if img.Format == "jpeg" {
		return "jpg"
	}
	return img.Format
}

// Decode parses a data URI of the form data:image/<type>;base64,<payload> and verifies the
// payload is an image the server can read.
func Decode(payload string) (*Image, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, apperrors.Validation("image", "image is required")
	}

	header, encoded, ok := strings.Cut(payload, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, apperrors.Validation("image", "image must be a base64 data URI")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.Validation("image", "image payload is not valid base64")
	}
	if len(data) > maxImageSize {
		return nil, apperrors.Validationf("image", "image exceeds %d bytes", maxImageSize)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Validation("image", "image payload is not a decodable image")
	}

	return &Image{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Store keeps images under root and hands out references prefixed with baseURL.
type Store struct {
	root    string
	baseURL string
}

// NewStore creates root/recipes and root/avatars if needed.
func NewStore(root, baseURL string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("media root cannot be empty")
	}
	for _, dir := range []string{recipesDir, avatarsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create media directory: %w", err)
		}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Store{root: root, baseURL: baseURL}, nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) Decode(payload string) (*Image, error) {
	return Decode(payload)
}

// Save writes a recipe image under a fresh name and returns its public reference.
func (s *Store) Save(img *Image) (string, error) {
	return s.save(recipesDir, img)
}

// SaveAvatar is Save for user avatars, which live under root/avatars.
func (s *Store) SaveAvatar(img *Image) (string, error) {
	return s.save(avatarsDir, img)
}

func (s *Store) save(dir string, img *Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("image data cannot be empty")
	}

	name := path(dir, uuid.NewString()+"."+img.Ext())
	if err := os.WriteFile(filepath.Join(s.root, filepath.FromSlash(name)), img.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return s.baseURL + name, nil
}

// Remove deletes the file behind ref. Unknown or foreign references are ignored.
func (s *Store) Remove(ref string) error {
	name, ok := strings.CutPrefix(ref, s.baseURL)
	if !ok || name == "" {
		return nil
	}

	full := filepath.Join(s.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil
	}

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

func path(parts ...string) string {
	return strings.Join(parts, "/")
}
