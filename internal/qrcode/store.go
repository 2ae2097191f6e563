// Package qrcode renders QR codes for short links and keeps them on disk.
package qrcode

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goqrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 256

type Store struct {
	dir  string
	size int
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, size: defaultSize}
}

// Render encodes content as a PNG image.
func (s *Store) Render(content string) ([]byte, error) {
	png, err := goqrcode.Encode(content, goqrcode.Medium, s.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// Path is where the asset of code is stored.
func (s *Store) Path(code string) string {
	return filepath.Join(s.dir, code+".png")
}

// Save renders content and writes it to the asset path of code.
func (s *Store) Save(code, content string) (string, []byte, error) {
	png, err := s.Render(content)
	if err != nil {
		return "", nil, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create upload dir: %w", err)
	}

	path := s.Path(code)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", nil, fmt.Errorf("write qr code: %w", err)
	}

	return path, png, nil
}

func (s *Store) Load(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Remove deletes the asset at path. A missing file is not an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
