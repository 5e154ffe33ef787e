package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"scanndine/apperr"

	"github.com/google/uuid"
)

const maxImageSize = 5 << 20

var allowedImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// ImageStore keeps uploaded menu images on local disk and serves them under
// /uploads.
type ImageStore struct {
	dir     string
	baseURL string
}

func NewImageStore(dir, publicBaseURL string) *ImageStore {
	return &ImageStore{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (s *ImageStore) Dir() string { return s.dir }

// Save validates and stores an uploaded image and returns its public URL.
func (s *ImageStore) Save(file *multipart.FileHeader) (string, error) {
	if file.Size > maxImageSize {
		return "", apperr.Validation("image size exceeds 5MB limit")
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return "", apperr.Validation("invalid file type, only JPG/JPEG/PNG/WEBP allowed")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", apperr.Upstream("create upload directory", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", apperr.Upstream("open upload", err)
	}
	defer src.Close()

	name := "item-" + uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", apperr.Upstream("save image", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", apperr.Upstream("save image", err)
	}
	return fmt.Sprintf("%s/uploads/%s", s.baseURL, name), nil
}

// Delete removes the file behind a URL returned by Save. URLs that do not
// point into the store are ignored.
func (s *ImageStore) Delete(url string) error {
	prefix := s.baseURL + "/uploads/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, prefix))
	if name == "." || name == "/" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return apperr.Upstream("delete image", err)
	}
	return nil
}
