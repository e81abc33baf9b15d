package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"damara/internal/config"
	"damara/internal/models"
	"damara/internal/observability"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageUploadDir       = "./uploads"
	DefaultImageMaxUploadSizeMB = 10
	// ImageURLPrefix is the public path uploaded images are served under.
	ImageURLPrefix = "/uploads/images/"
)

var formatExt = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService stores uploaded post images on local disk. Files are kept as
// sent; only the header is decoded to prove the upload is an image.
type ImageService struct {
	uploadDir          string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	uploadDir := DefaultImageUploadDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil {
		if cfg.UploadDir != "" {
			uploadDir = cfg.UploadDir
		}
		if cfg.UploadMaxMB > 0 {
			maxUploadSizeMB = cfg.UploadMaxMB
		}
	}
	return &ImageService{
		uploadDir:          uploadDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// UploadDir is the directory served under /uploads.
func (s *ImageService) UploadDir() string {
	return s.uploadDir
}

// MaxUploadSizeBytes is the per-file size limit.
func (s *ImageService) MaxUploadSizeBytes() int64 {
	return s.maxUploadSizeBytes
}

// Upload validates and stores one image and returns its public path.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	if !strings.HasPrefix(detected, "image/") {
		return "", models.NewValidationError("Invalid image type")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	ext, ok := formatExt[format]
	if !ok {
		return "", models.NewValidationError("Unsupported image format")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", models.NewValidationError("Invalid image dimensions")
	}

	dir := filepath.Join(s.uploadDir, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewInternalError(err)
	}
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(dir, name), in.Content, 0o644); err != nil {
		return "", models.NewInternalError(err)
	}

	observability.Logger.InfoContext(ctx, "image uploaded",
		"file", name, "format", format, "width", cfg.Width, "height", cfg.Height, "original", in.Filename)
	return ImageURLPrefix + name, nil
}
