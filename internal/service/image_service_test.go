package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"damara/internal/config"
	"damara/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageService_Upload(t *testing.T) {
	dir := t.TempDir()
	svc := NewImageService(&config.Config{UploadDir: dir, UploadMaxMB: 1})

	url, err := svc.Upload(context.Background(), UploadImageInput{Filename: "chips.png", Content: pngBytes(t)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, ImageURLPrefix))
	assert.True(t, strings.HasSuffix(url, ".png"))

	_, err = os.Stat(filepath.Join(dir, "images", strings.TrimPrefix(url, ImageURLPrefix)))
	assert.NoError(t, err)
}

func TestImageService_Rejects(t *testing.T) {
	svc := NewImageService(&config.Config{UploadDir: t.TempDir(), UploadMaxMB: 1})
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadImageInput{})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Upload(ctx, UploadImageInput{Content: []byte("definitely not an image")})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Upload(ctx, UploadImageInput{Content: bytes.Repeat([]byte{0}, 2*1024*1024)})
	assertCode(t, err, models.CodeValidation)
}

func TestNewImageService_Defaults(t *testing.T) {
	svc := NewImageService(nil)
	assert.Equal(t, DefaultImageUploadDir, svc.UploadDir())
	assert.Equal(t, int64(DefaultImageMaxUploadSizeMB*1024*1024), svc.MaxUploadSizeBytes())
}
