package server

import (
	"io"
	"mime/multipart"

	"damara/internal/models"
	"damara/internal/service"
	"damara/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /upload/image with one "image" file.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}
	url, err := s.storeUpload(c, file)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url, "imageUrl": url})
}

// UploadImages handles POST /upload/images with up to five "images" files.
func (s *Server) UploadImages(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "No files uploaded")
	}
	files := form.File["images"]
	if len(files) == 0 {
		return badRequest(c, "No files uploaded")
	}
	if len(files) > validation.MaxPostImages {
		return badRequest(c, "Too many files (max 5)")
	}

	urls := make([]string, 0, len(files))
	for _, f := range files {
		url, err := s.storeUpload(c, f)
		if err != nil {
			return respondError(c, err)
		}
		urls = append(urls, url)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"imageUrls": urls})
}

func (s *Server) storeUpload(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}
	return s.imageService.Upload(c.UserContext(), service.UploadImageInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
}
