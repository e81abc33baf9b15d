package server

import (
	"damara/internal/models"
	"damara/internal/repository"
	"damara/internal/service"
	"damara/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type postFields struct {
	AuthorID        string   `json:"authorId"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Price           int64    `json:"price"`
	MinParticipants int      `json:"minParticipants"`
	Deadline        string   `json:"deadline"`
	PickupLocation  string   `json:"pickupLocation"`
	Images          []string `json:"images"`
	Category        string   `json:"category"`
}

type createPostRequest struct {
	Post *postFields `json:"post"`
}

type updatePostFields struct {
	AuthorID       string   `json:"authorId"`
	Title          *string  `json:"title"`
	Content        *string  `json:"content"`
	Price          *int64   `json:"price"`
	Deadline       *string  `json:"deadline"`
	PickupLocation *string  `json:"pickupLocation"`
	Category       *string  `json:"category"`
	Images         []string `json:"images"`
}

// updatePostRequest accepts the fields either flat or wrapped in "post".
type updatePostRequest struct {
	updatePostFields
	Post *updatePostFields `json:"post"`
}

type statusRequest struct {
	Status   string `json:"status"`
	AuthorID string `json:"authorId"`
}

type userIDRequest struct {
	UserID string `json:"userId"`
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageLimit)
	posts, err := s.postService.ListPosts(c.UserContext(), repository.ListFilter{
		Limit:    page.Limit,
		Offset:   page.Offset,
		Category: models.Category(c.Query("category")),
		Status:   models.Status(c.Query("status")),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// GetPostsByStudent handles GET /api/posts/student/:studentId
func (s *Server) GetPostsByStudent(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageLimit)
	posts, err := s.postService.ListByStudentID(c.UserContext(), c.Params("studentId"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil || req.Post == nil {
		return badRequest(c, "Invalid request body")
	}
	in := req.Post

	authorID, err := actingUser(c, in.AuthorID)
	if err != nil {
		return respondError(c, err)
	}
	deadline, err := parseDeadline(in.Deadline)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), validation.PostDraft{
		AuthorID:        authorID,
		Title:           in.Title,
		Content:         in.Content,
		Price:           in.Price,
		MinParticipants: in.MinParticipants,
		Deadline:        deadline,
		PickupLocation:  in.PickupLocation,
		Images:          in.Images,
		Category:        models.Category(in.Category),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var req updatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	fields := req.updatePostFields
	if req.Post != nil {
		fields = *req.Post
	}

	actorID, err := actingUser(c, firstNonEmpty(fields.AuthorID, c.Query("authorId")))
	if err != nil {
		return respondError(c, err)
	}

	in := service.UpdatePostInput{
		ActorID:        actorID,
		PostID:         c.Params("id"),
		Title:          fields.Title,
		Content:        fields.Content,
		Price:          fields.Price,
		PickupLocation: fields.PickupLocation,
		Images:         fields.Images,
	}
	if fields.Deadline != nil {
		deadline, err := parseDeadline(*fields.Deadline)
		if err != nil {
			return respondError(c, err)
		}
		in.Deadline = &deadline
	}
	if fields.Category != nil {
		cat := models.Category(*fields.Category)
		in.Category = &cat
	}

	post, err := s.postService.UpdatePost(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	actorID, err := actingUser(c, c.Query("authorId"))
	if err != nil {
		return respondError(c, err)
	}
	if err := s.postService.DeletePost(c.UserContext(), c.Params("id"), actorID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// ChangePostStatus handles PATCH /api/posts/:id/status
func (s *Server) ChangePostStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	actorID, err := actingUser(c, req.AuthorID)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.ChangeStatus(c.UserContext(), service.ChangeStatusInput{
		ActorID: actorID,
		PostID:  c.Params("id"),
		Status:  req.Status,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
