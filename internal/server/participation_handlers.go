package server

import (
	"github.com/gofiber/fiber/v2"
)

// JoinPost handles POST /api/posts/:id/participate
func (s *Server) JoinPost(c *fiber.Ctx) error {
	var req userIDRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	userID, err := actingUser(c, req.UserID)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.Join(c.UserContext(), c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":         "Joined successfully",
		"post":            post,
		"currentQuantity": post.CurrentQuantity,
	})
}

// LeavePost handles DELETE /api/posts/:id/participate/:userId
func (s *Server) LeavePost(c *fiber.Ctx) error {
	userID, err := actingUser(c, c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.postService.Leave(c.UserContext(), c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":         "Participation cancelled",
		"post":            post,
		"currentQuantity": post.CurrentQuantity,
	})
}

// CheckParticipation handles GET /api/posts/:id/participate/:userId
func (s *Server) CheckParticipation(c *fiber.Ctx) error {
	ok, err := s.postService.IsParticipant(c.UserContext(), c.Params("id"), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"isParticipant": ok})
}

// GetParticipants handles GET /api/posts/:id/participants
func (s *Server) GetParticipants(c *fiber.Ctx) error {
	participants, err := s.postService.Participants(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(participants)
}

// GetParticipatedPosts handles GET /api/posts/user/:userId/participated
func (s *Server) GetParticipatedPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ParticipatedPosts(c.UserContext(), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// AddFavorite handles POST /api/posts/:id/favorite
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	var req userIDRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	userID, err := actingUser(c, req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.postService.AddFavorite(c.UserContext(), c.Params("id"), userID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"isFavorite": true})
}

// RemoveFavorite handles DELETE /api/posts/:id/favorite/:userId
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	userID, err := actingUser(c, c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	if err := s.postService.RemoveFavorite(c.UserContext(), c.Params("id"), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"isFavorite": false})
}

// CheckFavorite handles GET /api/posts/:id/favorite/:userId
func (s *Server) CheckFavorite(c *fiber.Ctx) error {
	ok, err := s.postService.IsFavorite(c.UserContext(), c.Params("id"), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"isFavorite": ok})
}

// GetFavoritePosts handles GET /api/posts/user/:userId/favorites and
// GET /api/users/:userId/favorites
func (s *Server) GetFavoritePosts(c *fiber.Ctx) error {
	posts, err := s.postService.FavoritePosts(c.UserContext(), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}
