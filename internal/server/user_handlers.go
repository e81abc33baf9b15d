package server

import (
	"damara/internal/models"
	"damara/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	User *struct {
		Email string `json:"email"`
		// The web client sends the plain password under this name.
		PasswordHash string `json:"passwordHash"`
		Password     string `json:"password"`
		Nickname     string `json:"nickname"`
		StudentID    string `json:"studentId"`
		Department   string `json:"department"`
		AvatarURL    string `json:"avatarUrl"`
	} `json:"user"`
}

type loginRequest struct {
	StudentID string `json:"studentId"`
	Password  string `json:"password"`
}

type updateUserRequest struct {
	User *struct {
		Nickname   *string `json:"nickname"`
		Department *string `json:"department"`
		AvatarURL  *string `json:"avatarUrl"`
	} `json:"user"`
}

// loginResponse is the user profile with the token alongside, so clients
// reading the profile at the top level keep working.
type loginResponse struct {
	*models.User
	Token string `json:"token"`
}

// Register handles POST /api/users
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil || req.User == nil {
		return badRequest(c, "Invalid request body")
	}
	u := req.User
	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Email:      u.Email,
		Password:   firstNonEmpty(u.Password, u.PasswordHash),
		Nickname:   u.Nickname,
		StudentID:  u.StudentID,
		Department: u.Department,
		AvatarURL:  u.AvatarURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles POST /api/users/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	user, token, err := s.userService.Login(c.UserContext(), req.StudentID, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(loginResponse{User: user, Token: token})
}

// GetUsers handles GET /api/users
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageLimit)
	users, err := s.userService.ListUsers(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateUser handles PUT /api/users/:id
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil || req.User == nil {
		return badRequest(c, "Invalid request body")
	}
	user, err := s.userService.UpdateUser(c.UserContext(), service.UpdateUserInput{
		ActorID:    tokenUser(c),
		UserID:     c.Params("id"),
		Nickname:   req.User.Nickname,
		Department: req.User.Department,
		AvatarURL:  req.User.AvatarURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser handles DELETE /api/users/:id
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	if err := s.userService.DeleteUser(c.UserContext(), tokenUser(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}
