package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"damara/internal/middleware"
	"damara/internal/models"
	"damara/internal/repository"
	"damara/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long a login token stays valid.
const TokenTTL = 7 * 24 * time.Hour

var errInvalidCredentials = models.NewUnauthorizedError("Invalid student ID or password")

type UserService struct {
	userRepo  repository.UserRepository
	jwtSecret string
	now       func() time.Time
}

type RegisterInput struct {
	Email      string
	Password   string
	Nickname   string
	StudentID  string
	Department string
	AvatarURL  string
}

type UpdateUserInput struct {
	ActorID    string
	UserID     string
	Nickname   *string
	Department *string
	AvatarURL  *string
}

func NewUserService(userRepo repository.UserRepository, jwtSecret string) *UserService {
	return &UserService{userRepo: userRepo, jwtSecret: jwtSecret, now: time.Now}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Nickname = strings.TrimSpace(in.Nickname)

	if err := validation.ValidateRegistration(validation.Registration{
		Email:      in.Email,
		Password:   in.Password,
		Nickname:   in.Nickname,
		StudentID:  in.StudentID,
		Department: in.Department,
	}); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictErrorWithCode(models.CodeEmailExists, "Email is already registered")
	}
	existing, err = s.userRepo.GetByStudentID(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictErrorWithCode(models.CodeStudentIDExists, "Student ID is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Nickname:     in.Nickname,
		StudentID:    in.StudentID,
		Department:   strings.TrimSpace(in.Department),
		AvatarURL:    strings.TrimSpace(in.AvatarURL),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the student id and password and returns the user with a
// signed token.
func (s *UserService) Login(ctx context.Context, studentID, password string) (*models.User, string, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" || password == "" {
		return nil, "", models.NewValidationError("studentId and password are required")
	}
	user, err := s.userRepo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", errInvalidCredentials
	}

	token, err := s.GenerateToken(user.ID)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return user, token, nil
}

// GenerateToken signs an HS256 token whose subject is the user id.
func (s *UserService) GenerateToken(userID string) (string, error) {
	if s.jwtSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    middleware.TokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) UpdateUser(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	if in.ActorID != "" && in.ActorID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own profile")
	}
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if in.Nickname != nil {
		if err := validation.ValidateNickname(*in.Nickname); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Nickname = strings.TrimSpace(*in.Nickname)
	}
	if in.Department != nil {
		user.Department = strings.TrimSpace(*in.Department)
	}
	if in.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID != "" && actorID != userID {
		return models.NewForbiddenError("You can only delete your own account")
	}
	return s.userRepo.Delete(ctx, userID)
}
