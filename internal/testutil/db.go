// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"damara/internal/database"
	"damara/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory database with the full schema.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user whose password is "password123".
func CreateUser(t *testing.T, db *gorm.DB, studentID, nickname string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{
		Email:        studentID + "@campus.ac.kr",
		PasswordHash: string(hash),
		Nickname:     nickname,
		StudentID:    studentID,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreatePost inserts an open post by author with the given target size.
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, title string, minParticipants int, opts ...func(*models.Post)) *models.Post {
	t.Helper()
	p := &models.Post{
		AuthorID:        author.ID,
		Title:           title,
		Content:         title,
		Price:           3000,
		MinParticipants: minParticipants,
		PickupLocation:  "Student hall",
		Category:        models.CategoryFood,
		Status:          models.StatusOpen,
		Images:          []models.PostImage{{ImageURL: "/uploads/images/" + uuid.NewString() + ".png"}},
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}
