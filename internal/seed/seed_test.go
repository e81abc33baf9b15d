package seed

import (
	"context"
	"testing"

	"damara/internal/models"
	"damara/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedCreatesUsersAndPosts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	s := NewSeeder(db, Options{Users: 4, PostsPerUser: 2, RandSeed: 7, HashCost: bcrypt.MinCost})

	res, err := s.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.UsersCreated)
	assert.Equal(t, 8, res.PostsCreated)

	var posts []models.Post
	require.NoError(t, db.Preload("Images").Find(&posts).Error)
	require.Len(t, posts, 8)

	seen := map[models.Category]bool{}
	for _, p := range posts {
		seen[p.Category] = true
		assert.Equal(t, models.StatusOpen, p.Status)
		assert.NotEmpty(t, p.Images)
		assert.LessOrEqual(t, p.CurrentQuantity, p.MinParticipants)
		assert.True(t, p.Deadline.After(s.now()))
	}
	assert.Len(t, seen, 7)

	var joins int64
	require.NoError(t, db.Model(&models.Participation{}).Count(&joins).Error)
	assert.Equal(t, int64(res.Participations), joins)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	opts := Options{Users: 3, PostsPerUser: 1, RandSeed: 1, HashCost: bcrypt.MinCost}

	_, err := NewSeeder(db, opts).Seed(context.Background())
	require.NoError(t, err)

	res, err := NewSeeder(db, opts).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.UsersCreated)
	assert.Equal(t, 3, res.UsersExisting)
	assert.Equal(t, 0, res.PostsCreated)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(3), users)
}

func TestSeededUsersCanLogIn(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	_, err := NewSeeder(db, Options{Users: 1, RandSeed: 3, HashCost: bcrypt.MinCost}).Seed(context.Background())
	require.NoError(t, err)

	var u models.User
	require.NoError(t, db.Where("student_id = ?", StudentID(0)).First(&u).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(DemoPassword)))
	assert.Equal(t, "20240001", u.StudentID)
}
