// Package seed fills a database with demo users and group-buy posts for
// local development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"damara/internal/models"
	"damara/internal/observability"
	"damara/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

var pickupSpots = []string{
	"Student hall entrance",
	"Main library lobby",
	"Engineering building 1F",
	"Dormitory A gate",
	"Campus convenience store",
	"Front gate bus stop",
}

var departments = []string{
	"Computer Science", "Business", "Design", "Mechanical Engineering", "Economics", "Biology",
}

// Options controls how much data Seed creates.
type Options struct {
	Users        int
	PostsPerUser int
	// RandSeed makes the generated content repeatable when non-zero.
	RandSeed int64
	// HashCost is the bcrypt cost of the demo password.
	HashCost int
}

// Result counts what a run created.
type Result struct {
	UsersCreated   int
	UsersExisting  int
	PostsCreated   int
	Participations int
}

// Seeder creates demo data. Users are keyed by student id, so running it
// again only adds what is missing.
type Seeder struct {
	db    *gorm.DB
	opts  Options
	posts repository.PostRepository
	joins repository.ParticipationRepository
	faker *gofakeit.Faker
	now   func() time.Time
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	return &Seeder{
		db:    db,
		opts:  opts,
		posts: repository.NewPostRepository(db),
		joins: repository.NewParticipationRepository(db),
		faker: gofakeit.New(seed),
		now:   time.Now,
	}
}

// StudentID is the id of the i-th demo user.
func StudentID(i int) string {
	return fmt.Sprintf("2024%04d", i+1)
}

// Seed creates opts.Users users, gives each new user opts.PostsPerUser
// posts spread over every category, and lets users join each other's posts.
func (s *Seeder) Seed(ctx context.Context) (Result, error) {
	var res Result
	opts := s.opts
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), opts.HashCost)
	if err != nil {
		return res, fmt.Errorf("hash demo password: %w", err)
	}

	users := make([]*models.User, 0, opts.Users)
	var fresh []*models.User
	for i := 0; i < opts.Users; i++ {
		u, created, err := s.ensureUser(ctx, StudentID(i), string(hash))
		if err != nil {
			return res, err
		}
		users = append(users, u)
		if created {
			fresh = append(fresh, u)
			res.UsersCreated++
		} else {
			res.UsersExisting++
		}
	}

	categories := append(append([]models.Category(nil), models.Categories...), models.CategoryEtc)
	var posts []*models.Post
	for _, u := range fresh {
		for j := 0; j < opts.PostsPerUser; j++ {
			p := s.buildPost(u, categories[res.PostsCreated%len(categories)])
			if err := s.posts.Create(ctx, p); err != nil {
				return res, fmt.Errorf("create post for %s: %w", u.StudentID, err)
			}
			posts = append(posts, p)
			res.PostsCreated++
		}
	}

	for _, p := range posts {
		n, err := s.fillPost(ctx, p, users)
		if err != nil {
			return res, err
		}
		res.Participations += n
	}

	observability.Logger.InfoContext(ctx, "seed complete",
		"users_created", res.UsersCreated,
		"users_existing", res.UsersExisting,
		"posts_created", res.PostsCreated,
		"participations", res.Participations)
	return res, nil
}

func (s *Seeder) ensureUser(ctx context.Context, studentID, hash string) (*models.User, bool, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("student_id = ?", studentID).First(&u).Error
	if err == nil {
		return &u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup %s: %w", studentID, err)
	}

	u = models.User{
		Email:        fmt.Sprintf("%s@campus.ac.kr", studentID),
		PasswordHash: hash,
		Nickname:     s.faker.Username(),
		StudentID:    studentID,
		Department:   departments[s.faker.Number(0, len(departments)-1)],
		AvatarURL:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", studentID),
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, false, fmt.Errorf("create user %s: %w", studentID, err)
	}
	return &u, true, nil
}

func (s *Seeder) buildPost(author *models.User, category models.Category) *models.Post {
	title := fmt.Sprintf("%s %s", s.faker.Adjective(), s.faker.Noun())
	images := make([]models.PostImage, s.faker.Number(1, 3))
	for i := range images {
		images[i].ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.faker.UUID())
	}
	return &models.Post{
		AuthorID:        author.ID,
		Title:           title,
		Content:         fmt.Sprintf("%s %s", title, s.faker.Sentence(12)),
		Price:           int64(s.faker.Number(10, 500)) * 100,
		MinParticipants: s.faker.Number(2, 8),
		Deadline:        s.now().Add(time.Duration(s.faker.Number(1, 14)) * 24 * time.Hour),
		PickupLocation:  pickupSpots[s.faker.Number(0, len(pickupSpots)-1)],
		Images:          images,
		Category:        category,
		Status:          models.StatusOpen,
	}
}

// fillPost lets a random subset of users join p, stopping short of full
// for most posts.
func (s *Seeder) fillPost(ctx context.Context, p *models.Post, users []*models.User) (int, error) {
	want := s.faker.Number(0, p.MinParticipants)
	joined := 0
	order := indexes(len(users))
	s.faker.ShuffleInts(order)
	for _, i := range order {
		if joined >= want {
			break
		}
		u := users[i]
		if u.ID == p.AuthorID {
			continue
		}
		err := s.joins.Join(ctx, p.ID, u.ID)
		if errors.Is(err, repository.ErrPostNotJoinable) {
			break
		}
		if err != nil && !errors.Is(err, repository.ErrAlreadyParticipant) {
			return joined, fmt.Errorf("join %s to %s: %w", u.StudentID, p.ID, err)
		}
		if err == nil {
			joined++
		}
	}
	return joined, nil
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
