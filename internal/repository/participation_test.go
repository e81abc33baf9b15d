package repository

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"damara/internal/models"
	"damara/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func TestParticipationRepository_JoinSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewParticipationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "participations"`) + `.*ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "current_quantity"=current_quantity + 1 WHERE`) + `.*status = .*current_quantity < min_participants`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Join(context.Background(), "p1", "u2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepository_JoinFullRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewParticipationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "participations"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "current_quantity"=current_quantity + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Join(context.Background(), "p1", "u3")
	assert.ErrorIs(t, err, ErrPostNotJoinable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepository_JoinDuplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewParticipationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "participations"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Join(context.Background(), "p1", "u2")
	assert.ErrorIs(t, err, ErrAlreadyParticipant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepository_LeaveSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewParticipationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "participations" WHERE post_id = $1 AND user_id = $2`)).
		WithArgs("p1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "current_quantity"=CASE WHEN current_quantity > 0 THEN current_quantity - 1 ELSE 0 END`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Leave(context.Background(), "p1", "u2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepository_Lifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewParticipationRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "20230001", "author")
	u2 := testutil.CreateUser(t, db, "20230002", "second")
	u3 := testutil.CreateUser(t, db, "20230003", "third")
	post := testutil.CreatePost(t, db, author, "Honey Butter Chips", 5, func(p *models.Post) {
		p.CurrentQuantity = 4
	})

	require.NoError(t, repo.Join(ctx, post.ID, u2.ID))
	joined, err := repo.IsParticipant(ctx, post.ID, u2.ID)
	require.NoError(t, err)
	assert.True(t, joined)

	got, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.CurrentQuantity)

	assert.ErrorIs(t, repo.Join(ctx, post.ID, u2.ID), ErrAlreadyParticipant)
	assert.ErrorIs(t, repo.Join(ctx, post.ID, u3.ID), ErrPostNotJoinable)
	stillOut, err := repo.IsParticipant(ctx, post.ID, u3.ID)
	require.NoError(t, err)
	assert.False(t, stillOut, "failed join must not leave a participation behind")

	participants, err := repo.Participants(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "second", participants[0].User.Nickname)

	joinedPosts, err := repo.ParticipatedPosts(ctx, u2.ID)
	require.NoError(t, err)
	require.Len(t, joinedPosts, 1)
	assert.Equal(t, post.ID, joinedPosts[0].ID)

	require.NoError(t, repo.Leave(ctx, post.ID, u2.ID))
	assert.ErrorIs(t, repo.Leave(ctx, post.ID, u2.ID), ErrNotParticipant)

	got, err = posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentQuantity)
}

func TestParticipationRepository_LeaveFloorsAtZero(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewParticipationRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "20230001", "author")
	u2 := testutil.CreateUser(t, db, "20230002", "second")
	post := testutil.CreatePost(t, db, author, "Notebook", 3)

	// A participation row without a counted seat, as left behind by manual edits.
	require.NoError(t, db.Create(&models.Participation{PostID: post.ID, UserID: u2.ID}).Error)
	require.NoError(t, repo.Leave(ctx, post.ID, u2.ID))

	var stored models.Post
	require.NoError(t, db.First(&stored, "id = ?", post.ID).Error)
	assert.Equal(t, 0, stored.CurrentQuantity)
}

func TestParticipationRepository_ClosedPostRejectsJoin(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewParticipationRepository(db)

	author := testutil.CreateUser(t, db, "20230001", "author")
	u2 := testutil.CreateUser(t, db, "20230002", "second")
	post := testutil.CreatePost(t, db, author, "Shampoo", 3, func(p *models.Post) {
		p.Status = models.StatusClosed
	})

	assert.ErrorIs(t, repo.Join(context.Background(), post.ID, u2.ID), ErrPostNotJoinable)
}

func TestParticipationRepository_ConcurrentJoinsNeverOverfill(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewParticipationRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "20230001", "author")
	post := testutil.CreatePost(t, db, author, "Detergent", 2)

	var users []*models.User
	for _, sid := range []string{"20230011", "20230012", "20230013", "20230014"} {
		users = append(users, testutil.CreateUser(t, db, sid, "joiner"+sid))
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = repo.Join(ctx, post.ID, id)
		}(u.ID)
	}
	wg.Wait()

	var stored models.Post
	require.NoError(t, db.First(&stored, "id = ?", post.ID).Error)
	assert.Equal(t, 2, stored.CurrentQuantity)

	var rows int64
	require.NoError(t, db.Model(&models.Participation{}).Where("post_id = ?", post.ID).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
}
