package repository

import (
	"context"
	"testing"

	"damara/internal/models"
	"damara/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "20230001", "author")
	u2 := testutil.CreateUser(t, db, "20230002", "second")
	outsider := testutil.CreateUser(t, db, "20230003", "outsider")
	post := testutil.CreatePost(t, db, author, "Chips", 3)
	require.NoError(t, NewParticipationRepository(db).Join(ctx, post.ID, u2.ID))

	room, err := repo.GetOrCreateRoom(ctx, post.ID)
	require.NoError(t, err)
	again, err := repo.GetOrCreateRoom(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, again.ID, "one room per post")

	t.Run("ListRooms", func(t *testing.T) {
		for _, u := range []*models.User{author, u2} {
			rooms, err := repo.ListRooms(ctx, u.ID)
			require.NoError(t, err)
			assert.Len(t, rooms, 1)
		}
		rooms, err := repo.ListRooms(ctx, outsider.ID)
		require.NoError(t, err)
		assert.Empty(t, rooms)
	})

	t.Run("MessagesAndReadState", func(t *testing.T) {
		first := &models.Message{ChatRoomID: room.ID, SenderID: author.ID, Content: "when do we meet?"}
		require.NoError(t, repo.CreateMessage(ctx, first))
		assert.Equal(t, models.MessageTypeText, first.MessageType)
		require.NoError(t, repo.CreateMessage(ctx, &models.Message{ChatRoomID: room.ID, SenderID: author.ID, Content: "6pm"}))
		require.NoError(t, repo.CreateMessage(ctx, &models.Message{ChatRoomID: room.ID, SenderID: u2.ID, Content: "ok"}))

		msgs, err := repo.GetMessages(ctx, room.ID, 50, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 3)

		unread, err := repo.UnreadCount(ctx, room.ID, u2.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), unread)

		require.NoError(t, repo.MarkMessageRead(ctx, first.ID))
		unread, err = repo.UnreadCount(ctx, room.ID, u2.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), unread)

		n, err := repo.MarkAllRead(ctx, room.ID, u2.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.NoError(t, repo.DeleteMessage(ctx, first.ID))
		assert.Equal(t, 404, models.StatusFor(repo.DeleteMessage(ctx, first.ID)))
	})

	require.NoError(t, repo.DeleteRoom(ctx, room.ID))
	_, err = repo.GetRoom(ctx, room.ID)
	assert.Equal(t, 404, models.StatusFor(err))
}
