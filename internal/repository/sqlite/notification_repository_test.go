package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, username, email string) int64 {
	t.Helper()

	users := NewUserRepository(db)
	require.NoError(t, users.Init(context.Background()))
	id, err := users.Create(context.Background(), &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: "x",
	})
	require.NoError(t, err)
	return id
}

func newNotificationRepo(t *testing.T, db *sql.DB) *NotificationRepository {
	t.Helper()

	repo := NewNotificationRepository(db).(*NotificationRepository)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestNotificationRepository_CreateDefaultsUnread(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "alice", "alice@example.com")
	repo := newNotificationRepo(t, db)

	n := &domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationComment,
		Message: "You have a new comment on a task.",
		Link:    "/tasks/1",
	}
	id, err := repo.Create(context.Background(), n)
	require.NoError(t, err)
	assert.Positive(t, id)

	list, err := repo.ListRecent(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)
	assert.Equal(t, domain.NotificationComment, list[0].Type)
	assert.Equal(t, "/tasks/1", list[0].Link)
}

func TestNotificationRepository_CreateRejectsUnknownType(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "alice", "alice@example.com")
	repo := newNotificationRepo(t, db)

	_, err := repo.Create(context.Background(), &domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationType("mention"),
		Message: "nope",
	})
	require.Error(t, err)
}

func TestNotificationRepository_ListRecentNewestFirstAndBounded(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "alice", "alice@example.com")
	otherID := seedUser(t, db, "bob", "bob@example.com")
	repo := newNotificationRepo(t, db)

	for i := 0; i < 5; i++ {
		_, err := repo.Create(context.Background(), &domain.Notification{
			UserID:  userID,
			Type:    domain.NotificationAssignment,
			Message: "assigned",
		})
		require.NoError(t, err)
	}
	_, err := repo.Create(context.Background(), &domain.Notification{
		UserID:  otherID,
		Type:    domain.NotificationComment,
		Message: "for someone else",
	})
	require.NoError(t, err)

	list, err := repo.ListRecent(context.Background(), userID, 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	// newest first: ids descend since creation order is insertion order
	assert.Greater(t, list[0].ID, list[1].ID)
	assert.Greater(t, list[1].ID, list[2].ID)
	for _, n := range list {
		assert.Equal(t, userID, n.UserID)
	}
}

func TestNotificationRepository_MarkReadIdempotent(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "alice", "alice@example.com")
	repo := newNotificationRepo(t, db)

	n := &domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationComment,
		Message: "msg",
	}
	_, err := repo.Create(context.Background(), n)
	require.NoError(t, err)

	require.NoError(t, repo.MarkRead(context.Background(), n.ID))
	require.NoError(t, repo.MarkRead(context.Background(), n.ID))

	list, err := repo.ListRecent(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)
}

func TestNotificationRepository_MarkReadUnknownIDIsNoop(t *testing.T) {
	db := openTestDB(t)
	seedUser(t, db, "alice", "alice@example.com")
	repo := newNotificationRepo(t, db)

	assert.NoError(t, repo.MarkRead(context.Background(), 9999))
}

func TestNotificationRepository_CountUnread(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "alice", "alice@example.com")
	repo := newNotificationRepo(t, db)

	first := &domain.Notification{UserID: userID, Type: domain.NotificationComment, Message: "a"}
	second := &domain.Notification{UserID: userID, Type: domain.NotificationAssignment, Message: "b"}
	_, err := repo.Create(context.Background(), first)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), second)
	require.NoError(t, err)

	require.NoError(t, repo.MarkRead(context.Background(), first.ID))

	count, err := repo.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
