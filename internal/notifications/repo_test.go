package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sportshub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
)

func TestRepositoryMarkReadAndCleanup(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	old := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	readOld := models.Notification{ID: uuid.New(), UserID: userID, Type: enums.NotificationTypePurchase, Title: "a", Message: "a", CreatedAt: old}
	unreadOld := models.Notification{ID: uuid.New(), UserID: userID, Type: enums.NotificationTypeRefund, Title: "b", Message: "b", CreatedAt: old}
	require.NoError(t, repo.Create(ctx, &readOld))
	require.NoError(t, repo.Create(ctx, &unreadOld))

	mark, err := repo.MarkRead(ctx, userID, readOld.ID, old.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.True(t, mark.Updated)

	mark, err = repo.MarkRead(ctx, uuid.New(), unreadOld.ID, old)
	require.NoError(t, err)
	assert.False(t, mark.Found)

	deleted, err := repo.DeleteReadBefore(ctx, nil, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, unreadOld.ID, remaining[0].ID)
}
