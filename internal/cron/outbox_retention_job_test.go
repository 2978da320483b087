package cron

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sportshub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeOutboxRetentionRepo struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

func TestOutboxRetentionJobUsesThirtyDayCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     quietLogger(),
		Repository: repo,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, repo.called)
	assert.True(t, repo.lastCutoff.Equal(time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)))
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     quietLogger(),
		Repository: &fakeOutboxRetentionRepo{err: errors.New("boom")},
	})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}

func TestOutboxRetentionJobKeepsUnpublishedRows(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -45)
	recent := now.AddDate(0, 0, -2)

	seed := func(publishedAt *time.Time) uuid.UUID {
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventPaymentCreated,
			AggregateType: enums.AggregatePayment,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			PublishedAt:   publishedAt,
		}
		require.NoError(t, db.Create(&row).Error)
		return row.ID
	}
	expired := seed(&old)
	fresh := seed(&recent)
	pending := seed(nil)

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     quietLogger(),
		Repository: outbox.NewRepository(db),
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var remaining []uuid.UUID
	require.NoError(t, db.Model(&models.OutboxEvent{}).Pluck("id", &remaining).Error)
	assert.ElementsMatch(t, []uuid.UUID{fresh, pending}, remaining)
	assert.NotContains(t, remaining, expired)
}
