package rentals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sportshub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/outbox"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	repo := NewRepository(db)
	engine, err := NewEngine(repo, WithClock(func() time.Time { return today }))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repository: repo,
		Engine:     engine,
		TxRunner:   dbtest.TxRunner{DB: db},
		Outbox:     outbox.NewService(outbox.NewRepository(db), nil),
	})
	require.NoError(t, err)
	return svc, db
}

func TestCreateReservationExactCapacityThenOneMoreFails(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	item := rentalItem(3)
	require.NoError(t, db.Create(item).Error)

	user := uuid.New()
	first, err := svc.CreateReservation(ctx, CreateReservationInput{
		InventoryItemID: item.ID,
		UserID:          user,
		StartDate:       june(5),
		EndDate:         june(8),
		Quantity:        3,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusPending, first.Status)
	// 15.00/day × 3 days × 3 units
	assert.Equal(t, "135", first.TotalPrice.String())

	_, err = svc.CreateReservation(ctx, CreateReservationInput{
		InventoryItemID: item.ID,
		UserID:          user,
		StartDate:       june(7),
		EndDate:         june(9),
		Quantity:        1,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeRentalNotAvailable, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, details["requested"])
	assert.Equal(t, 0, details["available"])

	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventReservationStatusChanged).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestReservationLifecycle(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	item := rentalItem(1)
	require.NoError(t, db.Create(item).Error)
	user := uuid.New()
	actor := Actor{UserID: user}

	r, err := svc.CreateReservation(ctx, CreateReservationInput{
		InventoryItemID: item.ID, UserID: user, StartDate: june(5), EndDate: june(6), Quantity: 1,
	})
	require.NoError(t, err)

	// Confirm must not count the reservation against itself.
	r, err = svc.Confirm(ctx, r.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusConfirmed, r.Status)

	_, err = svc.Confirm(ctx, r.ID, actor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidOperation))

	_, err = svc.Complete(ctx, r.ID, SystemActor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidOperation))

	r, err = svc.Activate(ctx, r.ID, SystemActor)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusActive, r.Status)

	r, err = svc.Complete(ctx, r.ID, SystemActor)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusCompleted, r.Status)

	_, err = svc.Cancel(ctx, r.ID, actor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidOperation))
}

func TestCancelReleasesCapacityWithoutDeleting(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	item := rentalItem(1)
	require.NoError(t, db.Create(item).Error)
	user := uuid.New()

	r, err := svc.CreateReservation(ctx, CreateReservationInput{
		InventoryItemID: item.ID, UserID: user, StartDate: june(5), EndDate: june(6), Quantity: 1,
	})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, r.ID, Actor{UserID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	cancelled, err := svc.Cancel(ctx, r.ID, Actor{UserID: user})
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.IsActive)

	var stored models.Reservation
	require.NoError(t, db.First(&stored, "id = ?", r.ID).Error)
	assert.Equal(t, enums.ReservationStatusCancelled, stored.Status)
	assert.False(t, stored.IsActive)

	_, err = svc.CreateReservation(ctx, CreateReservationInput{
		InventoryItemID: item.ID, UserID: user, StartDate: june(5), EndDate: june(6), Quantity: 1,
	})
	require.NoError(t, err)
}

func TestConfirmFailsWhenCapacityTakenMeanwhile(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	item := rentalItem(1)
	require.NoError(t, db.Create(item).Error)
	user := uuid.New()

	r, err := svc.CreateReservation(ctx, CreateReservationInput{
		InventoryItemID: item.ID, UserID: user, StartDate: june(5), EndDate: june(6), Quantity: 1,
	})
	require.NoError(t, err)

	// A checkout committed a reservation directly for the same days.
	committed := reservation(item.ID, june(6), june(7), 1, enums.ReservationStatusConfirmed)
	require.NoError(t, db.Create(&committed).Error)

	_, err = svc.Confirm(ctx, r.ID, Actor{UserID: user})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRentalNotAvailable))
}

func TestCreateReservationValidation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	item := rentalItem(1)
	require.NoError(t, db.Create(item).Error)

	_, err := svc.CreateReservation(ctx, CreateReservationInput{InventoryItemID: item.ID, UserID: uuid.New(), StartDate: june(5), EndDate: june(6)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateReservation(ctx, CreateReservationInput{InventoryItemID: item.ID, UserID: uuid.New(), StartDate: june(5), EndDate: june(5), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidRentalPeriod))

	_, err = svc.CreateReservation(ctx, CreateReservationInput{InventoryItemID: uuid.New(), UserID: uuid.New(), StartDate: june(5), EndDate: june(6), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	rows, err := svc.ListForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
