package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/sportshub-backend/internal/rentals"
	"github.com/angelmondragon/sportshub-backend/pkg/dates"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

type reservationFinder interface {
	ListDueForActivation(ctx context.Context, today time.Time) ([]models.Reservation, error)
	ListDueForCompletion(ctx context.Context, today time.Time) ([]models.Reservation, error)
}

type reservationTransitioner interface {
	Activate(ctx context.Context, id uuid.UUID, actor rentals.Actor) (*models.Reservation, error)
	Complete(ctx context.Context, id uuid.UUID, actor rentals.Actor) (*models.Reservation, error)
}

type ReservationLifecycleJobParams struct {
	Logger       *logger.Logger
	Reservations reservationFinder
	Service      reservationTransitioner
	Now          func() time.Time
}

// NewReservationLifecycleJob activates CONFIRMED bookings whose start day has
// come and completes ACTIVE bookings whose end day has passed.
func NewReservationLifecycleJob(params ReservationLifecycleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("rental service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &reservationLifecycleJob{
		logg:    params.Logger,
		finder:  params.Reservations,
		service: params.Service,
		now:     now,
	}, nil
}

type reservationLifecycleJob struct {
	logg    *logger.Logger
	finder  reservationFinder
	service reservationTransitioner
	now     func() time.Time
}

func (j *reservationLifecycleJob) Name() string { return "reservation-lifecycle" }

// Run transitions every due row independently; one failing row does not stop the rest.
func (j *reservationLifecycleJob) Run(ctx context.Context) error {
	today := dates.Day(j.now())

	due, err := j.finder.ListDueForActivation(ctx, today)
	if err != nil {
		return fmt.Errorf("list reservations due for activation: %w", err)
	}
	var errs error
	activated := 0
	for _, r := range due {
		if _, err := j.service.Activate(ctx, r.ID, rentals.SystemActor); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("activate %s: %w", r.ID, err))
			continue
		}
		activated++
	}

	ending, err := j.finder.ListDueForCompletion(ctx, today)
	if err != nil {
		return multierr.Append(errs, fmt.Errorf("list reservations due for completion: %w", err))
	}
	completed := 0
	for _, r := range ending {
		if _, err := j.service.Complete(ctx, r.ID, rentals.SystemActor); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("complete %s: %w", r.ID, err))
			continue
		}
		completed++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"today":     dates.Format(today),
		"activated": activated,
		"completed": completed,
		"failed":    len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "reservation lifecycle sweep complete")
	return errs
}
