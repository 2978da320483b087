package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type runner interface {
	Run(context.Context) error
}

type ServiceParams struct {
	Logger *logger.Logger
	DB     pinger
	Redis  pinger
	PubSub pinger
	// Consumers are keyed by name for logging.
	Consumers map[string]runner
}

// Service hosts the Pub/Sub consumers. The first consumer to fail stops the rest.
type Service struct {
	logg      *logger.Logger
	deps      map[string]pinger
	consumers map[string]runner
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case len(params.Consumers) == 0:
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("consumer %s is nil", name)
		}
	}
	return &Service{
		logg: params.Logger,
		deps: map[string]pinger{
			"database": params.DB,
			"redis":    params.Redis,
			"pubsub":   params.PubSub,
		},
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for name, consumer := range s.consumers {
		group.Go(func() error {
			consumerCtx := s.logg.WithField(groupCtx, "consumer", name)
			s.logg.Info(consumerCtx, "consumer started")
			err := consumer.Run(groupCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(consumerCtx, "consumer stopped unexpectedly", err)
				return fmt.Errorf("consumer %s: %w", name, err)
			}
			return err
		})
	}
	return group.Wait()
}
