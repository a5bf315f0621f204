package repository

import (
	"context"
	"sync/atomic"
	"time"

	"stayhold/internal/domain"
	"stayhold/internal/models"

	"github.com/rs/zerolog"
)

// FailoverResumeStore serves from the primary store until it errors,
// then falls back to memory and probes the primary once a minute. A
// lost snapshot only costs the user a restart from the dates step, so
// degrading beats failing the wizard.
type FailoverResumeStore struct {
	primary   domain.ResumeStore
	fallback  domain.ResumeStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverResumeStore(primary, fallback domain.ResumeStore, logger *zerolog.Logger) *FailoverResumeStore {
	return &FailoverResumeStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverResumeStore) Get(ctx context.Context, userID int64) (*models.SessionResume, error) {
	if !r.isDown.Load() {
		resume, err := r.primary.Get(ctx, userID)
		if err == nil {
			return resume, nil
		}
		r.logger.Error().Err(err).Msg("Primary resume store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		resume, err := r.primary.Get(ctx, userID)
		if err == nil {
			r.isDown.Store(false)
			return resume, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.Get(ctx, userID)
}

func (r *FailoverResumeStore) Set(ctx context.Context, resume *models.SessionResume) error {
	if !r.isDown.Load() {
		err := r.primary.Set(ctx, resume)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary resume store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.Set(ctx, resume)
}

func (r *FailoverResumeStore) Clear(ctx context.Context, userID int64) error {
	if !r.isDown.Load() {
		err := r.primary.Clear(ctx, userID)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary resume store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.Clear(ctx, userID)
}
