package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/pkg/logger"
)

const (
	defaultOutboxRetentionDays = 30
	defaultDLQRetentionDays    = 90
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type deadLetterPruner interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type RetentionParams struct {
	Logger *logger.Logger
	DB     txRunner
	Days   int
	Now    func() time.Time
}

// retentionJob deletes rows older than a day-count cutoff.
type retentionJob struct {
	name  string
	logg  *logger.Logger
	db    txRunner
	days  int
	now   func() time.Time
	prune func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes outbox rows that were published more than Days ago.
func NewOutboxRetentionJob(p RetentionParams, repo publishedPruner) (Job, error) {
	if repo == nil {
		return nil, errors.New("outbox repository is required")
	}
	job, err := newRetentionJob("outbox-retention", p, defaultOutboxRetentionDays, repo.DeletePublishedBefore)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// NewDLQRetentionJob prunes dead-lettered events older than Days.
func NewDLQRetentionJob(p RetentionParams, repo deadLetterPruner) (Job, error) {
	if repo == nil {
		return nil, errors.New("dlq repository is required")
	}
	job, err := newRetentionJob("outbox-dlq-retention", p, defaultDLQRetentionDays, repo.DeleteFailedBefore)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func newRetentionJob(name string, p RetentionParams, fallbackDays int, prune func(context.Context, *gorm.DB, time.Time) (int64, error)) (*retentionJob, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("transaction runner is required")
	}
	days := p.Days
	if days <= 0 {
		days = fallbackDays
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &retentionJob{name: name, logg: p.Logger, db: p.DB, days: days, now: now, prune: prune}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.prune(ctx, tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff.Format(time.RFC3339),
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "cron.retention.complete")
	return nil
}
