package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
)

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dlqPruner interface {
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configures pruning. Retention values are in days;
// zero picks the defaults (30 days published, 90 days dead-lettered). DLQ is
// optional.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	Repository   publishedPruner
	DLQ          dlqPruner
	Retention    int
	DLQRetention int
}

// NewOutboxRetentionJob prunes published outbox rows and, when a DLQ
// repository is supplied, dead-lettered events past their retention.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		outbox:       params.Repository,
		dlq:          params.DLQ,
		retention:    days(params.Retention, defaultOutboxRetention),
		dlqRetention: days(params.DLQRetention, defaultDLQRetention),
		now:          time.Now,
	}, nil
}

func days(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * 24 * time.Hour
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	outbox       publishedPruner
	dlq          dlqPruner
	retention    time.Duration
	dlqRetention time.Duration
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	fields := map[string]any{}

	cutoff := now.Add(-j.retention)
	published, err := j.outbox.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune published outbox rows: %w", err)
	}
	fields["published_cutoff"] = cutoff
	fields["published_deleted"] = published

	if j.dlq != nil {
		dlqCutoff := now.Add(-j.dlqRetention)
		dead, err := j.dlq.DeleteFailedBefore(ctx, dlqCutoff)
		if err != nil {
			return fmt.Errorf("prune outbox dlq: %w", err)
		}
		fields["dlq_cutoff"] = dlqCutoff
		fields["dlq_deleted"] = dead
	}

	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox retention complete")
	return nil
}
