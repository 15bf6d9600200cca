package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
)

const defaultUnreadLookback = 48 * time.Hour

type unreadReconciler interface {
	ReconcileUnread(ctx context.Context, since time.Time) (int64, error)
}

type UnreadReconcileJobParams struct {
	Logger     *logger.Logger
	Repository unreadReconciler
	// Lookback bounds the scan to conversations updated within the window.
	Lookback time.Duration
}

// NewUnreadReconcileJob recomputes conversation unread counters from the
// message rows of recently active conversations.
func NewUnreadReconcileJob(params UnreadReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultUnreadLookback
	}
	return &unreadReconcileJob{
		logg:     params.Logger,
		repo:     params.Repository,
		lookback: lookback,
		now:      time.Now,
	}, nil
}

type unreadReconcileJob struct {
	logg     *logger.Logger
	repo     unreadReconciler
	lookback time.Duration
	now      func() time.Time
}

func (j *unreadReconcileJob) Name() string { return "unread-reconcile" }

func (j *unreadReconcileJob) Run(ctx context.Context) error {
	since := j.now().Add(-j.lookback)
	rows, err := j.repo.ReconcileUnread(ctx, since)
	if err != nil {
		return fmt.Errorf("unread reconcile: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"since":         since,
		"conversations": rows,
	}), "unread counters reconciled")
	return nil
}
