package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CrossPostAPI/models"
	"CrossPostAPI/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	dateLayout        = "2006-01-02"
	defaultHistory    = 7
	maxHistory        = 90
	analyticsLockKind = "analytics"
	recomputeTimeout  = 30 * time.Second
)

// AnalyticsRollup maintains one analytics snapshot per user per day.
// Recomputing is a pure function of the current network totals and the
// previous day's snapshot, so repeated or concurrent calls converge on the
// same row.
type AnalyticsRollup struct {
	store   AnalyticsStore
	locker  Locker
	group   singleflight.Group
	now     Clock
	timeout time.Duration
}

func NewAnalyticsRollup(store AnalyticsStore, locker Locker) *AnalyticsRollup {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &AnalyticsRollup{store: store, locker: locker, now: time.Now, timeout: recomputeTimeout}
}

func (a *AnalyticsRollup) today() string {
	return a.now().UTC().Format(dateLayout)
}

// RecomputeToday rebuilds and stores today's snapshot for the user.
// Concurrent callers share one computation, which runs detached from any
// single caller's cancellation; each caller stops waiting when its own ctx
// is done.
func (a *AnalyticsRollup) RecomputeToday(ctx context.Context, userID string) (*models.AnalyticsSnapshot, error) {
	date := a.today()
	key := fmt.Sprintf("%s:%s:%s", analyticsLockKind, userID, date)

	ch := a.group.DoChan(key, func() (interface{}, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return a.recompute(workCtx, key, userID, date)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			utils.Debugf("analytics recompute for %s coalesced", userID)
		}
		snap := *res.Val.(*models.AnalyticsSnapshot)
		return &snap, nil
	}
}

func (a *AnalyticsRollup) recompute(ctx context.Context, key, userID, date string) (*models.AnalyticsSnapshot, error) {
	unlock, err := a.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lock analytics: %w", err)
	}
	defer unlock()

	totals, err := a.store.NetworkTotals(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("network totals: %w", err)
	}

	prev, err := a.store.PreviousAnalyticsSnapshot(ctx, userID, date)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("previous snapshot: %w", err)
	}

	snap := BuildSnapshot(userID, date, totals, prev)
	snap.UpdatedAt = a.now()
	if err := a.store.UpsertAnalyticsSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("upsert snapshot: %w", err)
	}

	utils.Logger().Debug("analytics recomputed",
		zap.String("user_id", userID), zap.String("date", date),
		zap.Int64("total_connections", snap.TotalConnections), zap.Int64("total_posts", snap.TotalPosts))
	return snap, nil
}

// BuildSnapshot derives a snapshot from raw totals. The new_* fields are the
// growth since prev, clamped at zero; with no prev they equal the totals.
func BuildSnapshot(userID, date string, totals models.NetworkTotals, prev *models.AnalyticsSnapshot) *models.AnalyticsSnapshot {
	snap := &models.AnalyticsSnapshot{
		UserID:           userID,
		Date:             date,
		TotalConnections: totals.Connections,
		NewConnections:   totals.Connections,
		TotalPosts:       totals.Posts,
		NewPosts:         totals.Posts,
		TotalEngagement:  totals.Engagement,
		ProfileViews:     totals.ProfileViews,

		TotalReach:        totals.Reach,
		AvgEngagementRate: totals.EngagementRate,
	}
	if prev != nil {
		snap.NewConnections = clampDelta(totals.Connections, prev.TotalConnections)
		snap.NewPosts = clampDelta(totals.Posts, prev.TotalPosts)
	}
	return snap
}

func clampDelta(current, previous int64) int64 {
	if current < previous {
		return 0
	}
	return current - previous
}

func (a *AnalyticsRollup) Latest(ctx context.Context, userID string) (*models.AnalyticsSnapshot, error) {
	return a.store.LatestAnalyticsSnapshot(ctx, userID)
}

// History returns the snapshots of the last days days, oldest first.
func (a *AnalyticsRollup) History(ctx context.Context, userID string, days int) ([]*models.AnalyticsSnapshot, error) {
	if days <= 0 {
		days = defaultHistory
	}
	if days > maxHistory {
		return nil, models.InvalidRequestf("history is limited to %d days", maxHistory)
	}
	since := a.now().UTC().AddDate(0, 0, -(days - 1)).Format(dateLayout)
	return a.store.ListAnalyticsSnapshots(ctx, userID, since)
}
