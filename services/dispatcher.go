package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"CrossPostAPI/models"
	"CrossPostAPI/publishers"
	"CrossPostAPI/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const recordTimeout = 10 * time.Second

// PublisherLookup resolves the delivery client for a platform.
type PublisherLookup interface {
	Get(platform models.Platform) (publishers.PlatformPublisher, bool)
}

type dispatchStore interface {
	PlatformStore
	CrossPostStore
}

// DeliveryDispatcher broadcasts a cross-post to its target platforms. Each
// platform is attempted independently and concurrently; the call returns once
// every attempt has been recorded.
type DeliveryDispatcher struct {
	store      dispatchStore
	publishers PublisherLookup
	timeout    time.Duration
	now        Clock
}

func NewDeliveryDispatcher(store dispatchStore, publishers PublisherLookup, timeout time.Duration) *DeliveryDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DeliveryDispatcher{store: store, publishers: publishers, timeout: timeout, now: time.Now}
}

// Publish creates a published cross-post and delivers it to every distinct
// target platform. Per-platform failures are recorded on the results and
// never returned as an error; only invalid input or a failure to create the
// post itself is.
func (d *DeliveryDispatcher) Publish(ctx context.Context, userID, content string, platforms []models.Platform) (*models.CrossPostDetail, error) {
	targets, err := validatePublish(content, platforms)
	if err != nil {
		return nil, err
	}

	now := d.now()
	post := &models.CrossPost{
		ID:          uuid.New().String(),
		UserID:      userID,
		Content:     content,
		Platforms:   targets,
		Status:      models.StatusPublished,
		PublishedAt: &now,
		CreatedAt:   now,
	}
	results := pendingResults(post, now)

	if err := d.store.CreateCrossPost(ctx, post, results); err != nil {
		return nil, fmt.Errorf("create cross-post: %w", err)
	}

	d.deliver(ctx, post, results)
	return newDetail(post, results), nil
}

// Schedule stores a cross-post to be published by RunDue once at has passed.
func (d *DeliveryDispatcher) Schedule(ctx context.Context, userID, content string, platforms []models.Platform, at time.Time) (*models.CrossPostDetail, error) {
	targets, err := validatePublish(content, platforms)
	if err != nil {
		return nil, err
	}

	now := d.now()
	if !at.After(now) {
		return nil, models.InvalidRequestf("scheduled time must be in the future")
	}

	post := &models.CrossPost{
		ID:           uuid.New().String(),
		UserID:       userID,
		Content:      content,
		Platforms:    targets,
		Status:       models.StatusScheduled,
		ScheduledFor: &at,
		CreatedAt:    now,
	}
	if err := d.store.CreateCrossPost(ctx, post, nil); err != nil {
		return nil, fmt.Errorf("schedule cross-post: %w", err)
	}

	utils.Logger().Info("cross-post scheduled",
		zap.String("cross_post_id", post.ID), zap.Time("scheduled_for", at))
	return newDetail(post, []*models.DeliveryResult{}), nil
}

// RunDue publishes every scheduled cross-post whose time has come and returns
// how many it started.
func (d *DeliveryDispatcher) RunDue(ctx context.Context) (int, error) {
	due, err := d.store.ListDueCrossPosts(ctx, d.now())
	if err != nil {
		return 0, fmt.Errorf("list due cross-posts: %w", err)
	}

	started := 0
	for _, post := range due {
		now := d.now()
		post.Status = models.StatusPublished
		post.PublishedAt = &now
		results := pendingResults(post, now)

		ok, err := d.store.StartScheduledDelivery(ctx, post, results)
		if err != nil {
			utils.Logger().Error("start scheduled delivery", zap.String("cross_post_id", post.ID), zap.Error(err))
			if markErr := d.store.MarkCrossPostFailed(ctx, post.ID); markErr != nil {
				utils.Logger().Error("mark cross-post failed", zap.String("cross_post_id", post.ID), zap.Error(markErr))
			}
			continue
		}
		if !ok {
			continue
		}

		utils.Infof("Publishing scheduled cross-post: %s", post.ID)
		d.deliver(ctx, post, results)
		started++
	}
	return started, nil
}

// deliver fans out one attempt per result and waits for all of them. The
// attempts run detached from ctx cancellation so that an abandoned request
// still records every outcome.
func (d *DeliveryDispatcher) deliver(ctx context.Context, post *models.CrossPost, results []*models.DeliveryResult) {
	detached := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, result := range results {
		wg.Add(1)
		go func(r *models.DeliveryResult) {
			defer wg.Done()

			deliverCtx, cancel := context.WithTimeout(detached, d.timeout)
			d.attempt(deliverCtx, post, r)
			cancel()

			recordCtx, cancel := context.WithTimeout(detached, recordTimeout)
			defer cancel()
			if err := d.store.CompleteDelivery(recordCtx, r); err != nil {
				utils.Logger().Error("record delivery result",
					zap.String("cross_post_id", post.ID), zap.String("platform", string(r.Platform)), zap.Error(err))
			}
		}(result)
	}

	mirrorCtx, cancel := context.WithTimeout(detached, recordTimeout)
	if err := d.store.MirrorFeedPost(mirrorCtx, post.UserID, post.Content, d.now()); err != nil {
		utils.Logger().Warn("mirror cross-post to feed", zap.String("cross_post_id", post.ID), zap.Error(err))
	}
	cancel()

	wg.Wait()

	summary := Summarize(results)
	utils.Logger().Info("cross-post delivered",
		zap.String("cross_post_id", post.ID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.String("outcome", string(summary.Outcome)))
}

// attempt performs one platform delivery and fills in r. It never panics
// past its caller.
func (d *DeliveryDispatcher) attempt(ctx context.Context, post *models.CrossPost, r *models.DeliveryResult) {
	defer func() {
		if p := recover(); p != nil {
			d.fail(r, fmt.Sprintf("publisher panic: %v", p))
		}
	}()

	conn, err := d.store.GetPlatformConnection(ctx, post.UserID, r.Platform)
	if errors.Is(err, models.ErrNotFound) || (err == nil && !conn.IsConnected) {
		d.fail(r, models.ErrPlatformNotConnected.Error())
		return
	}
	if err != nil {
		d.fail(r, fmt.Sprintf("lookup connection: %v", err))
		return
	}

	publisher, ok := d.publishers.Get(r.Platform)
	if !ok {
		d.fail(r, models.ErrPlatformNotSupported.Error())
		return
	}

	delivery, err := publisher.Deliver(ctx, conn.Credential, post.Content)
	if err != nil {
		extErr := &models.ExternalServiceError{Platform: r.Platform, Err: err}
		utils.Logger().Warn("platform delivery failed",
			zap.String("cross_post_id", post.ID), zap.String("platform", string(r.Platform)), zap.Error(extErr))
		d.fail(r, extErr.Error())
		return
	}

	completed := d.now()
	r.Status = models.DeliverySuccess
	r.ExternalPostID = delivery.ExternalPostID
	r.ExternalURL = delivery.URL
	r.CompletedAt = &completed
}

func (d *DeliveryDispatcher) fail(r *models.DeliveryResult, message string) {
	completed := d.now()
	r.Status = models.DeliveryFailed
	r.ErrorMessage = message
	r.ExternalPostID = ""
	r.ExternalURL = ""
	r.CompletedAt = &completed
}

// validatePublish checks the request and returns the distinct targets in
// first-seen order.
func validatePublish(content string, platforms []models.Platform) ([]models.Platform, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.InvalidRequestf("content is required")
	}
	if len(platforms) == 0 {
		return nil, models.InvalidRequestf("at least one platform is required")
	}

	seen := make(map[models.Platform]bool, len(platforms))
	targets := make([]models.Platform, 0, len(platforms))
	for _, p := range platforms {
		if !p.Valid() {
			return nil, models.InvalidRequestf("unknown platform %q", p)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		targets = append(targets, p)
	}
	return targets, nil
}

func pendingResults(post *models.CrossPost, now time.Time) []*models.DeliveryResult {
	results := make([]*models.DeliveryResult, len(post.Platforms))
	for i, p := range post.Platforms {
		results[i] = &models.DeliveryResult{
			ID:          uuid.New().String(),
			CrossPostID: post.ID,
			Platform:    p,
			Status:      models.DeliveryPending,
			CreatedAt:   now,
		}
	}
	return results
}
