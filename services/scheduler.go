package services

import (
	"context"
	"time"

	"CrossPostAPI/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type userLister interface {
	ListUsersWithPlatforms(ctx context.Context) ([]string, error)
}

// Scheduler runs the periodic jobs: publishing due scheduled cross-posts and
// the nightly analytics rollup.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher *DeliveryDispatcher
	analytics  *AnalyticsRollup
	users      userLister
}

func NewScheduler(dispatcher *DeliveryDispatcher, analytics *AnalyticsRollup, users userLister) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		dispatcher: dispatcher,
		analytics:  analytics,
		users:      users,
	}
}

func (s *Scheduler) Start(publishSpec, analyticsSpec string) error {
	if _, err := s.cron.AddFunc(publishSpec, s.PublishDue); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(analyticsSpec, s.RollupAnalytics); err != nil {
		return err
	}

	s.cron.Start()
	utils.Infof("Scheduler started (publish %q, analytics %q)", publishSpec, analyticsSpec)
	return nil
}

// Stop halts the schedule and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) PublishDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := s.dispatcher.RunDue(ctx)
	if err != nil {
		utils.Errorf("Error publishing scheduled cross-posts: %v", err)
		return
	}
	if n > 0 {
		utils.Infof("Published %d scheduled cross-posts", n)
	}
}

func (s *Scheduler) RollupAnalytics() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	users, err := s.users.ListUsersWithPlatforms(ctx)
	if err != nil {
		utils.Errorf("Error listing users for analytics rollup: %v", err)
		return
	}

	for _, userID := range users {
		if _, err := s.analytics.RecomputeToday(ctx, userID); err != nil {
			utils.Logger().Error("nightly analytics rollup", zap.String("user_id", userID), zap.Error(err))
		}
	}
}
