package services

import (
	"context"
	"fmt"

	"CrossPostAPI/models"
	"CrossPostAPI/utils"

	"go.uber.org/zap"
)

// CrossPostService is the read side of cross-posts: one post together with
// its per-platform delivery results.
type CrossPostService struct {
	store CrossPostStore
}

func NewCrossPostService(store CrossPostStore) *CrossPostService {
	return &CrossPostService{store: store}
}

func (s *CrossPostService) GetCrossPost(ctx context.Context, userID, id string) (*models.CrossPostDetail, error) {
	post, err := s.store.GetCrossPost(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	results, err := s.store.ListDeliveryResults(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("list delivery results: %w", err)
	}
	return newDetail(post, results), nil
}

func (s *CrossPostService) ListCrossPosts(ctx context.Context, userID string) ([]*models.CrossPostDetail, error) {
	posts, err := s.store.ListCrossPosts(ctx, userID)
	if err != nil {
		return nil, err
	}

	details := make([]*models.CrossPostDetail, 0, len(posts))
	for _, post := range posts {
		results, err := s.store.ListDeliveryResults(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("list delivery results: %w", err)
		}
		details = append(details, newDetail(post, results))
	}
	return details, nil
}

// DeleteCrossPost removes the post and, with it, all of its delivery results.
func (s *CrossPostService) DeleteCrossPost(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteCrossPost(ctx, userID, id); err != nil {
		return err
	}
	utils.Logger().Info("cross-post deleted", zap.String("user_id", userID), zap.String("cross_post_id", id))
	return nil
}

// ComputeOutcome classifies a set of delivery results. No results, or no
// successful ones, is all_failed.
func ComputeOutcome(results []*models.DeliveryResult) models.Outcome {
	succeeded := 0
	for _, r := range results {
		if r.Status == models.DeliverySuccess {
			succeeded++
		}
	}

	switch {
	case succeeded == 0:
		return models.OutcomeAllFailed
	case succeeded == len(results):
		return models.OutcomeAllSucceeded
	default:
		return models.OutcomePartial
	}
}

func Summarize(results []*models.DeliveryResult) models.DeliverySummary {
	summary := models.DeliverySummary{Total: len(results), Outcome: ComputeOutcome(results)}
	for _, r := range results {
		switch r.Status {
		case models.DeliverySuccess:
			summary.Succeeded++
		case models.DeliveryFailed:
			summary.Failed++
		default:
			summary.Pending++
		}
	}
	return summary
}

func newDetail(post *models.CrossPost, results []*models.DeliveryResult) *models.CrossPostDetail {
	return &models.CrossPostDetail{CrossPost: post, Results: results, Summary: Summarize(results)}
}
