package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"CrossPostAPI/models"
	"CrossPostAPI/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlatformRegistry manages the set of external platforms each user has linked.
type PlatformRegistry struct {
	store PlatformStore
	now   Clock
}

func NewPlatformRegistry(store PlatformStore) *PlatformRegistry {
	return &PlatformRegistry{store: store, now: time.Now}
}

func (r *PlatformRegistry) AddPlatform(ctx context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error) {
	if !platform.Valid() {
		return nil, models.InvalidRequestf("unknown platform %q", platform)
	}

	conn := &models.PlatformConnection{
		ID:        uuid.New().String(),
		UserID:    userID,
		Platform:  platform,
		CreatedAt: r.now(),
	}
	if err := r.store.CreatePlatformConnection(ctx, conn); err != nil {
		return nil, err
	}

	utils.Logger().Info("platform added", zap.String("user_id", userID), zap.String("platform", string(platform)))
	return conn, nil
}

func (r *PlatformRegistry) RemovePlatform(ctx context.Context, userID, connectionID string) error {
	if err := r.store.DeletePlatformConnection(ctx, userID, connectionID); err != nil {
		return err
	}
	utils.Logger().Info("platform removed", zap.String("user_id", userID), zap.String("connection_id", connectionID))
	return nil
}

func (r *PlatformRegistry) ListPlatforms(ctx context.Context, userID string) ([]*models.PlatformConnection, error) {
	return r.store.ListPlatformConnections(ctx, userID)
}

func (r *PlatformRegistry) GetConnectionStatus(ctx context.Context, userID string, platform models.Platform) (models.ConnectionStatus, error) {
	if !platform.Valid() {
		return "", models.InvalidRequestf("unknown platform %q", platform)
	}

	conn, err := r.store.GetPlatformConnection(ctx, userID, platform)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.ConnectionAbsent, nil
	case err != nil:
		return "", err
	case conn.IsConnected:
		return models.ConnectionConnected, nil
	default:
		return models.ConnectionNotConnected, nil
	}
}

// ConnectPlatform attaches credential material to an existing connection,
// which marks it connected.
func (r *PlatformRegistry) ConnectPlatform(ctx context.Context, userID, connectionID, username string, cred *models.Credential) (*models.PlatformConnection, error) {
	if cred == nil || strings.TrimSpace(cred.AccessToken) == "" {
		return nil, models.InvalidRequestf("access token is required")
	}
	if err := r.store.SetPlatformCredential(ctx, userID, connectionID, username, cred); err != nil {
		return nil, fmt.Errorf("connect platform: %w", err)
	}
	return r.store.GetPlatformConnectionByID(ctx, userID, connectionID)
}

// SyncMetrics stores the latest follower and engagement counters for a connection.
func (r *PlatformRegistry) SyncMetrics(ctx context.Context, userID, connectionID string, metrics models.PlatformMetrics) (*models.PlatformConnection, error) {
	if metrics.Followers < 0 || metrics.Following < 0 || metrics.Posts < 0 || metrics.EngagementRate < 0 {
		return nil, models.InvalidRequestf("metrics must be non-negative")
	}
	if err := r.store.UpdatePlatformMetrics(ctx, userID, connectionID, metrics, r.now()); err != nil {
		return nil, fmt.Errorf("sync metrics: %w", err)
	}
	return r.store.GetPlatformConnectionByID(ctx, userID, connectionID)
}
