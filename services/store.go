package services

import (
	"context"
	"time"

	"CrossPostAPI/models"
)

// PlatformStore persists platform connections. Every method is scoped to the
// owning user; rows of other users behave as absent.
type PlatformStore interface {
	CreatePlatformConnection(ctx context.Context, conn *models.PlatformConnection) error
	DeletePlatformConnection(ctx context.Context, userID, id string) error
	ListPlatformConnections(ctx context.Context, userID string) ([]*models.PlatformConnection, error)
	GetPlatformConnection(ctx context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error)
	GetPlatformConnectionByID(ctx context.Context, userID, id string) (*models.PlatformConnection, error)
	SetPlatformCredential(ctx context.Context, userID, id, username string, cred *models.Credential) error
	UpdatePlatformMetrics(ctx context.Context, userID, id string, metrics models.PlatformMetrics, syncedAt time.Time) error
	ListUsersWithPlatforms(ctx context.Context) ([]string, error)
}

type CrossPostStore interface {
	CreateCrossPost(ctx context.Context, post *models.CrossPost, results []*models.DeliveryResult) error
	StartScheduledDelivery(ctx context.Context, post *models.CrossPost, results []*models.DeliveryResult) (bool, error)
	MarkCrossPostFailed(ctx context.Context, id string) error
	CompleteDelivery(ctx context.Context, r *models.DeliveryResult) error
	GetCrossPost(ctx context.Context, userID, id string) (*models.CrossPost, error)
	ListCrossPosts(ctx context.Context, userID string) ([]*models.CrossPost, error)
	ListDueCrossPosts(ctx context.Context, now time.Time) ([]*models.CrossPost, error)
	DeleteCrossPost(ctx context.Context, userID, id string) error
	ListDeliveryResults(ctx context.Context, crossPostID string) ([]*models.DeliveryResult, error)
	MirrorFeedPost(ctx context.Context, userID, content string, at time.Time) error
}

type AnalyticsStore interface {
	UpsertAnalyticsSnapshot(ctx context.Context, s *models.AnalyticsSnapshot) error
	GetAnalyticsSnapshot(ctx context.Context, userID, date string) (*models.AnalyticsSnapshot, error)
	PreviousAnalyticsSnapshot(ctx context.Context, userID, date string) (*models.AnalyticsSnapshot, error)
	LatestAnalyticsSnapshot(ctx context.Context, userID string) (*models.AnalyticsSnapshot, error)
	ListAnalyticsSnapshots(ctx context.Context, userID, sinceDate string) ([]*models.AnalyticsSnapshot, error)
	NetworkTotals(ctx context.Context, userID, date string) (models.NetworkTotals, error)
}

// Store is everything the services need; database.Database and
// database.MemoryStore both satisfy it.
type Store interface {
	PlatformStore
	CrossPostStore
	AnalyticsStore
	Ping(ctx context.Context) error
	Close() error
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time
