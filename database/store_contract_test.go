package database

import (
	"context"
	"sort"
	"testing"
	"time"

	"CrossPostAPI/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// store is the method set shared by Database and MemoryStore.
type store interface {
	CreatePlatformConnection(ctx context.Context, conn *models.PlatformConnection) error
	DeletePlatformConnection(ctx context.Context, userID, id string) error
	ListPlatformConnections(ctx context.Context, userID string) ([]*models.PlatformConnection, error)
	GetPlatformConnection(ctx context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error)
	GetPlatformConnectionByID(ctx context.Context, userID, id string) (*models.PlatformConnection, error)
	SetPlatformCredential(ctx context.Context, userID, id, username string, cred *models.Credential) error
	UpdatePlatformMetrics(ctx context.Context, userID, id string, metrics models.PlatformMetrics, syncedAt time.Time) error
	ListUsersWithPlatforms(ctx context.Context) ([]string, error)

	CreateCrossPost(ctx context.Context, post *models.CrossPost, results []*models.DeliveryResult) error
	StartScheduledDelivery(ctx context.Context, post *models.CrossPost, results []*models.DeliveryResult) (bool, error)
	MarkCrossPostFailed(ctx context.Context, id string) error
	CompleteDelivery(ctx context.Context, r *models.DeliveryResult) error
	GetCrossPost(ctx context.Context, userID, id string) (*models.CrossPost, error)
	ListCrossPosts(ctx context.Context, userID string) ([]*models.CrossPost, error)
	ListDueCrossPosts(ctx context.Context, now time.Time) ([]*models.CrossPost, error)
	DeleteCrossPost(ctx context.Context, userID, id string) error
	ListDeliveryResults(ctx context.Context, crossPostID string) ([]*models.DeliveryResult, error)

	UpsertAnalyticsSnapshot(ctx context.Context, s *models.AnalyticsSnapshot) error
	GetAnalyticsSnapshot(ctx context.Context, userID, date string) (*models.AnalyticsSnapshot, error)
	PreviousAnalyticsSnapshot(ctx context.Context, userID, date string) (*models.AnalyticsSnapshot, error)
	LatestAnalyticsSnapshot(ctx context.Context, userID string) (*models.AnalyticsSnapshot, error)
	ListAnalyticsSnapshots(ctx context.Context, userID, sinceDate string) ([]*models.AnalyticsSnapshot, error)
	NetworkTotals(ctx context.Context, userID, date string) (models.NetworkTotals, error)
}

// base is truncated to the microsecond so times survive a Postgres round trip.
var base = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func runStoreContract(t *testing.T, s store) {
	t.Run("platform connections", func(t *testing.T) { testPlatformConnections(t, s) })
	t.Run("platform reach", func(t *testing.T) { testPlatformReach(t, s) })
	t.Run("cross-posts", func(t *testing.T) { testCrossPosts(t, s) })
	t.Run("cross-post ordering", func(t *testing.T) { testCrossPostOrdering(t, s) })
	t.Run("scheduled delivery", func(t *testing.T) { testScheduledDelivery(t, s) })
	t.Run("scheduled delivery across zones", func(t *testing.T) { testScheduledDeliveryZones(t, s) })
	t.Run("analytics snapshots", func(t *testing.T) { testAnalyticsSnapshots(t, s) })
}

func newConnection(userID string, platform models.Platform, at time.Time) *models.PlatformConnection {
	return &models.PlatformConnection{ID: uuid.New().String(), UserID: userID, Platform: platform, CreatedAt: at}
}

func testPlatformConnections(t *testing.T, s store) {
	ctx := context.Background()
	user := "pc-" + uuid.New().String()

	first := newConnection(user, models.YouTube, base)
	second := newConnection(user, models.Twitter, base.Add(time.Second))
	require.NoError(t, s.CreatePlatformConnection(ctx, first))
	require.NoError(t, s.CreatePlatformConnection(ctx, second))

	err := s.CreatePlatformConnection(ctx, newConnection(user, models.Twitter, base.Add(2*time.Second)))
	assert.ErrorIs(t, err, models.ErrDuplicateConnection)

	conns, err := s.ListPlatformConnections(ctx, user)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, first.ID, conns[0].ID)
	assert.Equal(t, second.ID, conns[1].ID)
	assert.False(t, conns[0].IsConnected)

	_, err = s.GetPlatformConnection(ctx, user, models.Facebook)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.GetPlatformConnectionByID(ctx, "someone-else", first.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	expires := base.Add(time.Hour)
	require.NoError(t, s.SetPlatformCredential(ctx, user, second.ID, "jane",
		&models.Credential{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: &expires}))
	assert.ErrorIs(t, s.SetPlatformCredential(ctx, "someone-else", second.ID, "x", &models.Credential{AccessToken: "a"}),
		models.ErrNotFound)

	got, err := s.GetPlatformConnection(ctx, user, models.Twitter)
	require.NoError(t, err)
	assert.True(t, got.IsConnected)
	assert.Equal(t, "jane", got.Username)
	require.NotNil(t, got.Credential)
	assert.Equal(t, "access", got.Credential.AccessToken)
	assert.Equal(t, "refresh", got.Credential.RefreshToken)
	require.NotNil(t, got.Credential.ExpiresAt)
	assert.True(t, expires.Equal(*got.Credential.ExpiresAt))

	metrics := models.PlatformMetrics{Followers: 500, Following: 20, Posts: 7, EngagementRate: 2.5}
	require.NoError(t, s.UpdatePlatformMetrics(ctx, user, second.ID, metrics, base))
	got, err = s.GetPlatformConnectionByID(ctx, user, second.ID)
	require.NoError(t, err)
	assert.Equal(t, metrics, got.PlatformMetrics)
	require.NotNil(t, got.LastSyncedAt)

	users, err := s.ListUsersWithPlatforms(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, user)

	require.NoError(t, s.DeletePlatformConnection(ctx, user, first.ID))
	assert.ErrorIs(t, s.DeletePlatformConnection(ctx, user, first.ID), models.ErrNotFound)
	conns, err = s.ListPlatformConnections(ctx, user)
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func testPlatformReach(t *testing.T, s store) {
	ctx := context.Background()
	user := "pr-" + uuid.New().String()

	totals, err := s.NetworkTotals(ctx, user, "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, models.NetworkTotals{}, totals)

	twitter := newConnection(user, models.Twitter, base)
	youtube := newConnection(user, models.YouTube, base.Add(time.Second))
	require.NoError(t, s.CreatePlatformConnection(ctx, twitter))
	require.NoError(t, s.CreatePlatformConnection(ctx, youtube))
	require.NoError(t, s.CreatePlatformConnection(ctx, newConnection("pr-other-"+user, models.Twitter, base)))
	require.NoError(t, s.UpdatePlatformMetrics(ctx, user, twitter.ID, models.PlatformMetrics{Followers: 900, EngagementRate: 1.5}, base))
	require.NoError(t, s.UpdatePlatformMetrics(ctx, user, youtube.ID, models.PlatformMetrics{Followers: 100, EngagementRate: 4.5}, base))

	totals, err = s.NetworkTotals(ctx, user, "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), totals.Reach)
	assert.InDelta(t, 3.0, totals.EngagementRate, 1e-9)
	assert.Zero(t, totals.Connections)
}

func newPost(userID string, status models.PostStatus, at time.Time, platforms ...models.Platform) (*models.CrossPost, []*models.DeliveryResult) {
	post := &models.CrossPost{
		ID:        uuid.New().String(),
		UserID:    userID,
		Content:   "hello",
		Platforms: platforms,
		Status:    status,
		CreatedAt: at,
	}
	results := make([]*models.DeliveryResult, len(platforms))
	for i, p := range platforms {
		results[i] = &models.DeliveryResult{
			ID:          uuid.New().String(),
			CrossPostID: post.ID,
			Platform:    p,
			Status:      models.DeliveryPending,
			CreatedAt:   at,
		}
	}
	return post, results
}

func testCrossPosts(t *testing.T, s store) {
	ctx := context.Background()
	user := "cp-" + uuid.New().String()

	older, olderResults := newPost(user, models.StatusPublished, base, models.LinkedIn)
	post, results := newPost(user, models.StatusPublished, base.Add(time.Minute), models.LinkedIn, models.Twitter)
	post.PublishedAt = &post.CreatedAt
	require.NoError(t, s.CreateCrossPost(ctx, older, olderResults))
	require.NoError(t, s.CreateCrossPost(ctx, post, results))

	got, err := s.GetCrossPost(ctx, user, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Platform{models.LinkedIn, models.Twitter}, got.Platforms)
	assert.Equal(t, models.StatusPublished, got.Status)
	_, err = s.GetCrossPost(ctx, "someone-else", post.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	list, err := s.ListCrossPosts(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, post.ID, list[0].ID)

	completed := base.Add(2 * time.Minute)
	success := *results[0]
	success.Status = models.DeliverySuccess
	success.ExternalPostID = "li_1"
	success.ExternalURL = "https://linkedin.com/post/demo"
	success.CompletedAt = &completed
	require.NoError(t, s.CompleteDelivery(ctx, &success))

	// A terminal result is never overwritten.
	overwrite := success
	overwrite.Status = models.DeliveryFailed
	overwrite.ErrorMessage = "late"
	require.NoError(t, s.CompleteDelivery(ctx, &overwrite))

	stored, err := s.ListDeliveryResults(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	byPlatform := map[models.Platform]*models.DeliveryResult{}
	for _, r := range stored {
		byPlatform[r.Platform] = r
	}
	assert.Equal(t, models.DeliverySuccess, byPlatform[models.LinkedIn].Status)
	assert.Equal(t, "https://linkedin.com/post/demo", byPlatform[models.LinkedIn].ExternalURL)
	assert.Empty(t, byPlatform[models.LinkedIn].ErrorMessage)
	assert.Equal(t, models.DeliveryPending, byPlatform[models.Twitter].Status)

	assert.ErrorIs(t, s.DeleteCrossPost(ctx, "someone-else", post.ID), models.ErrNotFound)
	require.NoError(t, s.DeleteCrossPost(ctx, user, post.ID))
	stored, err = s.ListDeliveryResults(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func testCrossPostOrdering(t *testing.T, s store) {
	ctx := context.Background()
	user := "co-" + uuid.New().String()

	var ids []string
	for i := 0; i < 4; i++ {
		post, _ := newPost(user, models.StatusPublished, base, models.LinkedIn)
		require.NoError(t, s.CreateCrossPost(ctx, post, nil))
		ids = append(ids, post.ID)
	}
	newest, _ := newPost(user, models.StatusPublished, base.Add(time.Minute), models.LinkedIn)
	require.NoError(t, s.CreateCrossPost(ctx, newest, nil))
	sort.Strings(ids)

	for i := 0; i < 3; i++ {
		list, err := s.ListCrossPosts(ctx, user)
		require.NoError(t, err)
		require.Len(t, list, 5)
		got := []string{}
		for _, p := range list[1:] {
			got = append(got, p.ID)
		}
		assert.Equal(t, newest.ID, list[0].ID)
		assert.Equal(t, ids, got, "equal timestamps are ordered by id")
	}
}

func testScheduledDeliveryZones(t *testing.T, s store) {
	ctx := context.Background()
	user := "sz-" + uuid.New().String()
	east := time.FixedZone("UTC+5", 5*60*60)
	west := time.FixedZone("UTC-7", -7*60*60)

	due, _ := newPost(user, models.StatusScheduled, base, models.Facebook)
	dueAt := base.Add(-30 * time.Minute).In(east)
	due.ScheduledFor = &dueAt
	later, _ := newPost(user, models.StatusScheduled, base, models.Facebook)
	laterAt := base.Add(30 * time.Minute).In(west)
	later.ScheduledFor = &laterAt
	require.NoError(t, s.CreateCrossPost(ctx, due, nil))
	require.NoError(t, s.CreateCrossPost(ctx, later, nil))

	for _, now := range []time.Time{base, base.In(east), base.In(west)} {
		list, err := s.ListDueCrossPosts(ctx, now)
		require.NoError(t, err)
		var ids []string
		for _, p := range list {
			ids = append(ids, p.ID)
		}
		assert.Contains(t, ids, due.ID, now.Location().String())
		assert.NotContains(t, ids, later.ID, now.Location().String())
	}

	got, err := s.GetCrossPost(ctx, user, due.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ScheduledFor)
	assert.True(t, dueAt.Equal(*got.ScheduledFor))
}

func testScheduledDelivery(t *testing.T, s store) {
	ctx := context.Background()
	user := "sd-" + uuid.New().String()

	due, _ := newPost(user, models.StatusScheduled, base, models.Facebook)
	dueAt := base.Add(-time.Hour)
	due.ScheduledFor = &dueAt
	later, _ := newPost(user, models.StatusScheduled, base, models.Facebook)
	laterAt := base.Add(time.Hour)
	later.ScheduledFor = &laterAt
	broken, _ := newPost(user, models.StatusScheduled, base, models.TikTok)
	broken.ScheduledFor = &laterAt

	for _, p := range []*models.CrossPost{due, later, broken} {
		require.NoError(t, s.CreateCrossPost(ctx, p, nil))
	}

	list, err := s.ListDueCrossPosts(ctx, base)
	require.NoError(t, err)
	var ids []string
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, due.ID)
	assert.NotContains(t, ids, later.ID)

	published := base
	claim := *due
	claim.Status = models.StatusPublished
	claim.PublishedAt = &published
	_, results := newPost(user, models.StatusPublished, base, models.Facebook)
	results[0].CrossPostID = due.ID

	ok, err := s.StartScheduledDelivery(ctx, &claim, results)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.StartScheduledDelivery(ctx, &claim, nil)
	require.NoError(t, err)
	assert.False(t, ok, "a claimed post is not claimed twice")

	got, err := s.GetCrossPost(ctx, user, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, got.Status)
	stored, err := s.ListDeliveryResults(ctx, due.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	require.NoError(t, s.MarkCrossPostFailed(ctx, due.ID))
	got, err = s.GetCrossPost(ctx, user, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, got.Status, "published posts stay published")

	require.NoError(t, s.MarkCrossPostFailed(ctx, broken.ID))
	got, err = s.GetCrossPost(ctx, user, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
}

func testAnalyticsSnapshots(t *testing.T, s store) {
	ctx := context.Background()
	user := "an-" + uuid.New().String()

	_, err := s.LatestAnalyticsSnapshot(ctx, user)
	assert.ErrorIs(t, err, models.ErrNotFound)

	for i, date := range []string{"2026-10-15", "2026-10-16", "2026-10-17"} {
		require.NoError(t, s.UpsertAnalyticsSnapshot(ctx, &models.AnalyticsSnapshot{
			UserID: user, Date: date, TotalPosts: int64(i + 1), NewPosts: 1, UpdatedAt: base,
		}))
	}
	require.NoError(t, s.UpsertAnalyticsSnapshot(ctx, &models.AnalyticsSnapshot{
		UserID: user, Date: "2026-10-17", TotalPosts: 9, NewPosts: 7, UpdatedAt: base.Add(time.Minute),
	}))

	today, err := s.GetAnalyticsSnapshot(ctx, user, "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, int64(9), today.TotalPosts)
	assert.Equal(t, int64(7), today.NewPosts)

	prev, err := s.PreviousAnalyticsSnapshot(ctx, user, "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", prev.Date)
	_, err = s.PreviousAnalyticsSnapshot(ctx, user, "2026-10-15")
	assert.ErrorIs(t, err, models.ErrNotFound)

	latest, err := s.LatestAnalyticsSnapshot(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", latest.Date)

	since, err := s.ListAnalyticsSnapshots(ctx, user, "2026-10-16")
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, "2026-10-16", since[0].Date)
	assert.Equal(t, "2026-10-17", since[1].Date)
}
