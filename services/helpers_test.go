package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"CrossPostAPI/database"
	"CrossPostAPI/models"
	"CrossPostAPI/publishers"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Deliver(ctx context.Context, cred *models.Credential, content string) (*publishers.Delivery, error) {
	args := m.Called(ctx, cred, content)
	d, _ := args.Get(0).(*publishers.Delivery)
	return d, args.Error(1)
}

// funcPublisher adapts a function to PlatformPublisher.
type funcPublisher func(ctx context.Context, cred *models.Credential, content string) (*publishers.Delivery, error)

func (f funcPublisher) Deliver(ctx context.Context, cred *models.Credential, content string) (*publishers.Delivery, error) {
	return f(ctx, cred, content)
}

// fakeClock is a settable clock safe for concurrent reads.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	store      *database.MemoryStore
	registry   *PlatformRegistry
	publishers *publishers.Registry
	dispatcher *DeliveryDispatcher
	crossPosts *CrossPostService
	clock      *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := database.NewMemoryStore()
	pubs := publishers.NewDemoRegistry(0)
	clock := newFakeClock(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))

	registry := NewPlatformRegistry(store)
	registry.now = clock.Now
	dispatcher := NewDeliveryDispatcher(store, pubs, time.Second)
	dispatcher.now = clock.Now

	return &testEnv{
		store:      store,
		registry:   registry,
		publishers: pubs,
		dispatcher: dispatcher,
		crossPosts: NewCrossPostService(store),
		clock:      clock,
	}
}

// addPlatform adds a platform for user and, when connected is set, attaches a token.
func (e *testEnv) addPlatform(t *testing.T, userID string, platform models.Platform, connected bool) *models.PlatformConnection {
	t.Helper()

	conn, err := e.registry.AddPlatform(context.Background(), userID, platform)
	require.NoError(t, err)
	e.clock.Advance(time.Second)

	if connected {
		conn, err = e.registry.ConnectPlatform(context.Background(), userID, conn.ID, "demo_"+string(platform),
			&models.Credential{AccessToken: "token-" + string(platform)})
		require.NoError(t, err)
	}
	return conn
}

func resultsByPlatform(results []*models.DeliveryResult) map[models.Platform]*models.DeliveryResult {
	out := make(map[models.Platform]*models.DeliveryResult, len(results))
	for _, r := range results {
		out[r.Platform] = r
	}
	return out
}
