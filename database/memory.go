package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"CrossPostAPI/models"

	"github.com/google/uuid"
)

// MemoryStore keeps every table in process memory. It implements the same
// methods as Database and is selected with DATABASE_URL=memory.
type MemoryStore struct {
	mu          sync.RWMutex
	platforms   []*models.PlatformConnection
	posts       map[string]*models.CrossPost
	results     map[string][]*models.DeliveryResult
	snapshots   map[string]map[string]*models.AnalyticsSnapshot
	connections []memConnection
	feed        map[string]string // post id -> owner
	likes       map[string]int64  // post id -> count
	comments    map[string]int64  // post id -> count
	views       []memView
}

type memConnection struct {
	userID, otherID, status string
}

type memView struct {
	profileID string
	at        time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:     make(map[string]*models.CrossPost),
		results:   make(map[string][]*models.DeliveryResult),
		snapshots: make(map[string]map[string]*models.AnalyticsSnapshot),
		feed:      make(map[string]string),
		likes:     make(map[string]int64),
		comments:  make(map[string]int64),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) CreatePlatformConnection(_ context.Context, conn *models.PlatformConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.platforms {
		if existing.UserID == conn.UserID && existing.Platform == conn.Platform {
			return models.ErrDuplicateConnection
		}
	}
	c := *conn
	m.platforms = append(m.platforms, &c)
	return nil
}

func (m *MemoryStore) DeletePlatformConnection(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.platforms {
		if c.ID == id && c.UserID == userID {
			m.platforms = append(m.platforms[:i], m.platforms[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *MemoryStore) ListPlatformConnections(_ context.Context, userID string) ([]*models.PlatformConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*models.PlatformConnection{}
	for _, c := range m.platforms {
		if c.UserID == userID {
			out = append(out, copyConnection(c))
		}
	}
	return out, nil
}

func (m *MemoryStore) GetPlatformConnection(_ context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error) {
	return m.findConnection(func(c *models.PlatformConnection) bool {
		return c.UserID == userID && c.Platform == platform
	})
}

func (m *MemoryStore) GetPlatformConnectionByID(_ context.Context, userID, id string) (*models.PlatformConnection, error) {
	return m.findConnection(func(c *models.PlatformConnection) bool {
		return c.UserID == userID && c.ID == id
	})
}

func (m *MemoryStore) findConnection(match func(*models.PlatformConnection) bool) (*models.PlatformConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.platforms {
		if match(c) {
			return copyConnection(c), nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MemoryStore) SetPlatformCredential(_ context.Context, userID, id, username string, cred *models.Credential) error {
	return m.updateConnection(userID, id, func(c *models.PlatformConnection) {
		cr := *cred
		c.Credential = &cr
		c.Username = username
		c.IsConnected = true
	})
}

func (m *MemoryStore) UpdatePlatformMetrics(_ context.Context, userID, id string, metrics models.PlatformMetrics, syncedAt time.Time) error {
	return m.updateConnection(userID, id, func(c *models.PlatformConnection) {
		c.PlatformMetrics = metrics
		c.LastSyncedAt = &syncedAt
	})
}

func (m *MemoryStore) updateConnection(userID, id string, fn func(*models.PlatformConnection)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.platforms {
		if c.ID == id && c.UserID == userID {
			fn(c)
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *MemoryStore) ListUsersWithPlatforms(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var users []string
	for _, c := range m.platforms {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			users = append(users, c.UserID)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (m *MemoryStore) CreateCrossPost(_ context.Context, post *models.CrossPost, results []*models.DeliveryResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := *post
	m.posts[p.ID] = &p
	m.results[p.ID] = copyResults(results)
	return nil
}

func (m *MemoryStore) StartScheduledDelivery(_ context.Context, post *models.CrossPost, results []*models.DeliveryResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.posts[post.ID]
	if !ok || stored.Status != models.StatusScheduled {
		return false, nil
	}
	stored.Status = models.StatusPublished
	stored.PublishedAt = post.PublishedAt
	m.results[post.ID] = copyResults(results)
	return true, nil
}

func (m *MemoryStore) MarkCrossPostFailed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.posts[id]; ok && !p.Status.Final() {
		p.Status = models.StatusFailed
	}
	return nil
}

func (m *MemoryStore) CompleteDelivery(_ context.Context, r *models.DeliveryResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, stored := range m.results[r.CrossPostID] {
		if stored.ID == r.ID && stored.Status == models.DeliveryPending {
			stored.Status = r.Status
			stored.ExternalPostID = r.ExternalPostID
			stored.ExternalURL = r.ExternalURL
			stored.ErrorMessage = r.ErrorMessage
			stored.CompletedAt = r.CompletedAt
		}
	}
	return nil
}

func (m *MemoryStore) GetCrossPost(_ context.Context, userID, id string) (*models.CrossPost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[id]
	if !ok || p.UserID != userID {
		return nil, models.ErrNotFound
	}
	return copyPost(p), nil
}

func (m *MemoryStore) ListCrossPosts(_ context.Context, userID string) ([]*models.CrossPost, error) {
	return m.filterPosts(func(p *models.CrossPost) bool { return p.UserID == userID }, func(a, b *models.CrossPost) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (m *MemoryStore) ListDueCrossPosts(_ context.Context, now time.Time) ([]*models.CrossPost, error) {
	return m.filterPosts(func(p *models.CrossPost) bool {
		return p.Status == models.StatusScheduled && p.ScheduledFor != nil && !p.ScheduledFor.After(now)
	}, func(a, b *models.CrossPost) bool {
		return a.ScheduledFor.Before(*b.ScheduledFor)
	}), nil
}

func (m *MemoryStore) filterPosts(keep func(*models.CrossPost) bool, less func(a, b *models.CrossPost) bool) []*models.CrossPost {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*models.CrossPost{}
	for _, p := range m.posts {
		if keep(p) {
			out = append(out, copyPost(p))
		}
	}
	// Ties fall back to id so the order matches the SQL ORDER BY.
	sort.Slice(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryStore) DeleteCrossPost(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || p.UserID != userID {
		return models.ErrNotFound
	}
	delete(m.posts, id)
	delete(m.results, id)
	return nil
}

func (m *MemoryStore) ListDeliveryResults(_ context.Context, crossPostID string) ([]*models.DeliveryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyResults(m.results[crossPostID]), nil
}

func (m *MemoryStore) MirrorFeedPost(_ context.Context, userID, _ string, _ time.Time) error {
	m.AddFeedPost(userID)
	return nil
}

func (m *MemoryStore) UpsertAnalyticsSnapshot(_ context.Context, s *models.AnalyticsSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDate, ok := m.snapshots[s.UserID]
	if !ok {
		byDate = make(map[string]*models.AnalyticsSnapshot)
		m.snapshots[s.UserID] = byDate
	}
	cp := *s
	byDate[s.Date] = &cp
	return nil
}

func (m *MemoryStore) GetAnalyticsSnapshot(_ context.Context, userID, date string) (*models.AnalyticsSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.snapshots[userID][date]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (m *MemoryStore) PreviousAnalyticsSnapshot(_ context.Context, userID, date string) (*models.AnalyticsSnapshot, error) {
	return m.pickSnapshot(userID, func(d string) bool { return d < date })
}

func (m *MemoryStore) LatestAnalyticsSnapshot(_ context.Context, userID string) (*models.AnalyticsSnapshot, error) {
	return m.pickSnapshot(userID, func(string) bool { return true })
}

// pickSnapshot returns the latest snapshot whose date passes keep. ISO dates
// compare correctly as strings.
func (m *MemoryStore) pickSnapshot(userID string, keep func(date string) bool) (*models.AnalyticsSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *models.AnalyticsSnapshot
	for date, s := range m.snapshots[userID] {
		if keep(date) && (best == nil || date > best.Date) {
			best = s
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *MemoryStore) ListAnalyticsSnapshots(_ context.Context, userID, sinceDate string) ([]*models.AnalyticsSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*models.AnalyticsSnapshot{}
	for date, s := range m.snapshots[userID] {
		if date >= sinceDate {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MemoryStore) NetworkTotals(_ context.Context, userID, date string) (models.NetworkTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var totals models.NetworkTotals
	for _, c := range m.connections {
		if c.status == "accepted" && (c.userID == userID || c.otherID == userID) {
			totals.Connections++
		}
	}
	for postID, owner := range m.feed {
		if owner == userID {
			totals.Posts++
			totals.Engagement += m.likes[postID] + m.comments[postID]
		}
	}
	for _, v := range m.views {
		if v.profileID == userID && v.at.UTC().Format(dateLayout) == date {
			totals.ProfileViews++
		}
	}

	var platforms int
	var rateSum float64
	for _, c := range m.platforms {
		if c.UserID == userID {
			platforms++
			totals.Reach += c.Followers
			rateSum += c.EngagementRate
		}
	}
	if platforms > 0 {
		totals.EngagementRate = rateSum / float64(platforms)
	}
	return totals, nil
}

// AddConnection records a social-graph connection between two users.
func (m *MemoryStore) AddConnection(userID, otherID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections = append(m.connections, memConnection{userID: userID, otherID: otherID, status: status})
}

// AddFeedPost records a native feed post and returns its id.
func (m *MemoryStore) AddFeedPost(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.feed[id] = userID
	return id
}

func (m *MemoryStore) AddEngagement(postID string, likes, comments int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.likes[postID] += likes
	m.comments[postID] += comments
}

func (m *MemoryStore) AddProfileView(profileID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, memView{profileID: profileID, at: at})
}

func copyConnection(c *models.PlatformConnection) *models.PlatformConnection {
	cp := *c
	if c.Credential != nil {
		cred := *c.Credential
		cp.Credential = &cred
	}
	return &cp
}

func copyPost(p *models.CrossPost) *models.CrossPost {
	cp := *p
	cp.Platforms = append([]models.Platform(nil), p.Platforms...)
	return &cp
}

func copyResults(results []*models.DeliveryResult) []*models.DeliveryResult {
	out := make([]*models.DeliveryResult, len(results))
	for i, r := range results {
		cp := *r
		out[i] = &cp
	}
	return out
}
