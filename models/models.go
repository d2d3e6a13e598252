package models

import "time"

type Platform string

const (
	LinkedIn  Platform = "linkedin"
	Twitter   Platform = "twitter"
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
)

// AllPlatforms lists every supported platform kind in display order.
var AllPlatforms = []Platform{LinkedIn, Twitter, Instagram, Facebook, TikTok, YouTube}

func (p Platform) Valid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusScheduled PostStatus = "scheduled"
	StatusPublished PostStatus = "published"
	StatusFailed    PostStatus = "failed"
)

// Final reports whether the post can no longer change status.
func (s PostStatus) Final() bool {
	return s == StatusPublished || s == StatusFailed
}

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
)

type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionNotConnected ConnectionStatus = "not_connected"
	ConnectionAbsent       ConnectionStatus = "absent"
)

type Outcome string

const (
	OutcomeAllSucceeded Outcome = "all_succeeded"
	OutcomePartial      Outcome = "partial"
	OutcomeAllFailed    Outcome = "all_failed"
)

// Credential is the token material attached to a connected platform.
type Credential struct {
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type PlatformMetrics struct {
	Followers      int64   `json:"followers_count"`
	Following      int64   `json:"following_count"`
	Posts          int64   `json:"posts_count"`
	EngagementRate float64 `json:"engagement_rate"`
}

type PlatformConnection struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Platform    Platform    `json:"platform"`
	IsConnected bool        `json:"is_connected"`
	Username    string      `json:"platform_username,omitempty"`
	Credential  *Credential `json:"-"`
	PlatformMetrics
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type CrossPost struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Content      string     `json:"content"`
	Platforms    []Platform `json:"platforms"`
	Status       PostStatus `json:"status"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Engagement struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

type DeliveryResult struct {
	ID             string         `json:"id"`
	CrossPostID    string         `json:"cross_post_id"`
	Platform       Platform       `json:"platform"`
	Status         DeliveryStatus `json:"status"`
	ExternalPostID string         `json:"external_post_id,omitempty"`
	ExternalURL    string         `json:"platform_post_url,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	Engagement
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the result has left the pending placeholder state.
func (r *DeliveryResult) Terminal() bool {
	return r.Status == DeliverySuccess || r.Status == DeliveryFailed
}

type AnalyticsSnapshot struct {
	UserID           string `json:"user_id"`
	Date             string `json:"date"`
	TotalConnections int64  `json:"total_connections"`
	NewConnections   int64  `json:"new_connections"`
	TotalPosts       int64  `json:"total_posts"`
	NewPosts         int64  `json:"new_posts"`
	TotalEngagement  int64  `json:"total_engagement"`
	ProfileViews     int64  `json:"profile_views"`

	// TotalReach sums the cached follower counts of the user's platforms.
	TotalReach        int64     `json:"total_reach"`
	AvgEngagementRate float64   `json:"avg_engagement_rate"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NetworkTotals are the raw counts an analytics snapshot is derived from.
type NetworkTotals struct {
	Connections  int64
	Posts        int64
	Engagement   int64
	ProfileViews int64

	// Reach and EngagementRate aggregate the platform metrics last synced
	// into the registry. EngagementRate is the mean across all platforms.
	Reach          int64
	EngagementRate float64
}

type DeliverySummary struct {
	Total     int     `json:"total"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	Pending   int     `json:"pending"`
	Outcome   Outcome `json:"outcome"`
}

type CrossPostDetail struct {
	CrossPost *CrossPost        `json:"cross_post"`
	Results   []*DeliveryResult `json:"results"`
	Summary   DeliverySummary   `json:"summary"`
}

type PublishRequest struct {
	Content      string     `json:"content" validate:"required"`
	Platforms    []Platform `json:"platforms" validate:"required,min=1,dive,oneof=linkedin twitter instagram facebook tiktok youtube"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

type AddPlatformRequest struct {
	Platform Platform `json:"platform" validate:"required,oneof=linkedin twitter instagram facebook tiktok youtube"`
}

type ConnectPlatformRequest struct {
	Username     string     `json:"platform_username" validate:"required"`
	AccessToken  string     `json:"access_token" validate:"required"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type SyncMetricsRequest struct {
	Followers      int64   `json:"followers_count" validate:"gte=0"`
	Following      int64   `json:"following_count" validate:"gte=0"`
	Posts          int64   `json:"posts_count" validate:"gte=0"`
	EngagementRate float64 `json:"engagement_rate" validate:"gte=0,lte=100"`
}

type ConnectionStatusResponse struct {
	Platform Platform         `json:"platform"`
	Status   ConnectionStatus `json:"status"`
}
