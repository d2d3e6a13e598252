package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"CrossPostAPI/models"
)

const snapshotColumns = `user_id, date, total_connections, new_connections, total_posts, new_posts,
	total_engagement, profile_views, total_reach, avg_engagement_rate, updated_at`

// UpsertAnalyticsSnapshot writes the snapshot for (user, date), replacing any
// earlier computation for the same day.
func (d *Database) UpsertAnalyticsSnapshot(ctx context.Context, s *models.AnalyticsSnapshot) error {
	query := `INSERT INTO network_analytics (user_id, date, total_connections, new_connections, total_posts, new_posts,
				total_engagement, profile_views, total_reach, avg_engagement_rate, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  ON CONFLICT (user_id, date) DO UPDATE SET
				total_connections = EXCLUDED.total_connections,
				new_connections = EXCLUDED.new_connections,
				total_posts = EXCLUDED.total_posts,
				new_posts = EXCLUDED.new_posts,
				total_engagement = EXCLUDED.total_engagement,
				profile_views = EXCLUDED.profile_views,
				total_reach = EXCLUDED.total_reach,
				avg_engagement_rate = EXCLUDED.avg_engagement_rate,
				updated_at = EXCLUDED.updated_at`

	_, err := d.DB.ExecContext(ctx, query, s.UserID, s.Date, s.TotalConnections, s.NewConnections,
		s.TotalPosts, s.NewPosts, s.TotalEngagement, s.ProfileViews, s.TotalReach, s.AvgEngagementRate, s.UpdatedAt)
	return err
}

func (d *Database) GetAnalyticsSnapshot(ctx context.Context, userID, date string) (*models.AnalyticsSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM network_analytics WHERE user_id = $1 AND date = $2`
	return d.getSnapshot(ctx, query, userID, date)
}

// PreviousAnalyticsSnapshot returns the most recent snapshot strictly before date.
func (d *Database) PreviousAnalyticsSnapshot(ctx context.Context, userID, date string) (*models.AnalyticsSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM network_analytics
			  WHERE user_id = $1 AND date < $2 ORDER BY date DESC LIMIT 1`
	return d.getSnapshot(ctx, query, userID, date)
}

func (d *Database) LatestAnalyticsSnapshot(ctx context.Context, userID string) (*models.AnalyticsSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM network_analytics
			  WHERE user_id = $1 ORDER BY date DESC LIMIT 1`
	return d.getSnapshot(ctx, query, userID)
}

func (d *Database) ListAnalyticsSnapshots(ctx context.Context, userID, sinceDate string) ([]*models.AnalyticsSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM network_analytics
			  WHERE user_id = $1 AND date >= $2 ORDER BY date ASC`

	rows, err := d.DB.QueryContext(ctx, query, userID, sinceDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := []*models.AnalyticsSnapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

func (d *Database) getSnapshot(ctx context.Context, query string, args ...interface{}) (*models.AnalyticsSnapshot, error) {
	s, err := scanSnapshot(d.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return s, err
}

func scanSnapshot(row rowScanner) (*models.AnalyticsSnapshot, error) {
	s := &models.AnalyticsSnapshot{}
	var date time.Time
	err := row.Scan(&s.UserID, &date, &s.TotalConnections, &s.NewConnections, &s.TotalPosts, &s.NewPosts,
		&s.TotalEngagement, &s.ProfileViews, &s.TotalReach, &s.AvgEngagementRate, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Date = date.Format(dateLayout)
	return s, nil
}

// NetworkTotals counts the social graph and feed activity a snapshot is built
// from, plus the reach of the user's platform connections.
func (d *Database) NetworkTotals(ctx context.Context, userID, date string) (models.NetworkTotals, error) {
	var totals models.NetworkTotals

	query := `SELECT
		(SELECT COUNT(*) FROM connections
			WHERE status = 'accepted' AND (user_id = $1 OR connected_user_id = $1)),
		(SELECT COUNT(*) FROM posts WHERE user_id = $1),
		(SELECT COUNT(*) FROM likes l JOIN posts p ON p.id = l.post_id WHERE p.user_id = $1)
			+ (SELECT COUNT(*) FROM comments c JOIN posts p ON p.id = c.post_id WHERE p.user_id = $1),
		(SELECT COUNT(*) FROM profile_views WHERE profile_id = $1 AND (viewed_at AT TIME ZONE 'UTC')::date = $2::date),
		(SELECT COALESCE(SUM(followers_count), 0)::bigint FROM platform_connections WHERE user_id = $1),
		(SELECT COALESCE(AVG(engagement_rate), 0)::double precision FROM platform_connections WHERE user_id = $1)`

	err := d.DB.QueryRowContext(ctx, query, userID, date).Scan(&totals.Connections, &totals.Posts,
		&totals.Engagement, &totals.ProfileViews, &totals.Reach, &totals.EngagementRate)
	return totals, err
}
