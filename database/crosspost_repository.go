package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"CrossPostAPI/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const crossPostColumns = `id, user_id, content, platforms, status, scheduled_for, published_at, created_at`

const resultColumns = `id, cross_platform_post_id, platform, status, external_post_id, platform_post_url,
	error_message, likes, comments, shares, created_at, completed_at`

// CreateCrossPost inserts the post and its initial delivery results atomically.
func (d *Database) CreateCrossPost(ctx context.Context, post *models.CrossPost, results []*models.DeliveryResult) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO cross_platform_posts (id, user_id, content, platforms, status, scheduled_for, published_at, created_at)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		_, err := tx.ExecContext(ctx, query, post.ID, post.UserID, post.Content, pq.Array(platformStrings(post.Platforms)),
			post.Status, post.ScheduledFor, post.PublishedAt, post.CreatedAt)
		if err != nil {
			return err
		}
		return insertResults(ctx, tx, results)
	})
}

// StartScheduledDelivery moves a due scheduled post to published and records
// its pending results. It returns false when another worker got there first.
func (d *Database) StartScheduledDelivery(ctx context.Context, post *models.CrossPost, results []*models.DeliveryResult) (bool, error) {
	started := false
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE cross_platform_posts SET status = $1, published_at = $2 WHERE id = $3 AND status = $4`,
			models.StatusPublished, post.PublishedAt, post.ID, models.StatusScheduled)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil
		}
		started = true
		return insertResults(ctx, tx, results)
	})
	if err != nil {
		return false, err
	}
	return started, nil
}

func (d *Database) MarkCrossPostFailed(ctx context.Context, id string) error {
	_, err := d.DB.ExecContext(ctx,
		`UPDATE cross_platform_posts SET status = $1 WHERE id = $2 AND status IN ($3, $4)`,
		models.StatusFailed, id, models.StatusDraft, models.StatusScheduled)
	return err
}

func insertResults(ctx context.Context, tx *sql.Tx, results []*models.DeliveryResult) error {
	query := `INSERT INTO platform_post_results (id, cross_platform_post_id, platform, status, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	for _, r := range results {
		if _, err := tx.ExecContext(ctx, query, r.ID, r.CrossPostID, r.Platform, r.Status, r.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

// CompleteDelivery records the terminal outcome of a pending result. Results
// that are already terminal are left untouched.
func (d *Database) CompleteDelivery(ctx context.Context, r *models.DeliveryResult) error {
	query := `UPDATE platform_post_results
			  SET status = $1, external_post_id = $2, platform_post_url = $3, error_message = $4, completed_at = $5
			  WHERE id = $6 AND status = $7`

	_, err := d.DB.ExecContext(ctx, query, r.Status, r.ExternalPostID, r.ExternalURL, r.ErrorMessage,
		r.CompletedAt, r.ID, models.DeliveryPending)
	return err
}

func (d *Database) GetCrossPost(ctx context.Context, userID, id string) (*models.CrossPost, error) {
	query := `SELECT ` + crossPostColumns + ` FROM cross_platform_posts WHERE id = $1 AND user_id = $2`

	post, err := scanCrossPost(d.DB.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return post, err
}

func (d *Database) ListCrossPosts(ctx context.Context, userID string) ([]*models.CrossPost, error) {
	query := `SELECT ` + crossPostColumns + ` FROM cross_platform_posts WHERE user_id = $1 ORDER BY created_at DESC, id ASC`
	return d.queryCrossPosts(ctx, query, userID)
}

func (d *Database) ListDueCrossPosts(ctx context.Context, now time.Time) ([]*models.CrossPost, error) {
	query := `SELECT ` + crossPostColumns + ` FROM cross_platform_posts
			  WHERE status = $1 AND scheduled_for <= $2 ORDER BY scheduled_for ASC, id ASC`
	return d.queryCrossPosts(ctx, query, models.StatusScheduled, now)
}

func (d *Database) queryCrossPosts(ctx context.Context, query string, args ...interface{}) ([]*models.CrossPost, error) {
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*models.CrossPost{}
	for rows.Next() {
		post, err := scanCrossPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (d *Database) DeleteCrossPost(ctx context.Context, userID, id string) error {
	result, err := d.DB.ExecContext(ctx, `DELETE FROM cross_platform_posts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (d *Database) ListDeliveryResults(ctx context.Context, crossPostID string) ([]*models.DeliveryResult, error) {
	query := `SELECT ` + resultColumns + ` FROM platform_post_results
			  WHERE cross_platform_post_id = $1 ORDER BY created_at ASC, platform ASC`

	rows, err := d.DB.QueryContext(ctx, query, crossPostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*models.DeliveryResult{}
	for rows.Next() {
		r := &models.DeliveryResult{}
		err := rows.Scan(&r.ID, &r.CrossPostID, &r.Platform, &r.Status, &r.ExternalPostID, &r.ExternalURL,
			&r.ErrorMessage, &r.Likes, &r.Comments, &r.Shares, &r.CreatedAt, &r.CompletedAt)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// MirrorFeedPost copies published content into the user's own feed.
func (d *Database) MirrorFeedPost(ctx context.Context, userID, content string, at time.Time) error {
	_, err := d.DB.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, content, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		uuid.New().String(), userID, content, at)
	return err
}

func scanCrossPost(row rowScanner) (*models.CrossPost, error) {
	post := &models.CrossPost{}
	var platforms []string

	err := row.Scan(&post.ID, &post.UserID, &post.Content, pq.Array(&platforms), &post.Status,
		&post.ScheduledFor, &post.PublishedAt, &post.CreatedAt)
	if err != nil {
		return nil, err
	}

	post.Platforms = make([]models.Platform, len(platforms))
	for i, p := range platforms {
		post.Platforms[i] = models.Platform(p)
	}
	return post, nil
}

func platformStrings(platforms []models.Platform) []string {
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = string(p)
	}
	return out
}
