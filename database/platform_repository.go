package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"CrossPostAPI/models"
)

const platformColumns = `id, user_id, platform, is_connected, platform_username, access_token, refresh_token,
	token_expires_at, followers_count, following_count, posts_count, engagement_rate, last_synced_at, created_at`

func (d *Database) CreatePlatformConnection(ctx context.Context, conn *models.PlatformConnection) error {
	query := `INSERT INTO platform_connections (id, user_id, platform, is_connected, platform_username, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := d.DB.ExecContext(ctx, query, conn.ID, conn.UserID, conn.Platform, conn.IsConnected, conn.Username, conn.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", models.ErrDuplicateConnection, conn.Platform)
	}
	return err
}

func (d *Database) DeletePlatformConnection(ctx context.Context, userID, id string) error {
	result, err := d.DB.ExecContext(ctx, `DELETE FROM platform_connections WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (d *Database) ListPlatformConnections(ctx context.Context, userID string) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + platformColumns + ` FROM platform_connections
			  WHERE user_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := d.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conns := []*models.PlatformConnection{}
	for rows.Next() {
		conn, err := d.scanPlatformConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func (d *Database) GetPlatformConnection(ctx context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error) {
	query := `SELECT ` + platformColumns + ` FROM platform_connections WHERE user_id = $1 AND platform = $2`
	return d.getPlatformConnection(ctx, query, userID, platform)
}

func (d *Database) GetPlatformConnectionByID(ctx context.Context, userID, id string) (*models.PlatformConnection, error) {
	query := `SELECT ` + platformColumns + ` FROM platform_connections WHERE user_id = $1 AND id = $2`
	return d.getPlatformConnection(ctx, query, userID, id)
}

func (d *Database) getPlatformConnection(ctx context.Context, query string, args ...interface{}) (*models.PlatformConnection, error) {
	conn, err := d.scanPlatformConnection(d.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return conn, err
}

func (d *Database) SetPlatformCredential(ctx context.Context, userID, id, username string, cred *models.Credential) error {
	access, err := d.cipher.Encrypt(cred.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := d.cipher.Encrypt(cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	query := `UPDATE platform_connections
			  SET is_connected = true, platform_username = $1, access_token = $2, refresh_token = $3, token_expires_at = $4
			  WHERE id = $5 AND user_id = $6`

	result, err := d.DB.ExecContext(ctx, query, username, access, refresh, cred.ExpiresAt, id, userID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (d *Database) UpdatePlatformMetrics(ctx context.Context, userID, id string, metrics models.PlatformMetrics, syncedAt time.Time) error {
	query := `UPDATE platform_connections
			  SET followers_count = $1, following_count = $2, posts_count = $3, engagement_rate = $4, last_synced_at = $5
			  WHERE id = $6 AND user_id = $7`

	result, err := d.DB.ExecContext(ctx, query, metrics.Followers, metrics.Following, metrics.Posts,
		metrics.EngagementRate, syncedAt, id, userID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (d *Database) ListUsersWithPlatforms(ctx context.Context) ([]string, error) {
	rows, err := d.DB.QueryContext(ctx, `SELECT DISTINCT user_id FROM platform_connections ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanPlatformConnection(row rowScanner) (*models.PlatformConnection, error) {
	conn := &models.PlatformConnection{}
	var access, refresh sql.NullString
	var expires sql.NullTime

	err := row.Scan(&conn.ID, &conn.UserID, &conn.Platform, &conn.IsConnected, &conn.Username,
		&access, &refresh, &expires, &conn.Followers, &conn.Following, &conn.Posts,
		&conn.EngagementRate, &conn.LastSyncedAt, &conn.CreatedAt)
	if err != nil {
		return nil, err
	}

	if access.Valid && access.String != "" {
		cred := &models.Credential{}
		if cred.AccessToken, err = d.cipher.Decrypt(access.String); err != nil {
			return nil, fmt.Errorf("decrypt access token: %w", err)
		}
		if cred.RefreshToken, err = d.cipher.Decrypt(refresh.String); err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
		if expires.Valid {
			cred.ExpiresAt = &expires.Time
		}
		conn.Credential = cred
	}
	return conn, nil
}
