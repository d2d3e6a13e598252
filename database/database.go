package database

import (
	"context"
	"database/sql"
	"errors"

	"CrossPostAPI/utils"

	"github.com/lib/pq"
)

const dateLayout = "2006-01-02"

type Database struct {
	DB     *sql.DB
	cipher *utils.TokenCipher
}

func NewDatabase(connStr string, cipher *utils.TokenCipher) (*Database, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{DB: db, cipher: cipher}
	if err := database.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return database, nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

func (d *Database) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS platform_connections (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			platform VARCHAR(50) NOT NULL,
			is_connected BOOLEAN NOT NULL DEFAULT false,
			platform_username VARCHAR(255) NOT NULL DEFAULT '',
			access_token TEXT,
			refresh_token TEXT,
			token_expires_at TIMESTAMPTZ,
			followers_count BIGINT NOT NULL DEFAULT 0,
			following_count BIGINT NOT NULL DEFAULT 0,
			posts_count BIGINT NOT NULL DEFAULT 0,
			engagement_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_synced_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS cross_platform_posts (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			platforms TEXT[] NOT NULL,
			status VARCHAR(50) NOT NULL,
			scheduled_for TIMESTAMPTZ,
			published_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cross_platform_posts_due
			ON cross_platform_posts (scheduled_for) WHERE status = 'scheduled'`,
		`CREATE TABLE IF NOT EXISTS platform_post_results (
			id VARCHAR(255) PRIMARY KEY,
			cross_platform_post_id VARCHAR(255) NOT NULL,
			platform VARCHAR(50) NOT NULL,
			status VARCHAR(50) NOT NULL,
			external_post_id VARCHAR(255) NOT NULL DEFAULT '',
			platform_post_url VARCHAR(500) NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			likes BIGINT NOT NULL DEFAULT 0,
			comments BIGINT NOT NULL DEFAULT 0,
			shares BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMPTZ,
			UNIQUE(cross_platform_post_id, platform),
			FOREIGN KEY (cross_platform_post_id) REFERENCES cross_platform_posts(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS network_analytics (
			user_id VARCHAR(255) NOT NULL,
			date DATE NOT NULL,
			total_connections BIGINT NOT NULL DEFAULT 0,
			new_connections BIGINT NOT NULL DEFAULT 0,
			total_posts BIGINT NOT NULL DEFAULT 0,
			new_posts BIGINT NOT NULL DEFAULT 0,
			total_engagement BIGINT NOT NULL DEFAULT 0,
			profile_views BIGINT NOT NULL DEFAULT 0,
			total_reach BIGINT NOT NULL DEFAULT 0,
			avg_engagement_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, date)
		)`,
		`ALTER TABLE network_analytics ADD COLUMN IF NOT EXISTS total_reach BIGINT NOT NULL DEFAULT 0`,
		`ALTER TABLE network_analytics ADD COLUMN IF NOT EXISTS avg_engagement_rate DOUBLE PRECISION NOT NULL DEFAULT 0`,
		// Tables owned by the social graph and feed; created here only so the
		// service can run against an empty database.
		`CREATE TABLE IF NOT EXISTS connections (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			connected_user_id VARCHAR(255) NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS likes (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			post_id VARCHAR(255) NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			post_id VARCHAR(255) NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS profile_views (
			id VARCHAR(255) PRIMARY KEY,
			profile_id VARCHAR(255) NOT NULL,
			viewer_id VARCHAR(255),
			viewed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := d.DB.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (d *Database) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
