// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/socialpulse/internal/social"
)

// ProfileStoreConfig controls the Postgres connection pool used for
// profile and post rows.
type ProfileStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// ProfileStore writes scraped profiles and posts into Postgres.
type ProfileStore struct {
	pool pgxPool
}

// NewProfileStore creates a Postgres-backed ProfileStore using the provided config.
func NewProfileStore(ctx context.Context, cfg ProfileStoreConfig) (*ProfileStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ProfileStore{pool: pool}, nil
}

// NewProfileStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewProfileStoreWithPool(pool pgxPool) (*ProfileStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ProfileStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ProfileStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveProfile upserts a profile row keyed by username.
func (s *ProfileStore) SaveProfile(ctx context.Context, profile social.Profile) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("profile store is not configured")
	}
	if profile.Username == "" {
		return fmt.Errorf("username is required")
	}
	query := `
INSERT INTO profiles (
	username,
	full_name,
	bio,
	location,
	website,
	followers_count,
	following_count,
	posts_count,
	join_date,
	verified,
	profile_image_url,
	banner_image_url,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW()
)
ON CONFLICT (username) DO UPDATE SET
	full_name = EXCLUDED.full_name,
	bio = EXCLUDED.bio,
	location = EXCLUDED.location,
	website = EXCLUDED.website,
	followers_count = EXCLUDED.followers_count,
	following_count = EXCLUDED.following_count,
	posts_count = EXCLUDED.posts_count,
	join_date = EXCLUDED.join_date,
	verified = EXCLUDED.verified,
	profile_image_url = EXCLUDED.profile_image_url,
	banner_image_url = EXCLUDED.banner_image_url,
	updated_at = NOW()`

	args := []any{
		profile.Username,
		profile.FullName,
		profile.Bio,
		profile.Location,
		profile.Website,
		profile.FollowersCount,
		profile.FollowingCount,
		profile.PostsCount,
		profile.JoinDate,
		profile.Verified,
		profile.ProfileImageURL,
		profile.BannerImageURL,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// SavePosts upserts post rows keyed by post id.
func (s *ProfileStore) SavePosts(ctx context.Context, username string, posts []social.Post) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("profile store is not configured")
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}
	query := `
INSERT INTO posts (
	id,
	username,
	full_name,
	text,
	posted_at,
	likes,
	reposts,
	replies,
	views,
	hashtags,
	mentions,
	media_urls,
	verified,
	is_reply,
	reply_to,
	url,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW()
)
ON CONFLICT (id) DO UPDATE SET
	text = EXCLUDED.text,
	likes = EXCLUDED.likes,
	reposts = EXCLUDED.reposts,
	replies = EXCLUDED.replies,
	views = EXCLUDED.views,
	updated_at = NOW()`

	for _, post := range posts {
		if post.ID == "" {
			continue
		}
		hashtags, err := json.Marshal(normalizeStrings(post.Hashtags))
		if err != nil {
			return fmt.Errorf("marshal hashtags: %w", err)
		}
		mentions, err := json.Marshal(normalizeStrings(post.Mentions))
		if err != nil {
			return fmt.Errorf("marshal mentions: %w", err)
		}
		mediaURLs, err := json.Marshal(normalizeStrings(post.MediaURLs))
		if err != nil {
			return fmt.Errorf("marshal media urls: %w", err)
		}
		args := []any{
			post.ID,
			username,
			post.FullName,
			post.Text,
			post.Timestamp,
			post.Likes,
			post.Reposts,
			post.Replies,
			post.Views,
			hashtags,
			mentions,
			mediaURLs,
			post.Verified,
			post.IsReply,
			post.ReplyTo,
			post.URL,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert post %s: %w", post.ID, err)
		}
	}
	return nil
}

// GetProfile loads a profile row by username.
func (s *ProfileStore) GetProfile(ctx context.Context, username string) (social.Profile, error) {
	if s == nil || s.pool == nil {
		return social.Profile{}, fmt.Errorf("profile store is not configured")
	}
	query := `
SELECT
	username,
	full_name,
	bio,
	location,
	website,
	followers_count,
	following_count,
	posts_count,
	join_date,
	verified,
	profile_image_url,
	banner_image_url
FROM profiles
WHERE username = $1`

	var p social.Profile
	err := s.pool.QueryRow(ctx, query, username).Scan(
		&p.Username,
		&p.FullName,
		&p.Bio,
		&p.Location,
		&p.Website,
		&p.FollowersCount,
		&p.FollowingCount,
		&p.PostsCount,
		&p.JoinDate,
		&p.Verified,
		&p.ProfileImageURL,
		&p.BannerImageURL,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return social.Profile{}, fmt.Errorf("profile %s: %w", username, social.ErrNotFound)
	}
	if err != nil {
		return social.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	return p, nil
}

// ListPosts loads the most recent posts for a username, newest first.
func (s *ProfileStore) ListPosts(ctx context.Context, username string, limit int) ([]social.Post, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("profile store is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	query := `
SELECT
	id,
	username,
	full_name,
	text,
	posted_at,
	likes,
	reposts,
	replies,
	views,
	hashtags,
	mentions,
	media_urls,
	verified,
	is_reply,
	reply_to,
	url
FROM posts
WHERE username = $1
ORDER BY posted_at DESC
LIMIT $2`

	rows, err := s.pool.Query(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("select posts: %w", err)
	}
	defer rows.Close()

	var posts []social.Post
	for rows.Next() {
		var (
			p         social.Post
			hashtags  []byte
			mentions  []byte
			mediaURLs []byte
		)
		if err := rows.Scan(
			&p.ID,
			&p.Username,
			&p.FullName,
			&p.Text,
			&p.Timestamp,
			&p.Likes,
			&p.Reposts,
			&p.Replies,
			&p.Views,
			&hashtags,
			&mentions,
			&mediaURLs,
			&p.Verified,
			&p.IsReply,
			&p.ReplyTo,
			&p.URL,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		if err := json.Unmarshal(hashtags, &p.Hashtags); err != nil {
			return nil, fmt.Errorf("unmarshal hashtags: %w", err)
		}
		if err := json.Unmarshal(mentions, &p.Mentions); err != nil {
			return nil, fmt.Errorf("unmarshal mentions: %w", err)
		}
		if err := json.Unmarshal(mediaURLs, &p.MediaURLs); err != nil {
			return nil, fmt.Errorf("unmarshal media urls: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func normalizeStrings(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	return append([]string(nil), in...)
}
