package collectors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gigmap/gigmap/pkg/domain"
)

// FollowRepository stores the caller's followed artists and venues and
// serves them as a snapshot for the following-only filter.
type FollowRepository struct {
	db *sql.DB
}

func NewFollowRepository(db *sql.DB) (*FollowRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	repo := &FollowRepository{db: db}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return repo, nil
}

func (r *FollowRepository) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS followed_artists (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS followed_venues (
		name TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (name, city, state)
	);
	`

	_, err := r.db.Exec(query)
	return err
}

func (r *FollowRepository) FollowArtist(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrInvalidRequest
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO followed_artists (name) VALUES (?)`, name)
	if err != nil {
		return fmt.Errorf("failed to follow artist: %w", err)
	}
	return nil
}

func (r *FollowRepository) UnfollowArtist(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM followed_artists WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("failed to unfollow artist: %w", err)
	}
	return nil
}

func (r *FollowRepository) FollowVenue(ctx context.Context, venue domain.FollowedVenue) error {
	venue.Name = strings.TrimSpace(venue.Name)
	if venue.Name == "" {
		return domain.ErrInvalidRequest
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO followed_venues (name, city, state) VALUES (?, ?, ?)`,
		venue.Name, venue.City, venue.State)
	if err != nil {
		return fmt.Errorf("failed to follow venue: %w", err)
	}
	return nil
}

func (r *FollowRepository) UnfollowVenue(ctx context.Context, venue domain.FollowedVenue) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM followed_venues WHERE name = ? AND city = ? AND state = ?`,
		strings.TrimSpace(venue.Name), venue.City, venue.State)
	if err != nil {
		return fmt.Errorf("failed to unfollow venue: %w", err)
	}
	return nil
}

// Follows returns the full follow state in one snapshot.
func (r *FollowRepository) Follows(ctx context.Context) (domain.FollowState, error) {
	var state domain.FollowState

	rows, err := r.db.QueryContext(ctx, `SELECT name FROM followed_artists ORDER BY name`)
	if err != nil {
		return state, fmt.Errorf("failed to query followed artists: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return state, fmt.Errorf("failed to scan followed artist: %w", err)
		}
		state.Artists = append(state.Artists, name)
	}
	if err := rows.Err(); err != nil {
		return state, err
	}

	venueRows, err := r.db.QueryContext(ctx,
		`SELECT name, city, state FROM followed_venues ORDER BY name`)
	if err != nil {
		return state, fmt.Errorf("failed to query followed venues: %w", err)
	}
	defer venueRows.Close()

	for venueRows.Next() {
		var v domain.FollowedVenue
		if err := venueRows.Scan(&v.Name, &v.City, &v.State); err != nil {
			return state, fmt.Errorf("failed to scan followed venue: %w", err)
		}
		state.Venues = append(state.Venues, v)
	}

	return state, venueRows.Err()
}
