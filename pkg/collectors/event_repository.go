package collectors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigmap/gigmap/pkg/domain"
	"github.com/gigmap/gigmap/pkg/geo"
)

// maxRegionRows caps any region query regardless of the caller's limit.
const maxRegionRows = 500

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) (*EventRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	repo := &EventRepository{db: db}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return repo, nil
}

func (r *EventRepository) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT,
		artist_id TEXT,
		artist_name TEXT NOT NULL,
		venue_id TEXT,
		venue_name TEXT NOT NULL,
		venue_address TEXT,
		venue_city TEXT NOT NULL,
		venue_state TEXT,
		venue_zip TEXT,
		venue_latitude REAL,
		venue_longitude REAL,
		datetime TIMESTAMP NOT NULL,
		doors_time TIMESTAMP,
		genres TEXT,
		has_tickets INTEGER NOT NULL DEFAULT 0,
		price_range TEXT,
		ticket_links TEXT,
		source TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_datetime ON events(datetime);
	CREATE INDEX IF NOT EXISTS idx_events_city ON events(venue_city, venue_state);
	CREATE INDEX IF NOT EXISTS idx_events_location ON events(venue_latitude, venue_longitude);
	CREATE INDEX IF NOT EXISTS idx_events_source ON events(source);
	`

	_, err := r.db.Exec(query)
	return err
}

const eventColumns = `id, title, artist_id, artist_name,
	venue_id, venue_name, venue_address, venue_city, venue_state, venue_zip,
	venue_latitude, venue_longitude, datetime, doors_time,
	genres, has_tickets, price_range, ticket_links, source,
	created_at, updated_at`

func (r *EventRepository) Create(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	query := `
	INSERT INTO events (` + eventColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query, insertArgs(event)...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

// CreateBatch upserts a page of ingested events in one transaction.
// Rows without an ID get a generated one so repeated population calls
// stay idempotent for sources that provide stable IDs.
func (r *EventRepository) CreateBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, event := range events {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		event.CreatedAt = now
		event.UpdatedAt = now

		if _, err := stmt.ExecContext(ctx, insertArgs(&event)...); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	return tx.Commit()
}

func insertArgs(event *domain.Event) []interface{} {
	var doors sql.NullTime
	if event.DoorsTime != nil {
		doors = sql.NullTime{Time: *event.DoorsTime, Valid: true}
	}

	return []interface{}{
		event.ID,
		event.Title,
		event.ArtistID,
		event.ArtistName,
		event.Venue.ID,
		event.Venue.Name,
		event.Venue.Address,
		event.Venue.City,
		event.Venue.State,
		event.Venue.Zip,
		event.Venue.Latitude,
		event.Venue.Longitude,
		event.DateTime,
		doors,
		strings.Join(event.Genres, ","),
		event.HasTickets,
		event.PriceRange,
		strings.Join(event.TicketLinks, ","),
		event.Source,
		event.CreatedAt,
		event.UpdatedAt,
	}
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by id: %w", err)
	}

	return event, nil
}

// QueryRegion returns upcoming events for a bounding box or a
// center-plus-radius region. The radius path pre-filters with a coarse
// degree box in SQL and applies the exact Haversine test in Go.
func (r *EventRepository) QueryRegion(ctx context.Context, q domain.RegionQuery) ([]domain.Event, error) {
	limit := q.Limit
	if limit <= 0 || limit > maxRegionRows {
		limit = maxRegionRows
	}

	var box domain.BoundingBox
	switch {
	case q.Bounds != nil:
		box = *q.Bounds
	case q.Center != nil && q.Center.Valid() && q.RadiusMiles > 0:
		box = geo.BoundsAround(*q.Center, q.RadiusMiles)
	default:
		return nil, domain.ErrInvalidLocation
	}

	query := `
	SELECT ` + eventColumns + `
	FROM events
	WHERE datetime >= ?
		AND venue_latitude BETWEEN ? AND ?
		AND venue_longitude BETWEEN ? AND ?
	`
	args := []interface{}{time.Now(), box.South, box.North, box.West, box.East}

	if q.Source != "" {
		query += " AND source = ?"
		args = append(args, q.Source)
	}

	query += " ORDER BY datetime ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query region: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}

	if q.Bounds != nil {
		return events, nil
	}

	within := make([]domain.Event, 0, len(events))
	for _, e := range events {
		point, ok := e.Point()
		if ok && geo.WithinMiles(*q.Center, point, q.RadiusMiles) {
			within = append(within, e)
		}
	}
	return within, nil
}

// CityIndex materializes per-city upcoming event counts for the facet
// picker. Rows come back raw; the cities package canonicalizes them.
func (r *EventRepository) CityIndex(ctx context.Context) ([]domain.CityCount, error) {
	query := `
	SELECT venue_city, venue_state, COUNT(*) AS event_count
	FROM events
	WHERE datetime >= ?
	GROUP BY venue_city, venue_state
	ORDER BY event_count DESC
	`

	rows, err := r.db.QueryContext(ctx, query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query city index: %w", err)
	}
	defer rows.Close()

	var counts []domain.CityCount
	for rows.Next() {
		var c domain.CityCount
		var state sql.NullString
		if err := rows.Scan(&c.City, &state, &c.EventCount); err != nil {
			return nil, fmt.Errorf("failed to scan city count: %w", err)
		}
		c.State = state.String
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// DeletePast drops events whose date has already gone by.
func (r *EventRepository) DeletePast(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE datetime < ?`, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete past events: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEventRow(s rowScanner) (*domain.Event, error) {
	var event domain.Event
	var doors sql.NullTime
	var genres, links, artistID, venueID, address, state, zip, price, source, title sql.NullString

	err := s.Scan(
		&event.ID,
		&title,
		&artistID,
		&event.ArtistName,
		&venueID,
		&event.Venue.Name,
		&address,
		&event.Venue.City,
		&state,
		&zip,
		&event.Venue.Latitude,
		&event.Venue.Longitude,
		&event.DateTime,
		&doors,
		&genres,
		&event.HasTickets,
		&price,
		&links,
		&source,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Title = title.String
	event.ArtistID = artistID.String
	event.Venue.ID = venueID.String
	event.Venue.Address = address.String
	event.Venue.State = state.String
	event.Venue.Zip = zip.String
	event.PriceRange = price.String
	event.Source = source.String
	if doors.Valid {
		t := doors.Time
		event.DoorsTime = &t
	}
	if genres.String != "" {
		event.Genres = strings.Split(genres.String, ",")
	}
	if links.String != "" {
		event.TicketLinks = strings.Split(links.String, ",")
	}

	return &event, nil
}

func scanEvent(row *sql.Row) (*domain.Event, error) {
	return scanEventRow(row)
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}
