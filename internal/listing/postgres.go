package listing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confirmit/marketd/internal/tracing"
)

// PostgresRepository implements Repository on PostgreSQL. The listing
// document is stored as a JSONB column; status and city are mirrored into
// plain columns so retrieval can apply the coarse structural filters in SQL,
// and the analytics counters live in bigint columns so increments are a
// single atomic UPDATE.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

const listingColumns = `id, doc, views, website_clicks, direction_requests,
	phone_clicks, whatsapp_clicks, instagram_clicks, last_viewed_at`

// FetchActive returns all active listings, optionally narrowed by city.
// Location takes precedence over city upstream, so callers pass an empty
// city whenever a user location is present.
func (r *PostgresRepository) FetchActive(ctx context.Context, city string) (out []*Listing, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "listings", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + listingColumns + `
		FROM listings
		WHERE status = $1 AND ($2 = '' OR city = $2)
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, StatusActive, city)
	if err != nil {
		return nil, fmt.Errorf("fetch active listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch active listings: %w", err)
	}
	return out, nil
}

// GetByID retrieves a single listing.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Listing, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "listings", tracing.DBOperationQuery)

	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)

	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		endSpan(nil)
		return nil, ErrNotFound
	}
	if err != nil {
		endSpan(err)
		return nil, err
	}
	endSpan(nil)
	return l, nil
}

// IncrementCounter atomically adds delta to one counter column and touches
// last_viewed_at. The column name comes from the CounterField enum, never
// from request input.
func (r *PostgresRepository) IncrementCounter(ctx context.Context, id string, field CounterField, delta int64) (err error) {
	column := field.Column()
	if column == "" {
		return fmt.Errorf("unknown counter field %d", field)
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "listings", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	query := fmt.Sprintf(
		`UPDATE listings SET %s = %s + $2, last_viewed_at = now() WHERE id = $1`,
		column, column)

	res, err := r.db.ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile applies a sparse patch to the profile inside the document,
// read-modify-write under a row lock so concurrent patches don't clobber
// each other. The mirrored city column is kept in sync.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "listings", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin profile update: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.Warn("profile update rollback failed", "listing_id", id, "error", err)
		}
	}()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT doc FROM listings WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock listing %s: %w", id, err)
	}

	var l Listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return fmt.Errorf("decode listing %s: %w", id, err)
	}

	now := time.Now().UTC()
	patch.applyTo(&l.Marketplace.Profile, now)

	updated, err := json.Marshal(&l)
	if err != nil {
		return fmt.Errorf("encode listing %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE listings SET doc = $2, city = $3, updated_at = $4 WHERE id = $1`,
		id, updated, l.Marketplace.Profile.Location.City, now)
	if err != nil {
		return fmt.Errorf("update listing %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile update: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanListing.
type scanner interface {
	Scan(dest ...any) error
}

// scanListing decodes a listing row: JSONB document plus counter columns.
// The counter columns are authoritative and overlay whatever the document
// snapshot carried.
func scanListing(s scanner) (*Listing, error) {
	var (
		id           string
		raw          []byte
		a            Analytics
		lastViewedAt sql.NullTime
	)
	err := s.Scan(&id, &raw, &a.Views, &a.WebsiteClicks, &a.DirectionRequests,
		&a.PhoneClicks, &a.WhatsappClicks, &a.InstagramClicks, &lastViewedAt)
	if err != nil {
		return nil, err
	}

	var l Listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("decode listing %s: %w", id, err)
	}

	l.ID = id
	if lastViewedAt.Valid {
		at := lastViewedAt.Time
		a.LastViewedAt = &at
	}
	l.Marketplace.Analytics = a
	return &l, nil
}
