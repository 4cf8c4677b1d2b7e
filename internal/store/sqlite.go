package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// SQLiteStore implements Store on a single SQLite file. Times are stored as
// fixed-width RFC 3339 text in UTC and prices as decimal text.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows one writer; serializing connections avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies pending schema migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return runSQLiteMigrations(ctx, s.db)
}

// GetCacheEntry returns the entry for key or ErrNotFound.
func (s *SQLiteStore) GetCacheEntry(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT resolved_title, label_filter, offers, fetched_at, valid_until
		FROM cache_entries
		WHERE resolved_title = ? AND label_filter = ?`,
		key.ResolvedTitle, key.LabelFilter,
	)
	e, err := scanSQLiteCacheEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting cache entry %s: %w", key, err)
	}
	return e, nil
}

// PutCacheEntry replaces the entry for e.Key.
func (s *SQLiteStore) PutCacheEntry(ctx context.Context, e *domain.CacheEntry) error {
	if !e.ValidUntil.After(e.FetchedAt) {
		return fmt.Errorf("cache entry %s: valid_until must be after fetched_at", e.Key)
	}
	offers, err := json.Marshal(nonNilOffers(e.Offers))
	if err != nil {
		return fmt.Errorf("marshaling offers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (resolved_title, label_filter, offers, fetched_at, valid_until)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (resolved_title, label_filter) DO UPDATE SET
			offers = excluded.offers,
			fetched_at = excluded.fetched_at,
			valid_until = excluded.valid_until`,
		e.Key.ResolvedTitle, e.Key.LabelFilter, string(offers),
		formatTime(e.FetchedAt), formatTime(e.ValidUntil),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry %s: %w", e.Key, err)
	}
	return nil
}

// ListCacheEntries returns all entries ordered by key.
func (s *SQLiteStore) ListCacheEntries(ctx context.Context) ([]domain.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resolved_title, label_filter, offers, fetched_at, valid_until
		FROM cache_entries
		ORDER BY resolved_title, label_filter`)
	if err != nil {
		return nil, fmt.Errorf("querying cache entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.CacheEntry
	for rows.Next() {
		e, err := scanSQLiteCacheEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning cache entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ClearCacheEntries removes every entry and returns how many were removed.
func (s *SQLiteStore) ClearCacheEntries(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared entries: %w", err)
	}
	return int(n), nil
}

// ListNotificationStates returns the states for one subscriber and title.
func (s *SQLiteStore) ListNotificationStates(
	ctx context.Context,
	subscriberID string,
	canonicalTitle string,
) ([]domain.NotificationState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subscriber_id, canonical_title, label, edition_name,
			lowest_price_notified, last_notified_at
		FROM notification_states
		WHERE subscriber_id = ? AND canonical_title = ?
		ORDER BY label, edition_name`,
		subscriberID, canonicalTitle,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notification states: %w", err)
	}
	defer rows.Close()

	var states []domain.NotificationState
	for rows.Next() {
		var st domain.NotificationState
		var label, price, notifiedAt string
		if err := rows.Scan(
			&st.Key.SubscriberID, &st.Key.CanonicalTitle, &label, &st.Key.EditionName,
			&price, &notifiedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning notification state: %w", err)
		}
		st.Key.Label = domain.Label(label)
		if st.LowestPriceNotified, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing notified price %q: %w", price, err)
		}
		if st.LastNotifiedAt, err = parseTime(notifiedAt); err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// PutNotificationStates upserts all states in one transaction.
func (s *SQLiteStore) PutNotificationStates(ctx context.Context, states []domain.NotificationState) error {
	if len(states) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, st := range states {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO notification_states (
					subscriber_id, canonical_title, label, edition_name,
					lowest_price_notified, last_notified_at
				) VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (subscriber_id, canonical_title, label, edition_name) DO UPDATE SET
					lowest_price_notified = excluded.lowest_price_notified,
					last_notified_at = excluded.last_notified_at`,
				st.Key.SubscriberID, st.Key.CanonicalTitle, string(st.Key.Label), st.Key.EditionName,
				st.LowestPriceNotified.String(), formatTime(st.LastNotifiedAt),
			); err != nil {
				return fmt.Errorf("writing notification state: %w", err)
			}
		}
		return nil
	})
}

// UpsertSubscriber inserts or updates a subscriber's preferences. The
// creation time and last check time of an existing row are kept.
func (s *SQLiteStore) UpsertSubscriber(ctx context.Context, sub *domain.Subscriber) error {
	now := formatTime(s.now())
	active := 0
	if sub.Active {
		active = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (
			id, max_price, currency, labels, check_frequency, active,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			max_price = excluded.max_price,
			currency = excluded.currency,
			labels = excluded.labels,
			check_frequency = excluded.check_frequency,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		sub.ID, sub.MaxPrice.String(), sub.Currency, sub.Labels.String(),
		string(sub.CheckFrequency), active, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting subscriber %s: %w", sub.ID, err)
	}

	stored, err := s.GetSubscriber(ctx, sub.ID)
	if err != nil {
		return err
	}
	sub.CreatedAt = stored.CreatedAt
	sub.UpdatedAt = stored.UpdatedAt
	sub.LastCheckedAt = stored.LastCheckedAt
	return nil
}

const sqliteSubscriberColumns = `id, max_price, currency, labels, check_frequency,
	active, last_checked_at, created_at, updated_at`

// GetSubscriber returns a subscriber or ErrNotFound.
func (s *SQLiteStore) GetSubscriber(ctx context.Context, id string) (*domain.Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSubscriberColumns+` FROM subscribers WHERE id = ?`, id)
	sub, err := scanSQLiteSubscriber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscriber %s: %w", id, err)
	}
	return sub, nil
}

// ListActiveSubscribers returns active subscribers ordered by ID.
func (s *SQLiteStore) ListActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSubscriberColumns+` FROM subscribers WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		sub, err := scanSQLiteSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// UpdateSubscriberLastChecked records when a subscriber was last checked.
func (s *SQLiteStore) UpdateSubscriberLastChecked(ctx context.Context, id string, t time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscribers SET last_checked_at = ? WHERE id = ?`, formatTime(t), id)
	if err != nil {
		return fmt.Errorf("updating subscriber %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating subscriber %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWatchlistEntries returns a subscriber's watchlist in sync order.
func (s *SQLiteStore) ListWatchlistEntries(ctx context.Context, subscriberID string) ([]domain.WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subscriber_id, canonical_title, release_year
		FROM watchlist_entries
		WHERE subscriber_id = ?
		ORDER BY position`, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("querying watchlist: %w", err)
	}
	defer rows.Close()

	var entries []domain.WatchlistEntry
	for rows.Next() {
		var e domain.WatchlistEntry
		if err := rows.Scan(&e.SubscriberID, &e.CanonicalTitle, &e.ReleaseYear); err != nil {
			return nil, fmt.Errorf("scanning watchlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceWatchlist supersedes a subscriber's watchlist in one transaction.
func (s *SQLiteStore) ReplaceWatchlist(
	ctx context.Context,
	subscriberID string,
	entries []domain.WatchlistEntry,
) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM watchlist_entries WHERE subscriber_id = ?`, subscriberID,
		); err != nil {
			return fmt.Errorf("deleting watchlist: %w", err)
		}
		for i, e := range UniqueEntries(entries) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO watchlist_entries (subscriber_id, position, canonical_title, release_year)
				VALUES (?, ?, ?, ?)`,
				subscriberID, i, e.CanonicalTitle, e.ReleaseYear,
			); err != nil {
				return fmt.Errorf("inserting watchlist entry %q: %w", e.CanonicalTitle, err)
			}
		}
		return nil
	})
}

// SaveRunReport stores a run report.
func (s *SQLiteStore) SaveRunReport(ctx context.Context, r *domain.RunReport) error {
	report, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO run_reports (id, started_at, completed_at, report)
		VALUES (?, ?, ?, ?)`,
		r.ID, formatTime(r.StartedAt), formatTime(r.CompletedAt), string(report),
	); err != nil {
		return fmt.Errorf("saving run report %s: %w", r.ID, err)
	}
	return nil
}

// LatestRunReport returns the most recently started run or ErrNotFound.
func (s *SQLiteStore) LatestRunReport(ctx context.Context) (*domain.RunReport, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM run_reports ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run report: %w", err)
	}

	var r domain.RunReport
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("unmarshaling run report: %w", err)
	}
	return &r, nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteCacheEntry(row rowScanner) (*domain.CacheEntry, error) {
	var e domain.CacheEntry
	var offers, fetchedAt, validUntil string
	if err := row.Scan(
		&e.Key.ResolvedTitle, &e.Key.LabelFilter, &offers, &fetchedAt, &validUntil,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(offers), &e.Offers); err != nil {
		return nil, fmt.Errorf("unmarshaling offers for %s: %w", e.Key, err)
	}
	var err error
	if e.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return nil, err
	}
	if e.ValidUntil, err = parseTime(validUntil); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanSQLiteSubscriber(row rowScanner) (*domain.Subscriber, error) {
	var sub domain.Subscriber
	var price, labels, freq, createdAt, updatedAt string
	var active int
	var lastChecked sql.NullString
	if err := row.Scan(
		&sub.ID, &price, &sub.Currency, &labels, &freq,
		&active, &lastChecked, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing max price %q: %w", price, err)
	}
	sub.MaxPrice = d
	sub.Labels = domain.ParseLabelFilter(labels)
	sub.CheckFrequency = domain.CheckFrequency(freq)
	sub.Active = active != 0

	if lastChecked.Valid {
		t, err := parseTime(lastChecked.String)
		if err != nil {
			return nil, err
		}
		sub.LastCheckedAt = &t
	}
	if sub.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sub.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Fixed-width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
