package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
// Covered by the store contract suite under the integration build tag.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*pgxpool.Config)

// WithPoolSize sets the maximum number of pooled connections.
func WithPoolSize(n int) PostgresOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = int32(n) //nolint:gosec // pool size from validated config
		}
	}
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// GetCacheEntry returns the entry for key or ErrNotFound.
func (s *PostgresStore) GetCacheEntry(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, error) {
	e, err := scanCacheEntry(s.pool.QueryRow(ctx, queryGetCacheEntry, key.ResolvedTitle, key.LabelFilter))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting cache entry %s: %w", key, err)
	}
	return e, nil
}

// PutCacheEntry replaces the entry for e.Key.
func (s *PostgresStore) PutCacheEntry(ctx context.Context, e *domain.CacheEntry) error {
	offers, err := json.Marshal(nonNilOffers(e.Offers))
	if err != nil {
		return fmt.Errorf("marshaling offers: %w", err)
	}

	_, err = s.pool.Exec(ctx, queryPutCacheEntry, pgx.NamedArgs{
		"resolved_title": e.Key.ResolvedTitle,
		"label_filter":   e.Key.LabelFilter,
		"offers":         offers,
		"fetched_at":     e.FetchedAt,
		"valid_until":    e.ValidUntil,
	})
	if err != nil {
		return fmt.Errorf("writing cache entry %s: %w", e.Key, err)
	}
	return nil
}

// ListCacheEntries returns all entries ordered by key.
func (s *PostgresStore) ListCacheEntries(ctx context.Context) ([]domain.CacheEntry, error) {
	rows, err := s.pool.Query(ctx, queryListCacheEntries)
	if err != nil {
		return nil, fmt.Errorf("querying cache entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.CacheEntry
	for rows.Next() {
		e, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ClearCacheEntries removes every entry and returns how many were removed.
func (s *PostgresStore) ClearCacheEntries(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, queryClearCacheEntries)
	if err != nil {
		return 0, fmt.Errorf("clearing cache entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListNotificationStates returns the states for one subscriber and title.
func (s *PostgresStore) ListNotificationStates(
	ctx context.Context,
	subscriberID string,
	canonicalTitle string,
) ([]domain.NotificationState, error) {
	rows, err := s.pool.Query(ctx, queryListNotificationStates, subscriberID, canonicalTitle)
	if err != nil {
		return nil, fmt.Errorf("querying notification states: %w", err)
	}
	defer rows.Close()

	var states []domain.NotificationState
	for rows.Next() {
		var st domain.NotificationState
		var label, price string
		if err := rows.Scan(
			&st.Key.SubscriberID, &st.Key.CanonicalTitle, &label, &st.Key.EditionName,
			&price, &st.LastNotifiedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning notification state: %w", err)
		}
		st.Key.Label = domain.Label(label)
		if st.LowestPriceNotified, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing notified price %q: %w", price, err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// PutNotificationStates upserts all states in one transaction.
func (s *PostgresStore) PutNotificationStates(ctx context.Context, states []domain.NotificationState) error {
	if len(states) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, st := range states {
			batch.Queue(queryPutNotificationState, pgx.NamedArgs{
				"subscriber_id":         st.Key.SubscriberID,
				"canonical_title":       st.Key.CanonicalTitle,
				"label":                 string(st.Key.Label),
				"edition_name":          st.Key.EditionName,
				"lowest_price_notified": st.LowestPriceNotified.String(),
				"last_notified_at":      st.LastNotifiedAt,
			})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("writing notification states: %w", err)
		}
		return nil
	})
}

// UpsertSubscriber inserts or updates a subscriber's preferences.
func (s *PostgresStore) UpsertSubscriber(ctx context.Context, sub *domain.Subscriber) error {
	err := s.pool.QueryRow(ctx, queryUpsertSubscriber, pgx.NamedArgs{
		"id":              sub.ID,
		"max_price":       sub.MaxPrice.String(),
		"currency":        sub.Currency,
		"labels":          sub.Labels.String(),
		"check_frequency": string(sub.CheckFrequency),
		"active":          sub.Active,
	}).Scan(&sub.CreatedAt, &sub.UpdatedAt, &sub.LastCheckedAt)
	if err != nil {
		return fmt.Errorf("upserting subscriber %s: %w", sub.ID, err)
	}
	return nil
}

// GetSubscriber returns a subscriber or ErrNotFound.
func (s *PostgresStore) GetSubscriber(ctx context.Context, id string) (*domain.Subscriber, error) {
	sub, err := scanSubscriber(s.pool.QueryRow(ctx, queryGetSubscriber, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscriber %s: %w", id, err)
	}
	return sub, nil
}

// ListActiveSubscribers returns active subscribers ordered by ID.
func (s *PostgresStore) ListActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := s.pool.Query(ctx, queryListActiveSubscribers)
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// UpdateSubscriberLastChecked records when a subscriber was last checked.
func (s *PostgresStore) UpdateSubscriberLastChecked(ctx context.Context, id string, t time.Time) error {
	tag, err := s.pool.Exec(ctx, queryUpdateSubscriberLastChecked, id, t)
	if err != nil {
		return fmt.Errorf("updating subscriber %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWatchlistEntries returns a subscriber's watchlist in sync order.
func (s *PostgresStore) ListWatchlistEntries(ctx context.Context, subscriberID string) ([]domain.WatchlistEntry, error) {
	rows, err := s.pool.Query(ctx, queryListWatchlistEntries, subscriberID)
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
func (s *PostgresStore) ReplaceWatchlist(
	ctx context.Context,
	subscriberID string,
	entries []domain.WatchlistEntry,
) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, queryDeleteWatchlist, subscriberID); err != nil {
			return fmt.Errorf("deleting watchlist: %w", err)
		}
		for i, e := range UniqueEntries(entries) {
			if _, err := tx.Exec(ctx, queryInsertWatchlistEntry,
				subscriberID, i, e.CanonicalTitle, e.ReleaseYear,
			); err != nil {
				return fmt.Errorf("inserting watchlist entry %q: %w", e.CanonicalTitle, err)
			}
		}
		return nil
	})
}

// SaveRunReport stores a run report.
func (s *PostgresStore) SaveRunReport(ctx context.Context, r *domain.RunReport) error {
	report, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	if _, err := s.pool.Exec(ctx, querySaveRunReport, pgx.NamedArgs{
		"id":           r.ID,
		"started_at":   r.StartedAt,
		"completed_at": r.CompletedAt,
		"report":       report,
	}); err != nil {
		return fmt.Errorf("saving run report %s: %w", r.ID, err)
	}
	return nil
}

// LatestRunReport returns the most recently started run or ErrNotFound.
func (s *PostgresStore) LatestRunReport(ctx context.Context) (*domain.RunReport, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, queryLatestRunReport).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run report: %w", err)
	}

	var r domain.RunReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling run report: %w", err)
	}
	return &r, nil
}

func scanCacheEntry(row pgx.Row) (*domain.CacheEntry, error) {
	var e domain.CacheEntry
	var offers []byte
	if err := row.Scan(
		&e.Key.ResolvedTitle, &e.Key.LabelFilter, &offers, &e.FetchedAt, &e.ValidUntil,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(offers, &e.Offers); err != nil {
		return nil, fmt.Errorf("unmarshaling offers for %s: %w", e.Key, err)
	}
	return &e, nil
}

func scanSubscriber(row pgx.Row) (*domain.Subscriber, error) {
	var sub domain.Subscriber
	var price, labels, freq string
	if err := row.Scan(
		&sub.ID, &price, &sub.Currency, &labels, &freq,
		&sub.Active, &sub.LastCheckedAt, &sub.CreatedAt, &sub.UpdatedAt,
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
	return &sub, nil
}

func nonNilOffers(o []domain.Offer) []domain.Offer {
	if o == nil {
		return []domain.Offer{}
	}
	return o
}
