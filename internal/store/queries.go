package store

// SQL query constants organized by entity.
// All SQL lives here; PostgresStore methods reference these constants.
// Prices cross the wire as text so NUMERIC round-trips without float loss.

// Cache queries.
const (
	queryGetCacheEntry = `
		SELECT resolved_title, label_filter, offers, fetched_at, valid_until
		FROM cache_entries
		WHERE resolved_title = $1 AND label_filter = $2`

	queryPutCacheEntry = `
		INSERT INTO cache_entries (resolved_title, label_filter, offers, fetched_at, valid_until)
		VALUES (@resolved_title, @label_filter, @offers, @fetched_at, @valid_until)
		ON CONFLICT (resolved_title, label_filter) DO UPDATE SET
			offers = EXCLUDED.offers,
			fetched_at = EXCLUDED.fetched_at,
			valid_until = EXCLUDED.valid_until`

	queryListCacheEntries = `
		SELECT resolved_title, label_filter, offers, fetched_at, valid_until
		FROM cache_entries
		ORDER BY resolved_title, label_filter`

	queryClearCacheEntries = `DELETE FROM cache_entries`
)

// Notification state queries.
const (
	queryListNotificationStates = `
		SELECT subscriber_id, canonical_title, label, edition_name,
			lowest_price_notified::text, last_notified_at
		FROM notification_states
		WHERE subscriber_id = $1 AND canonical_title = $2
		ORDER BY label, edition_name`

	queryPutNotificationState = `
		INSERT INTO notification_states (
			subscriber_id, canonical_title, label, edition_name,
			lowest_price_notified, last_notified_at
		) VALUES (
			@subscriber_id, @canonical_title, @label, @edition_name,
			@lowest_price_notified::text::numeric, @last_notified_at
		)
		ON CONFLICT (subscriber_id, canonical_title, label, edition_name) DO UPDATE SET
			lowest_price_notified = EXCLUDED.lowest_price_notified,
			last_notified_at = EXCLUDED.last_notified_at`
)

// Subscriber queries.
const (
	subscriberColumns = `id, max_price::text, currency, labels, check_frequency,
		active, last_checked_at, created_at, updated_at`

	queryUpsertSubscriber = `
		INSERT INTO subscribers (
			id, max_price, currency, labels, check_frequency, active,
			created_at, updated_at
		) VALUES (
			@id, @max_price::text::numeric, @currency, @labels, @check_frequency, @active,
			now(), now()
		)
		ON CONFLICT (id) DO UPDATE SET
			max_price = EXCLUDED.max_price,
			currency = EXCLUDED.currency,
			labels = EXCLUDED.labels,
			check_frequency = EXCLUDED.check_frequency,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING created_at, updated_at, last_checked_at`

	queryGetSubscriber = `SELECT ` + subscriberColumns + ` FROM subscribers WHERE id = $1`

	queryListActiveSubscribers = `SELECT ` + subscriberColumns + `
		FROM subscribers WHERE active ORDER BY id`

	queryUpdateSubscriberLastChecked = `
		UPDATE subscribers SET last_checked_at = $2 WHERE id = $1`
)

// Watchlist queries.
const (
	queryListWatchlistEntries = `
		SELECT subscriber_id, canonical_title, release_year
		FROM watchlist_entries
		WHERE subscriber_id = $1
		ORDER BY position`

	queryDeleteWatchlist = `DELETE FROM watchlist_entries WHERE subscriber_id = $1`

	queryInsertWatchlistEntry = `
		INSERT INTO watchlist_entries (subscriber_id, position, canonical_title, release_year)
		VALUES ($1, $2, $3, $4)`
)

// Run report queries.
const (
	querySaveRunReport = `
		INSERT INTO run_reports (id, started_at, completed_at, report)
		VALUES (@id, @started_at, @completed_at, @report)
		ON CONFLICT (id) DO UPDATE SET
			completed_at = EXCLUDED.completed_at,
			report = EXCLUDED.report`

	queryLatestRunReport = `
		SELECT report FROM run_reports ORDER BY started_at DESC LIMIT 1`
)
