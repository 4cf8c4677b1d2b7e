package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/film-deal-tracker/internal/dealcache"
	"github.com/donaldgifford/film-deal-tracker/internal/metrics"
	"github.com/donaldgifford/film-deal-tracker/internal/notify"
	"github.com/donaldgifford/film-deal-tracker/internal/store"
	"github.com/donaldgifford/film-deal-tracker/pkg/extract"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

const (
	defaultWorkers = 4
	tracerName     = "github.com/donaldgifford/film-deal-tracker/internal/engine"
)

// Run triggers, used as metric labels.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// AliasResolver maps a canonical title to the titles to search for.
type AliasResolver interface {
	Resolve(canonicalTitle string, releaseYear int) []domain.Alias
}

// WatchlistSource supplies a subscriber's synchronized watchlist.
type WatchlistSource interface {
	ListEntries(ctx context.Context, subscriberID string) ([]domain.WatchlistEntry, error)
}

// StoreWatchlist reads watchlists from the store.
type StoreWatchlist struct {
	Store store.WatchlistStore
}

// ListEntries returns the stored watchlist.
func (w StoreWatchlist) ListEntries(ctx context.Context, subscriberID string) ([]domain.WatchlistEntry, error) {
	return w.Store.ListWatchlistEntries(ctx, subscriberID)
}

// CheckRequest selects what a run covers. An empty SubscriberID covers every
// active subscriber that is due; Force also checks those that are not.
type CheckRequest struct {
	SubscriberID string
	Force        bool
	Trigger      string
}

// Engine orchestrates resolution, cached extraction, evaluation and
// notification for subscribers' watchlists.
type Engine struct {
	store     store.Store
	watchlist WatchlistSource
	resolver  AliasResolver
	extractor extract.Extractor
	cache     *dealcache.Cache
	notifier  notify.Notifier
	log       *slog.Logger

	workers int
	now     func() time.Time
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	s store.Store,
	r AliasResolver,
	ex extract.Extractor,
	c *dealcache.Cache,
	n notify.Notifier,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		store:     s,
		watchlist: StoreWatchlist{Store: s},
		resolver:  r,
		extractor: ex,
		cache:     c,
		notifier:  n,
		log:       slog.Default(),
		workers:   defaultWorkers,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithWorkers sets how many watchlist entries are checked concurrently.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithWatchlistSource replaces the store-backed watchlist source.
func WithWatchlistSource(w WatchlistSource) EngineOption {
	return func(e *Engine) {
		e.watchlist = w
	}
}

// subscriberRun accumulates one subscriber's part of a run.
type subscriberRun struct {
	sub     domain.Subscriber
	entries []domain.WatchlistEntry
	results []entryResult
	fatal   error
}

type entryResult struct {
	eval   Evaluation
	status domain.CacheStatus
	err    error
}

// RunCheck checks the selected subscribers' watchlists and dispatches new
// deals. Failures are isolated per entry and per subscriber and reported in
// the returned RunReport; RunCheck itself fails only when the subscribers
// cannot be read.
func (eng *Engine) RunCheck(ctx context.Context, req CheckRequest) (*domain.RunReport, error) {
	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.run_check")
	defer span.End()

	start := eng.now()
	wallStart := time.Now()
	defer func() {
		metrics.RunDuration.Observe(time.Since(wallStart).Seconds())
	}()
	metrics.RunsTotal.WithLabelValues(trigger).Inc()

	subs, err := eng.subscribersFor(ctx, req.SubscriberID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	report := &domain.RunReport{
		ID:          uuid.NewString(),
		StartedAt:   start,
		Subscribers: make([]domain.SubscriberReport, 0, len(subs)),
		CacheStats:  make(map[domain.CacheStatus]int),
	}

	var runs []*subscriberRun
	for i := range subs {
		sub := subs[i]
		if req.SubscriberID == "" && !req.Force && !sub.IsDue(start) {
			report.Subscribers = append(report.Subscribers, domain.SubscriberReport{
				SubscriberID: sub.ID,
				Status:       domain.RunStatusSkipped,
			})
			continue
		}
		run := &subscriberRun{sub: sub}
		entries, err := eng.watchlist.ListEntries(ctx, sub.ID)
		if err != nil {
			run.fatal = fmt.Errorf("loading watchlist: %w", err)
		}
		run.entries = entries
		run.results = make([]entryResult, len(entries))
		runs = append(runs, run)
	}

	var g errgroup.Group
	g.SetLimit(eng.workers)
	for _, run := range runs {
		if run.fatal != nil {
			continue
		}
		for i := range run.entries {
			g.Go(func() error {
				run.results[i] = eng.checkEntry(ctx, &run.sub, &run.entries[i])
				return nil
			})
		}
	}
	_ = g.Wait()

	for _, run := range runs {
		sr := eng.finishSubscriber(ctx, run, report.CacheStats)
		metrics.SubscribersProcessedTotal.WithLabelValues(string(sr.Status)).Inc()
		report.Subscribers = append(report.Subscribers, sr)
	}

	report.CompletedAt = eng.now()
	if err := eng.store.SaveRunReport(ctx, report); err != nil {
		eng.log.Error("saving run report failed", "run", report.ID, "error", err)
	}

	span.SetAttributes(
		attribute.String("run.id", report.ID),
		attribute.Int("run.subscribers", len(report.Subscribers)),
	)
	eng.log.Info("check run complete",
		"run", report.ID,
		"trigger", trigger,
		"subscribers", len(report.Subscribers),
		"duration", time.Since(wallStart),
	)
	return report, nil
}

func (eng *Engine) subscribersFor(ctx context.Context, id string) ([]domain.Subscriber, error) {
	if id != "" {
		sub, err := eng.store.GetSubscriber(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading subscriber %s: %w", id, err)
		}
		return []domain.Subscriber{*sub}, nil
	}

	subs, err := eng.store.ListActiveSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	return subs, nil
}

// checkEntry runs one watchlist entry through resolution, the cache and the
// evaluator. Panics become entry errors.
func (eng *Engine) checkEntry(
	ctx context.Context,
	sub *domain.Subscriber,
	entry *domain.WatchlistEntry,
) (res entryResult) {
	defer func() {
		if r := recover(); r != nil {
			eng.log.Error("panic checking entry",
				"subscriber", sub.ID,
				"title", entry.CanonicalTitle,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = entryResult{err: fmt.Errorf("checking %q: panic: %v", entry.CanonicalTitle, r)}
		}
	}()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.check_entry")
	defer span.End()
	span.SetAttributes(
		attribute.String("subscriber.id", sub.ID),
		attribute.String("entry.title", entry.CanonicalTitle),
	)

	metrics.EntriesProcessedTotal.Inc()

	states, err := eng.store.ListNotificationStates(ctx, sub.ID, entry.CanonicalTitle)
	if err != nil {
		return entryResult{err: fmt.Errorf(
			"loading notification states for %q: %w: %w",
			entry.CanonicalTitle, dealcache.ErrPersistenceUnavailable, err,
		)}
	}

	aliases := eng.resolver.Resolve(entry.CanonicalTitle, entry.ReleaseYear)
	if len(aliases) == 0 {
		return entryResult{err: fmt.Errorf("resolving %q: no aliases", entry.CanonicalTitle)}
	}
	key := cacheKey(aliases[0].ResolvedTitle, entry.ReleaseYear, sub.Labels)
	req := extract.Request{
		Aliases:     aliases,
		Filter:      sub.Labels,
		ReleaseYear: entry.ReleaseYear,
	}

	lookup, err := eng.cache.GetOrRefresh(ctx, key, func(ctx context.Context) ([]domain.Offer, error) {
		return eng.extract(ctx, req)
	})
	if err != nil {
		span.RecordError(err)
		return entryResult{err: fmt.Errorf("looking up %q: %w", entry.CanonicalTitle, err)}
	}

	stateMap := make(map[domain.NotificationKey]domain.NotificationState, len(states))
	for _, st := range states {
		stateMap[st.Key] = st
	}

	e := *entry
	e.SubscriberID = sub.ID
	ev := Evaluate(e, lookup.Offers, sub.MaxPrice, sub.Currency, stateMap, eng.now())
	span.SetAttributes(
		attribute.String("cache.status", string(lookup.Status)),
		attribute.Int("deals", len(ev.Deals)),
	)
	return entryResult{eval: ev, status: lookup.Status}
}

// extract runs the extractor for a cache refresh and records its metrics.
func (eng *Engine) extract(ctx context.Context, req extract.Request) ([]domain.Offer, error) {
	start := time.Now()
	res, err := eng.extractor.Extract(ctx, req)
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExtractionFailuresTotal.Inc()
		return nil, err
	}

	for reason, n := range res.Skipped {
		metrics.ListingsSkippedTotal.WithLabelValues(string(reason)).Add(float64(n))
	}
	for i := range res.Offers {
		metrics.OffersExtractedTotal.WithLabelValues(string(res.Offers[i].Label)).Inc()
	}
	return res.Offers, nil
}

// finishSubscriber aggregates entry results, dispatches the subscriber's
// deals and commits notification state only after a successful dispatch.
func (eng *Engine) finishSubscriber(
	ctx context.Context,
	run *subscriberRun,
	cacheStats map[domain.CacheStatus]int,
) domain.SubscriberReport {
	sr := domain.SubscriberReport{SubscriberID: run.sub.ID}
	log := eng.log.With("subscriber", run.sub.ID)

	if run.fatal != nil {
		log.Error("subscriber check failed", "error", run.fatal)
		sr.Status = domain.RunStatusFailed
		sr.Errors = append(sr.Errors, run.fatal.Error())
		return sr
	}

	var (
		evs            []Evaluation
		persistenceErr error
	)
	for i := range run.results {
		r := &run.results[i]
		sr.EntriesChecked++
		if r.err != nil {
			sr.EntriesFailed++
			sr.Errors = append(sr.Errors, r.err.Error())
			metrics.EntriesFailedTotal.Inc()
			if errors.Is(r.err, dealcache.ErrPersistenceUnavailable) && persistenceErr == nil {
				persistenceErr = r.err
			}
			continue
		}
		cacheStats[r.status]++
		evs = append(evs, r.eval)
	}
	merged := mergeEvaluations(evs)
	deals, staged := merged.Deals, merged.Staged
	sr.DealsFound = len(deals)
	metrics.DealsEmittedTotal.Add(float64(len(deals)))

	if persistenceErr != nil {
		log.Error("persistence unavailable, skipping dispatch", "error", persistenceErr)
		sr.Status = domain.RunStatusFailed
		return sr
	}

	if len(deals) > 0 {
		if err := eng.notifier.Dispatch(ctx, run.sub.ID, deals); err != nil {
			log.Error("dispatch failed, notification state not committed",
				"deals", len(deals),
				"error", err,
			)
			sr.Status = domain.RunStatusFailed
			sr.Errors = append(sr.Errors, fmt.Sprintf("dispatching %d deals: %v", len(deals), err))
			return sr
		}
		sr.DealsDispatched = len(deals)

		if err := eng.store.PutNotificationStates(ctx, staged); err != nil {
			log.Error("committing notification state failed", "error", err)
			sr.Status = domain.RunStatusFailed
			sr.Errors = append(sr.Errors, "committing notification state: "+err.Error())
			return sr
		}
	}

	if err := eng.store.UpdateSubscriberLastChecked(ctx, run.sub.ID, eng.now()); err != nil {
		log.Error("updating last checked failed", "error", err)
		sr.Errors = append(sr.Errors, "updating last checked: "+err.Error())
		sr.Status = domain.RunStatusFailed
		return sr
	}

	sr.Status = domain.RunStatusSucceeded
	if sr.EntriesFailed > 0 {
		sr.Status = domain.RunStatusPartial
	}
	log.Info("subscriber checked",
		"entries", sr.EntriesChecked,
		"failed", sr.EntriesFailed,
		"deals", sr.DealsFound,
	)
	return sr
}

// cacheKey scopes the resolved title by release year so that same-titled
// films do not share results.
func cacheKey(resolvedTitle string, releaseYear int, filter domain.LabelFilter) domain.CacheKey {
	title := resolvedTitle
	if releaseYear > 0 {
		title += " (" + strconv.Itoa(releaseYear) + ")"
	}
	return domain.CacheKey{ResolvedTitle: title, LabelFilter: filter.String()}
}

// CacheStatus returns a snapshot of the deal cache.
func (eng *Engine) CacheStatus(ctx context.Context) ([]dealcache.EntryStatus, error) {
	return eng.cache.Snapshot(ctx)
}

// ClearCache removes every cached entry.
func (eng *Engine) ClearCache(ctx context.Context) (int, error) {
	return eng.cache.Clear(ctx)
}

// LatestRun returns the most recent run report.
func (eng *Engine) LatestRun(ctx context.Context) (*domain.RunReport, error) {
	return eng.store.LatestRunReport(ctx)
}
