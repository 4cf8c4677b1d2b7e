// Package notify defines the notification interface and implementations
// for deal delivery.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/donaldgifford/film-deal-tracker/internal/metrics"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// ErrDispatchFailed is returned when deals could not be delivered. Callers
// must not record the deals as notified.
var ErrDispatchFailed = errors.New("dispatch failed")

// Notifier delivers a subscriber's new deals. A call either delivers the
// whole batch or returns an error.
type Notifier interface {
	Dispatch(ctx context.Context, subscriberID string, deals []domain.Deal) error
}

// Sink is a named Notifier.
type Sink struct {
	Name     string
	Notifier Notifier
}

// Fanout dispatches to every configured sink. It fails when any sink fails,
// so a subscriber may receive a batch more than once on retry.
type Fanout struct {
	sinks []Sink
}

// NewFanout creates a Fanout over sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Dispatch sends deals to every sink and joins their errors.
func (f *Fanout) Dispatch(ctx context.Context, subscriberID string, deals []domain.Deal) error {
	if len(deals) == 0 {
		return nil
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.Notifier.Dispatch(ctx, subscriberID, deals); err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(s.Name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		metrics.NotificationsSentTotal.WithLabelValues(s.Name).Inc()
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrDispatchFailed, errors.Join(errs...))
	}
	return nil
}

// FormatPrice renders an offer price with its currency symbol when known.
func FormatPrice(o *domain.Offer) string {
	amount := o.Price.StringFixed(2)
	switch strings.ToUpper(o.Currency) {
	case "USD", "":
		return "$" + amount
	case "GBP":
		return "£" + amount
	case "EUR":
		return "€" + amount
	default:
		return o.Currency + " " + amount
	}
}

// DealTitle is the headline for a deal: title, year, label and edition.
func DealTitle(d *domain.Deal) string {
	var b strings.Builder
	b.WriteString(d.Entry.CanonicalTitle)
	if d.Entry.ReleaseYear > 0 {
		fmt.Fprintf(&b, " (%d)", d.Entry.ReleaseYear)
	}
	b.WriteString(": ")
	b.WriteString(d.Offer.Label.DisplayName())
	if d.Offer.EditionName != "" {
		b.WriteString(" / ")
		b.WriteString(d.Offer.EditionName)
	}
	return b.String()
}

func formatName(f domain.Format) string {
	switch f {
	case domain.Format4K:
		return "4K UHD"
	case domain.FormatBluRay:
		return "Blu-ray"
	case domain.FormatDVD:
		return "DVD"
	default:
		return "Unknown"
	}
}
