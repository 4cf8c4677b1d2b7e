// Package salecal answers whether a vendor is inside a promotional sale
// window and how long cached prices stay valid while it is.
package salecal

import (
	"fmt"
	"sort"
	"time"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// MonthDay is a calendar day that recurs every year.
type MonthDay struct {
	Month time.Month
	Day   int
}

// ParseMonthDay parses "MM-DD".
func ParseMonthDay(s string) (MonthDay, error) {
	t, err := time.Parse("01-02", s)
	if err != nil {
		return MonthDay{}, fmt.Errorf("parsing month-day %q: %w", s, err)
	}
	return MonthDay{Month: t.Month(), Day: t.Day()}, nil
}

func (md MonthDay) before(o MonthDay) bool {
	if md.Month != o.Month {
		return md.Month < o.Month
	}
	return md.Day < o.Day
}

// AnnualWindow is a sale window that recurs every year. Start and End are
// inclusive days; a window whose End falls before its Start wraps into the
// next year.
type AnnualWindow struct {
	Name             string
	VendorScope      []string
	Start            MonthDay
	End              MonthDay
	CacheTTLOverride time.Duration
}

// occurrence returns the concrete window that starts in the given year.
func (a AnnualWindow) occurrence(year int, loc *time.Location) domain.SaleWindow {
	start := time.Date(year, a.Start.Month, a.Start.Day, 0, 0, 0, 0, loc)
	endYear := year
	if a.End.before(a.Start) {
		endYear++
	}
	end := time.Date(endYear, a.End.Month, a.End.Day, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return domain.SaleWindow{
		Name:             a.Name,
		VendorScope:      a.VendorScope,
		StartsAt:         start,
		EndsAt:           end,
		CacheTTLOverride: a.CacheTTLOverride,
	}
}

// Calendar holds the configured sale windows. It is immutable and safe for
// concurrent use.
type Calendar struct {
	fixed  []domain.SaleWindow
	annual []AnnualWindow
	loc    *time.Location
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithWindows adds windows with absolute start and end times.
func WithWindows(w ...domain.SaleWindow) Option {
	return func(c *Calendar) {
		c.fixed = append(c.fixed, w...)
	}
}

// WithAnnualWindows adds recurring windows.
func WithAnnualWindows(w ...AnnualWindow) Option {
	return func(c *Calendar) {
		c.annual = append(c.annual, w...)
	}
}

// WithLocation sets the time zone in which recurring windows start and end.
// Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		c.loc = loc
	}
}

// New creates a Calendar.
func New(opts ...Option) *Calendar {
	c := &Calendar{loc: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ActiveWindows returns the windows whose interval contains at, ordered by
// start time then name.
func (c *Calendar) ActiveWindows(at time.Time) []domain.SaleWindow {
	var active []domain.SaleWindow
	for i := range c.fixed {
		if c.fixed[i].Contains(at) {
			active = append(active, c.fixed[i])
		}
	}

	local := at.In(c.loc)
	for _, a := range c.annual {
		// A window that wraps the year boundary may have started last year.
		for _, year := range []int{local.Year() - 1, local.Year()} {
			w := a.occurrence(year, c.loc)
			if w.Contains(at) {
				active = append(active, w)
			}
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].StartsAt.Equal(active[j].StartsAt) {
			return active[i].StartsAt.Before(active[j].StartsAt)
		}
		return active[i].Name < active[j].Name
	})
	return active
}

// IsVendorInSale reports whether any active window covers the vendor.
func (c *Calendar) IsVendorInSale(vendor string, at time.Time) bool {
	for _, w := range c.ActiveWindows(at) {
		if w.CoversVendor(vendor) {
			return true
		}
	}
	return false
}

// EffectiveTTL returns the shortest override among the active windows that
// cover the vendor, or defaultTTL when none do. Overlapping windows resolve
// to the minimum.
func (c *Calendar) EffectiveTTL(vendor string, at time.Time, defaultTTL time.Duration) time.Duration {
	ttl := time.Duration(0)
	found := false
	for _, w := range c.ActiveWindows(at) {
		if !w.CoversVendor(vendor) {
			continue
		}
		if !found || w.CacheTTLOverride < ttl {
			ttl = w.CacheTTLOverride
			found = true
		}
	}
	if !found {
		return defaultTTL
	}
	return ttl
}
