package salecal

import "time"

// DefaultSaleTTL is the cache validity used by built-in windows.
const DefaultSaleTTL = 2 * time.Hour

// BuiltinWindows returns the recurring retail sale periods during which
// boutique disc prices move quickly.
func BuiltinWindows() []AnnualWindow {
	md := func(m time.Month, d int) MonthDay { return MonthDay{Month: m, Day: d} }
	all := func(name string, start, end MonthDay) AnnualWindow {
		return AnnualWindow{Name: name, Start: start, End: end, CacheTTLOverride: DefaultSaleTTL}
	}
	bn := []string{"barnes & noble", "barnesandnoble"}

	return []AnnualWindow{
		all("New Year Clearance", md(time.January, 1), md(time.January, 5)),
		all("Presidents Day", md(time.February, 14), md(time.February, 21)),
		all("Memorial Day", md(time.May, 24), md(time.May, 31)),
		all("Prime Day", md(time.July, 10), md(time.July, 17)),
		all("Labor Day", md(time.September, 1), md(time.September, 7)),
		all("Black Friday Week", md(time.November, 20), md(time.November, 30)),
		all("Cyber Monday", md(time.December, 1), md(time.December, 3)),
		all("Holiday Season", md(time.December, 15), md(time.December, 26)),
		all("Post-Holiday Clearance", md(time.December, 26), md(time.December, 31)),
		{
			Name:             "Barnes & Noble Criterion Sale (July)",
			VendorScope:      bn,
			Start:            md(time.July, 1),
			End:              md(time.July, 31),
			CacheTTLOverride: 6 * time.Hour,
		},
		{
			Name:             "Barnes & Noble Criterion Sale (November)",
			VendorScope:      bn,
			Start:            md(time.November, 1),
			End:              md(time.November, 30),
			CacheTTLOverride: 6 * time.Hour,
		},
	}
}
