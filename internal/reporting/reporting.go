package reporting

import (
	"strings"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"mizan/internal/interactions"
	"mizan/internal/users"
	"mizan/internal/visits"
)

// Summary is the dashboard headline block. Every figure is computed fresh
// from storage at call time; nothing here is cached or precomputed.
type Summary struct {
	TotalUsers              int64 `json:"totalUsers"`
	TotalRegisteredUsers    int64 `json:"totalRegisteredUsers"`
	TotalVisitors           int64 `json:"totalVisitors"`
	TotalVisits             int64 `json:"totalVisits"`
	TotalInteractions       int64 `json:"totalInteractions"`
	InteractionsToday       int64 `json:"interactionsToday"`
	Last24HoursInteractions int64 `json:"last24HoursInteractions"`
}

// GetSummary assembles the headline counts. Empty storage yields a
// zero-valued summary, never an error.
func GetSummary(db *gorm.DB) (Summary, error) {
	var summary Summary
	var err error

	if summary.TotalUsers, err = users.CountAll(db); err != nil {
		return Summary{}, err
	}
	if summary.TotalRegisteredUsers, err = users.CountRegistered(db); err != nil {
		return Summary{}, err
	}
	if summary.TotalVisitors, err = visits.CountDistinctSessions(db); err != nil {
		return Summary{}, err
	}
	if summary.TotalVisits, err = visits.CountAll(db); err != nil {
		return Summary{}, err
	}
	if summary.TotalInteractions, err = interactions.CountAll(db); err != nil {
		return Summary{}, err
	}
	if summary.InteractionsToday, err = interactions.CountToday(db); err != nil {
		return Summary{}, err
	}
	if summary.Last24HoursInteractions, err = interactions.CountLast24Hours(db); err != nil {
		return Summary{}, err
	}

	return summary, nil
}

// CountryStat is one row of the per-country visit breakdown with a display
// name resolved from the stored ISO code.
type CountryStat struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

var countryQuery = gountries.New()

// GetCountryBreakdown returns visit counts per country, most visited first.
// Codes that cannot be resolved keep the raw stored value as the name.
func GetCountryBreakdown(db *gorm.DB, limit int) ([]CountryStat, error) {
	counts, err := visits.CountByCountry(db, limit)
	if err != nil {
		return nil, err
	}

	upper := cases.Upper(language.AmericanEnglish)
	stats := make([]CountryStat, len(counts))
	for i, row := range counts {
		stats[i] = CountryStat{
			Code:  row.Country,
			Name:  row.Country,
			Count: row.Count,
		}
		if row.Country == visits.UnknownCountry {
			stats[i].Name = "Unknown"
			continue
		}
		code := upper.String(strings.TrimSpace(row.Country))
		if country, err := countryQuery.FindCountryByAlpha(code); err == nil {
			stats[i].Name = country.Name.Common
		}
	}

	return stats, nil
}
