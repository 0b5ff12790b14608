package weather

import (
	"fmt"
	"strings"
	"time"

	"github.com/qcatchat/catchat/internal/core"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// Forecast length bounds accepted from clients.
const (
	MinForecastDays     = 1
	MaxForecastDays     = 15
	DefaultForecastDays = 3
)

// Search types
const (
	SearchCurrent    = "current"
	SearchForecast   = "forecast"
	SearchHistorical = "historical"
)

// Search is a parsed free-text weather lookup.
type Search struct {
	Type     string
	Location string
	Date     string // historical only
}

// ValidateDays checks a requested forecast length.
func ValidateDays(days int) error {
	if days < MinForecastDays || days > MaxForecastDays {
		return fmt.Errorf("%w: days parameter must be between %d and %d", core.ErrInvalidInput, MinForecastDays, MaxForecastDays)
	}
	return nil
}

// ValidateDate checks a YYYY-MM-DD date.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: date must be in YYYY-MM-DD format", core.ErrInvalidInput)
	}
	return nil
}

// ParseSearch splits a query such as "Paris on 2024-03-01". Historical
// searches without a parseable date use the day one week before now.
func ParseSearch(query, searchType string, now time.Time) (Search, error) {
	if searchType == "" {
		searchType = SearchCurrent
	}
	switch searchType {
	case SearchCurrent, SearchForecast, SearchHistorical:
	default:
		return Search{}, fmt.Errorf("%w: type must be 'current', 'forecast', or 'historical'", core.ErrInvalidInput)
	}
	if strings.TrimSpace(query) == "" {
		return Search{}, fmt.Errorf("%w: query", core.ErrMissingRequired)
	}

	s := Search{Type: searchType, Location: query}
	if searchType != SearchHistorical {
		return s, nil
	}

	s.Date = now.AddDate(0, 0, -7).Format(DateLayout)
	if loc, datePart, ok := strings.Cut(query, " on "); ok {
		s.Location = loc
		if d, err := time.Parse(DateLayout, strings.TrimSpace(datePart)); err == nil {
			s.Date = d.Format(DateLayout)
		}
	}
	return s, nil
}
