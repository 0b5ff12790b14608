// Package intent maps chat messages onto quantum applications using the
// ordered pattern catalog.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/logging"
)

// DefaultCacheSize bounds the number of compiled expressions kept in memory.
const DefaultCacheSize = 256

// Catalog supplies intent patterns in evaluation order.
type Catalog interface {
	List(ctx context.Context) ([]core.IntentPattern, error)
}

// Match is the first catalog entry whose pattern occurs in a message.
type Match struct {
	PatternID     int64   `json:"pattern_id"`
	ApplicationID int64   `json:"application_id"`
	Confidence    float64 `json:"confidence"`
	Pattern       string  `json:"pattern"`
	Parameters    *string `json:"parameters,omitempty"`
}

// Matcher evaluates messages against the catalog. It is safe for concurrent use.
type Matcher struct {
	catalog Catalog
	cache   *lru.Cache[string, *regexp.Regexp]
}

// NewMatcher creates a matcher over the given catalog.
func NewMatcher(catalog Catalog) *Matcher {
	cache, err := lru.New[string, *regexp.Regexp](DefaultCacheSize)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Matcher{catalog: catalog, cache: cache}
}

// Match returns the first pattern, in catalog order, found anywhere in the
// lower-cased message. It returns core.ErrNoIntent when nothing matches and
// wraps core.ErrCatalogUnavailable when the catalog cannot be read.
func (m *Matcher) Match(ctx context.Context, message string) (*Match, error) {
	patterns, err := m.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCatalogUnavailable, err)
	}

	lower := strings.ToLower(message)
	for _, p := range patterns {
		re, err := m.compile("(?i)" + p.Pattern)
		if err != nil {
			logging.Warn("skipping intent pattern %d %q: %v", p.ID, p.Pattern, err)
			continue
		}
		if !re.MatchString(lower) {
			continue
		}

		match := &Match{
			PatternID:     p.ID,
			ApplicationID: p.ApplicationID,
			Confidence:    p.Confidence,
			Pattern:       p.Pattern,
		}
		if p.ParameterPattern != "" {
			match.Parameters = m.extract(p, message)
		}

		logging.Debug("intent pattern %d matched (app %d, confidence %.2f)", p.ID, p.ApplicationID, p.Confidence)
		return match, nil
	}

	return nil, core.ErrNoIntent
}

// extract runs the parameter pattern against the original-case message and
// returns the first capture group. A failed extraction leaves the intent match
// intact.
func (m *Matcher) extract(p core.IntentPattern, message string) *string {
	re, err := m.compile(p.ParameterPattern)
	if err != nil {
		logging.Warn("invalid parameter pattern on intent %d: %v", p.ID, err)
		return nil
	}

	groups := re.FindStringSubmatch(message)
	if len(groups) < 2 {
		return nil
	}
	param := groups[1]
	return &param
}

func (m *Matcher) compile(expr string) (*regexp.Regexp, error) {
	if re, ok := m.cache.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	m.cache.Add(expr, re)
	return re, nil
}

// CacheLen reports how many compiled expressions are memoized.
func (m *Matcher) CacheLen() int {
	return m.cache.Len()
}
