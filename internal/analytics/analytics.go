// Package analytics holds the pure aggregation logic: per-symbol price
// statistics, normalized-range ranking, and the daily volatility winner.
// Every function here is a deterministic reduction over an in-memory
// sequence; callers fetch observations from storage and pass them in.
package analytics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"crypto-recommendations/internal/storage"
)

// Statistics summarises one symbol's observed price history.
type Statistics struct {
	Min    decimal.Decimal
	Max    decimal.Decimal
	Oldest time.Time
	Newest time.Time
}

// RankedSymbol pairs a symbol with its normalized range score.
type RankedSymbol struct {
	Symbol string
	Score  decimal.Decimal
}

// ComputeStatistics reduces a symbol's observations into min/max price and
// oldest/newest timestamp. An empty input yields the zero Statistics value:
// a symbol with no data is a valid query, not an error.
func ComputeStatistics(points []storage.PricePoint) Statistics {
	if len(points) == 0 {
		return Statistics{Min: decimal.Zero, Max: decimal.Zero}
	}

	stats := Statistics{
		Min:    points[0].Price,
		Max:    points[0].Price,
		Oldest: points[0].Timestamp,
		Newest: points[0].Timestamp,
	}
	for _, p := range points[1:] {
		if p.Price.LessThan(stats.Min) {
			stats.Min = p.Price
		}
		if p.Price.GreaterThan(stats.Max) {
			stats.Max = p.Price
		}
		if p.Timestamp.Before(stats.Oldest) {
			stats.Oldest = p.Timestamp
		}
		if p.Timestamp.After(stats.Newest) {
			stats.Newest = p.Timestamp
		}
	}
	return stats
}

// NormalizedRange computes (max-min)/min over the observations. The result
// is zero when the set is empty or when the minimum price is non-positive,
// since the metric is undefined for such a group.
func NormalizedRange(points []storage.PricePoint) decimal.Decimal {
	if len(points) == 0 {
		return decimal.Zero
	}
	stats := ComputeStatistics(points)
	if stats.Min.Sign() <= 0 {
		return decimal.Zero
	}
	return stats.Max.Sub(stats.Min).Div(stats.Min)
}

// RankByNormalizedRange scores every symbol by the normalized range of its
// full history and orders them descending. The sort is stable: symbols with
// equal scores keep the order in which they appear in symbols, so identical
// inputs always produce identical rankings. Every input symbol appears in
// the output exactly once; symbols without observations score zero.
func RankByNormalizedRange(symbols []string, bySymbol map[string][]storage.PricePoint) []RankedSymbol {
	ranked := make([]RankedSymbol, 0, len(symbols))
	for _, symbol := range symbols {
		ranked = append(ranked, RankedSymbol{
			Symbol: symbol,
			Score:  NormalizedRange(bySymbol[symbol]),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.GreaterThan(ranked[j].Score)
	})
	return ranked
}

// MostVolatileOfDay returns the symbol with the greatest normalized intraday
// range among the given observations, which the caller has already filtered
// to one UTC day window. Groups whose minimum price is non-positive are
// excluded: the metric is undefined there and such a group must neither win
// nor fault the computation. Ties resolve to the symbol first encountered in
// the input sequence. ok is false when no qualifying group exists.
func MostVolatileOfDay(points []storage.PricePoint) (winner string, ok bool) {
	order := make([]string, 0)
	groups := make(map[string][]storage.PricePoint)
	for _, p := range points {
		if _, seen := groups[p.Symbol]; !seen {
			order = append(order, p.Symbol)
		}
		groups[p.Symbol] = append(groups[p.Symbol], p)
	}

	best := decimal.Zero
	for _, symbol := range order {
		stats := ComputeStatistics(groups[symbol])
		if stats.Min.Sign() <= 0 {
			continue
		}
		score := stats.Max.Sub(stats.Min).Div(stats.Min)
		if !ok || score.GreaterThan(best) {
			winner = symbol
			best = score
			ok = true
		}
	}
	return winner, ok
}

// ErrInvalidDate marks a day-window request that is not a YYYY-MM-DD date.
var ErrInvalidDate = errors.New("invalid date, expected format YYYY-MM-DD")

// DayWindow parses a YYYY-MM-DD date and returns the half-open UTC interval
// [00:00:00 of that day, 00:00:00 of the next). An observation stamped
// exactly at end belongs to the following day.
func DayWindow(date string) (start, end time.Time, err error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	start = day
	return start, start.Add(24 * time.Hour), nil
}
