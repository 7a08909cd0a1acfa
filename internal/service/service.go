package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"crypto-recommendations/internal/analytics"
	"crypto-recommendations/internal/cache"
	"crypto-recommendations/internal/ingest"
	"crypto-recommendations/internal/storage"
)

var (
	// ErrNoData marks a query window that contains no qualifying
	// observations. Callers decide whether this surfaces as an error.
	ErrNoData = errors.New("no data for the requested day")

	// ErrUnknownSymbol mirrors the ingest sentinel for API callers.
	ErrUnknownSymbol = ingest.ErrUnknownSymbol
)

const (
	statsKeyPrefix    = "stats:"
	rankingKey        = "ranking"
	volatileKeyPrefix = "volatile:"
)

// SymbolStatistics is the API shape of one symbol's price statistics.
type SymbolStatistics struct {
	Symbol string    `json:"symbol"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Oldest time.Time `json:"oldest"`
	Newest time.Time `json:"newest"`
}

// RankingEntry is one row of the normalized-range ranking.
type RankingEntry struct {
	Symbol          string  `json:"symbol"`
	NormalizedRange float64 `json:"normalized_range"`
}

// DayWinner names the most volatile symbol of one day.
type DayWinner struct {
	Date   string `json:"date"`
	Symbol string `json:"symbol"`
}

// Service wires the price store, the feed loader, and the analytics
// reductions behind the query and reload operations.
type Service struct {
	store   storage.PricePointStore
	loader  *ingest.Loader
	cache   cache.Cache
	logger  zerolog.Logger
	locker  storage.AdvisoryLocker
	lockKey int64
}

// Options configure optional service collaborators.
type Options struct {
	Cache           cache.Cache
	AdvisoryLockKey int64
}

// New constructs the analytics service. The cache defaults to disabled; the
// advisory locker is used only when the store provides one.
func New(store storage.PricePointStore, loader *ingest.Loader, opts Options, logger zerolog.Logger) *Service {
	responseCache := opts.Cache
	if responseCache == nil {
		responseCache = cache.NewDisabled()
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		store:   store,
		loader:  loader,
		cache:   responseCache,
		logger:  logger.With().Str("component", "service").Logger(),
		locker:  locker,
		lockKey: opts.AdvisoryLockKey,
	}
}

// Statistics computes min/max/oldest/newest for one symbol. A known symbol
// with no stored observations yields zero-valued statistics.
func (s *Service) Statistics(ctx context.Context, symbol string) (SymbolStatistics, error) {
	if s.loader != nil && !s.loader.Known(symbol) {
		return SymbolStatistics{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	key := statsKeyPrefix + symbol
	var cached SymbolStatistics
	if hit := s.fromCache(ctx, key, &cached); hit {
		return cached, nil
	}

	points, err := s.store.ListBySymbol(ctx, symbol)
	if err != nil {
		return SymbolStatistics{}, fmt.Errorf("query prices for %s: %w", symbol, err)
	}

	stats := analytics.ComputeStatistics(points)
	result := SymbolStatistics{
		Symbol: symbol,
		Min:    stats.Min.InexactFloat64(),
		Max:    stats.Max.InexactFloat64(),
		Oldest: stats.Oldest,
		Newest: stats.Newest,
	}

	s.toCache(ctx, key, result)
	return result, nil
}

// Ranking returns every known symbol ordered by normalized range descending.
func (s *Service) Ranking(ctx context.Context) ([]RankingEntry, error) {
	var cached []RankingEntry
	if hit := s.fromCache(ctx, rankingKey, &cached); hit {
		return cached, nil
	}

	symbols, err := s.store.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}

	bySymbol := make(map[string][]storage.PricePoint, len(symbols))
	for _, symbol := range symbols {
		points, err := s.store.ListBySymbol(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("query prices for %s: %w", symbol, err)
		}
		bySymbol[symbol] = points
	}

	ranked := analytics.RankByNormalizedRange(symbols, bySymbol)
	entries := make([]RankingEntry, 0, len(ranked))
	for _, r := range ranked {
		entries = append(entries, RankingEntry{
			Symbol:          r.Symbol,
			NormalizedRange: r.Score.InexactFloat64(),
		})
	}

	s.toCache(ctx, rankingKey, entries)
	return entries, nil
}

// MostVolatile finds the symbol with the greatest normalized intraday range
// on the given YYYY-MM-DD day. ErrNoData is returned when no symbol has a
// qualifying observation group for that day.
func (s *Service) MostVolatile(ctx context.Context, date string) (DayWinner, error) {
	start, end, err := analytics.DayWindow(date)
	if err != nil {
		return DayWinner{}, err
	}

	key := volatileKeyPrefix + date
	var cached DayWinner
	if hit := s.fromCache(ctx, key, &cached); hit {
		return cached, nil
	}

	points, err := s.store.ListBetween(ctx, start, end)
	if err != nil {
		return DayWinner{}, fmt.Errorf("query prices for %s: %w", date, err)
	}

	symbol, ok := analytics.MostVolatileOfDay(points)
	if !ok {
		return DayWinner{}, fmt.Errorf("%w: %s", ErrNoData, date)
	}

	winner := DayWinner{Date: date, Symbol: symbol}
	s.toCache(ctx, key, winner)
	return winner, nil
}

// ReloadSymbol replaces one symbol's stored history from its CSV feed.
func (s *Service) ReloadSymbol(ctx context.Context, symbol string) (int64, error) {
	points, err := s.loader.LoadSymbol(symbol)
	if err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, fmt.Errorf("price feed for %s is empty", symbol)
	}

	inserted, err := s.store.ReplaceSymbolPrices(ctx, symbol, points)
	if err != nil {
		return 0, fmt.Errorf("replace prices for %s: %w", symbol, err)
	}

	if err := s.cache.Invalidate(ctx, rankingKey, statsKeyPrefix+symbol); err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("cache invalidation failed")
	}

	s.logger.Info().Str("symbol", symbol).Int64("rows", inserted).Msg("symbol reloaded")
	return inserted, nil
}

// ReloadAll replaces the stored history of every configured symbol. Symbols
// that fail to load are reported; the rest still load.
func (s *Service) ReloadAll(ctx context.Context) error {
	var failed []string
	for _, symbol := range s.loader.Symbols() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := s.ReloadSymbol(ctx, symbol); err != nil {
			failed = append(failed, symbol)
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("reload failed")
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("reload failed for symbols: %v", failed)
	}
	return nil
}

// ProcessReload runs one scheduled reload pass, skipping when another
// replica holds the advisory lock.
func (s *Service) ProcessReload(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip reload because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.ReloadAll(ctx)
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

func (s *Service) fromCache(ctx context.Context, key string, target any) bool {
	data, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	if !hit {
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache entry malformed")
		return false
	}
	return true
}

func (s *Service) toCache(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
