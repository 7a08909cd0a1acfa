package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-recommendations/internal/analytics"
	"crypto-recommendations/internal/cache"
	"crypto-recommendations/internal/ingest"
	"crypto-recommendations/internal/storage"
)

type fakeStore struct {
	points   []storage.PricePoint
	symbols  []string
	replaced map[string][]storage.PricePoint

	lastFrom time.Time
	lastTo   time.Time

	listBySymbolCalls int
}

func (f *fakeStore) ReplaceSymbolPrices(ctx context.Context, symbol string, points []storage.PricePoint) (int64, error) {
	if f.replaced == nil {
		f.replaced = make(map[string][]storage.PricePoint)
	}
	f.replaced[symbol] = points
	return int64(len(points)), nil
}

func (f *fakeStore) ListBySymbol(ctx context.Context, symbol string) ([]storage.PricePoint, error) {
	f.listBySymbolCalls++
	var matched []storage.PricePoint
	for _, p := range f.points {
		if p.Symbol == symbol {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func (f *fakeStore) ListBetween(ctx context.Context, from, to time.Time) ([]storage.PricePoint, error) {
	f.lastFrom, f.lastTo = from, to
	var matched []storage.PricePoint
	for _, p := range f.points {
		if !p.Timestamp.Before(from) && p.Timestamp.Before(to) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func (f *fakeStore) ListSymbols(ctx context.Context) ([]string, error) {
	return f.symbols, nil
}

func (f *fakeStore) ListRecent(ctx context.Context, limit int) ([]storage.PricePoint, error) {
	if limit > len(f.points) {
		limit = len(f.points)
	}
	return f.points[:limit], nil
}

func (f *fakeStore) CountPoints(ctx context.Context) (int64, error) {
	return int64(len(f.points)), nil
}

var _ storage.PricePointStore = (*fakeStore)(nil)

type memoryCache struct {
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok := m.entries[key]
	return data, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte) error {
	m.entries[key] = value
	return nil
}

func (m *memoryCache) Invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *memoryCache) Close() error { return nil }

var _ cache.Cache = (*memoryCache)(nil)

func pricePoint(symbol string, price float64, ts time.Time) storage.PricePoint {
	return storage.PricePoint{Symbol: symbol, Price: decimal.NewFromFloat(price), Timestamp: ts}
}

func testLoader(t *testing.T, symbols map[string]string) (*ingest.Loader, string) {
	t.Helper()
	dir := t.TempDir()
	return ingest.NewLoader(dir, symbols, zerolog.Nop()), dir
}

func newTestService(store storage.PricePointStore, loader *ingest.Loader, c cache.Cache) *Service {
	return New(store, loader, Options{Cache: c}, zerolog.Nop())
}

func TestStatisticsUnknownSymbol(t *testing.T) {
	loader, _ := testLoader(t, map[string]string{"BTC": "BTC_values.csv"})
	svc := newTestService(&fakeStore{}, loader, nil)

	_, err := svc.Statistics(context.Background(), "SHIB")
	if !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestStatistics(t *testing.T) {
	t1 := time.Date(2022, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2022, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{points: []storage.PricePoint{
		pricePoint("BTC", 45000, t1),
		pricePoint("BTC", 50000, t2),
	}}
	loader, _ := testLoader(t, map[string]string{"BTC": "BTC_values.csv"})
	svc := newTestService(store, loader, nil)

	stats, err := svc.Statistics(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Min != 45000 || stats.Max != 50000 {
		t.Fatalf("unexpected min/max: %v/%v", stats.Min, stats.Max)
	}
	if !stats.Oldest.Equal(t1) || !stats.Newest.Equal(t2) {
		t.Fatalf("unexpected oldest/newest: %v/%v", stats.Oldest, stats.Newest)
	}
}

func TestStatisticsNoData(t *testing.T) {
	loader, _ := testLoader(t, map[string]string{"BTC": "BTC_values.csv"})
	svc := newTestService(&fakeStore{}, loader, nil)

	stats, err := svc.Statistics(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("a symbol with no data is not an error, got %v", err)
	}
	if stats.Min != 0 || stats.Max != 0 || !stats.Oldest.IsZero() || !stats.Newest.IsZero() {
		t.Fatalf("expected zero statistics, got %+v", stats)
	}
}

func TestStatisticsServedFromCache(t *testing.T) {
	store := &fakeStore{points: []storage.PricePoint{
		pricePoint("BTC", 45000, time.Now().UTC()),
	}}
	loader, _ := testLoader(t, map[string]string{"BTC": "BTC_values.csv"})
	svc := newTestService(store, loader, newMemoryCache())

	ctx := context.Background()
	if _, err := svc.Statistics(ctx, "BTC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Statistics(ctx, "BTC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.listBySymbolCalls != 1 {
		t.Fatalf("expected one store query, got %d", store.listBySymbolCalls)
	}
}

func TestRanking(t *testing.T) {
	day := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		symbols: []string{"BTC", "ETH", "LTC"},
		points: []storage.PricePoint{
			pricePoint("BTC", 30000, day),
			pricePoint("BTC", 35000, day.Add(2*time.Hour)),
			pricePoint("ETH", 1000, day),
			pricePoint("ETH", 1200, day.Add(2*time.Hour)),
		},
	}
	svc := newTestService(store, nil, nil)

	ranking, err := svc.Ranking(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranking) != 3 {
		t.Fatalf("every symbol must appear, got %d entries", len(ranking))
	}
	if ranking[0].Symbol != "ETH" || ranking[1].Symbol != "BTC" || ranking[2].Symbol != "LTC" {
		t.Fatalf("unexpected ranking: %v", ranking)
	}
	if ranking[2].NormalizedRange != 0 {
		t.Fatalf("symbol without observations must score zero, got %v", ranking[2].NormalizedRange)
	}
}

func TestMostVolatileQueriesHalfOpenWindow(t *testing.T) {
	day := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{points: []storage.PricePoint{
		pricePoint("BTC", 30000, day.Add(10 * time.Hour)),
		pricePoint("BTC", 35000, day.Add(12 * time.Hour)),
		// Exactly at the next day's start; must fall outside the window.
		pricePoint("BTC", 90000, day.Add(24 * time.Hour)),
	}}
	svc := newTestService(store, nil, nil)

	winner, err := svc.MostVolatile(context.Background(), "2022-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner.Symbol != "BTC" || winner.Date != "2022-01-01" {
		t.Fatalf("unexpected winner: %+v", winner)
	}
	if !store.lastFrom.Equal(day) || !store.lastTo.Equal(day.Add(24*time.Hour)) {
		t.Fatalf("unexpected window: [%s, %s)", store.lastFrom, store.lastTo)
	}
}

func TestMostVolatileInvalidDate(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil, nil)

	_, err := svc.MostVolatile(context.Background(), "01-01-2022")
	if !errors.Is(err, analytics.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestMostVolatileNoData(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil, nil)

	_, err := svc.MostVolatile(context.Background(), "2022-01-01")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestReloadSymbol(t *testing.T) {
	loader, dir := testLoader(t, map[string]string{"BTC": "BTC_values.csv"})
	feed := "timestamp,symbol,price\n1641009600000,BTC,46813.21\n1641020400000,BTC,46979.61\n"
	if err := os.WriteFile(filepath.Join(dir, "BTC_values.csv"), []byte(feed), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}

	store := &fakeStore{}
	memory := newMemoryCache()
	memory.entries[rankingKey] = []byte("[]")
	svc := newTestService(store, loader, memory)

	rows, err := svc.ReloadSymbol(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected 2 rows, got %d", rows)
	}
	if len(store.replaced["BTC"]) != 2 {
		t.Fatalf("expected replaced history, got %+v", store.replaced)
	}
	if _, stale := memory.entries[rankingKey]; stale {
		t.Fatal("reload must invalidate the ranking cache entry")
	}
}

func TestReloadSymbolEmptyFeed(t *testing.T) {
	loader, dir := testLoader(t, map[string]string{"BTC": "BTC_values.csv"})
	if err := os.WriteFile(filepath.Join(dir, "BTC_values.csv"), []byte("timestamp,symbol,price\n"), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}

	svc := newTestService(&fakeStore{}, loader, nil)
	if _, err := svc.ReloadSymbol(context.Background(), "BTC"); err == nil {
		t.Fatal("an empty feed must not replace stored history")
	}
}
