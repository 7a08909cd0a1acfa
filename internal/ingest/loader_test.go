package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func writeFeed(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}
}

func newTestLoader(t *testing.T, symbols map[string]string) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	return NewLoader(dir, symbols, zerolog.Nop()), dir
}

func TestLoadSymbol(t *testing.T) {
	loader, dir := newTestLoader(t, map[string]string{"BTC": "BTC_values.csv"})
	writeFeed(t, dir, "BTC_values.csv",
		"timestamp,symbol,price\n"+
			"1641009600000,BTC,46813.21\n"+
			"1641020400000,BTC,46979.61\n")

	points, err := loader.LoadSymbol("BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}

	first := points[0]
	if first.Symbol != "BTC" {
		t.Fatalf("expected symbol BTC, got %s", first.Symbol)
	}
	if !first.Price.Equal(decimal.RequireFromString("46813.21")) {
		t.Fatalf("expected price 46813.21, got %s", first.Price)
	}
	want := time.UnixMilli(1641009600000).UTC()
	if !first.Timestamp.Equal(want) {
		t.Fatalf("expected timestamp %s, got %s", want, first.Timestamp)
	}
}

func TestLoadSymbolSkipsMalformedRows(t *testing.T) {
	loader, dir := newTestLoader(t, map[string]string{"BTC": "BTC_values.csv"})
	writeFeed(t, dir, "BTC_values.csv",
		"timestamp,symbol,price\n"+
			"not-a-timestamp,BTC,46813.21\n"+
			"1641020400000,BTC,not-a-price\n"+
			"1641020400000,BTC\n"+
			"1641031200000,BTC,47143.98\n")

	points, err := loader.LoadSymbol("BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected only the valid row, got %d points", len(points))
	}
	if !points[0].Price.Equal(decimal.RequireFromString("47143.98")) {
		t.Fatalf("unexpected surviving row: %+v", points[0])
	}
}

func TestLoadSymbolUnknown(t *testing.T) {
	loader, _ := newTestLoader(t, map[string]string{"BTC": "BTC_values.csv", "ETH": "ETH_values.csv"})

	_, err := loader.LoadSymbol("SHIB")
	if !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
	if !strings.Contains(err.Error(), "BTC") || !strings.Contains(err.Error(), "ETH") {
		t.Fatalf("error should list valid symbols, got %q", err.Error())
	}
}

func TestLoadSymbolMissingFile(t *testing.T) {
	loader, _ := newTestLoader(t, map[string]string{"BTC": "BTC_values.csv"})

	if _, err := loader.LoadSymbol("BTC"); err == nil {
		t.Fatal("expected error for missing feed file")
	}
}

func TestLoadSymbolEmptyFile(t *testing.T) {
	loader, dir := newTestLoader(t, map[string]string{"BTC": "BTC_values.csv"})
	writeFeed(t, dir, "BTC_values.csv", "")

	points, err := loader.LoadSymbol("BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected no points, got %d", len(points))
	}
}

func TestSymbolsSorted(t *testing.T) {
	loader, _ := newTestLoader(t, map[string]string{
		"XRP": "XRP_values.csv",
		"BTC": "BTC_values.csv",
		"ETH": "ETH_values.csv",
	})

	got := loader.Symbols()
	want := []string{"BTC", "ETH", "XRP"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
