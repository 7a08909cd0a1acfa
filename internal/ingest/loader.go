// Package ingest parses the per-symbol CSV price feeds into price points.
// Malformed rows are rejected here, at the boundary; the analytics layer
// only ever sees well-formed observations.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-recommendations/internal/storage"
)

// ErrUnknownSymbol marks a symbol with no configured source file.
var ErrUnknownSymbol = errors.New("unknown cryptocurrency symbol")

// Loader reads symbol CSV files from a data directory. The symbol-to-file
// mapping is fixed at construction and never mutated afterwards.
type Loader struct {
	dir     string
	symbols map[string]string
	logger  zerolog.Logger
}

// NewLoader constructs a Loader over an immutable symbol→file mapping.
func NewLoader(dir string, symbols map[string]string, logger zerolog.Logger) *Loader {
	owned := make(map[string]string, len(symbols))
	for symbol, file := range symbols {
		owned[symbol] = file
	}
	return &Loader{
		dir:     dir,
		symbols: owned,
		logger:  logger.With().Str("component", "ingest").Logger(),
	}
}

// Symbols returns the configured symbols in sorted order.
func (l *Loader) Symbols() []string {
	symbols := make([]string, 0, len(l.symbols))
	for symbol := range l.symbols {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Known reports whether the symbol has a configured source file.
func (l *Loader) Known(symbol string) bool {
	_, ok := l.symbols[symbol]
	return ok
}

// LoadSymbol parses the CSV feed for one symbol. Rows are expected as
// `timestamp_ms,symbol,price` with a header line. Rows that fail to parse
// are skipped and counted; they never reach the caller.
func (l *Loader) LoadSymbol(symbol string) ([]storage.PricePoint, error) {
	file, ok := l.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s (valid symbols: %s)",
			ErrUnknownSymbol, symbol, strings.Join(l.Symbols(), ", "))
	}

	path := filepath.Join(l.dir, file)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price feed for %s: %w", symbol, err)
	}
	defer f.Close()

	points, skipped, err := l.parse(symbol, f)
	if err != nil {
		return nil, fmt.Errorf("parse price feed for %s: %w", symbol, err)
	}
	if skipped > 0 {
		l.logger.Warn().Str("symbol", symbol).Int("skipped", skipped).Msg("rejected malformed feed rows")
	}

	return points, nil
}

func (l *Loader) parse(symbol string, r io.Reader) ([]storage.PricePoint, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	// Header line.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	points := make([]storage.PricePoint, 0)
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		point, ok := parseRecord(symbol, record)
		if !ok {
			skipped++
			continue
		}
		points = append(points, point)
	}

	return points, skipped, nil
}

func parseRecord(symbol string, record []string) (storage.PricePoint, bool) {
	if len(record) < 3 {
		return storage.PricePoint{}, false
	}

	millis, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return storage.PricePoint{}, false
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return storage.PricePoint{}, false
	}

	return storage.PricePoint{
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.UnixMilli(millis).UTC(),
	}, true
}
