package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"crypto-recommendations/internal/cache"
	"crypto-recommendations/internal/service"
)

func (a *App) queryService(ctx context.Context) (*service.Service, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("database.dsn is required for analytics queries")
	}

	// CLI queries are one-shot; the response cache only pays off in the API.
	svc := a.newService(store, cache.NewDisabled())
	return svc, closeStore, nil
}

// Stats prints one symbol's price statistics.
func (a *App) Stats(ctx context.Context, symbol string) error {
	svc, closer, err := a.queryService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	stats, err := svc.Statistics(ctx, symbol)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Symbol\tMin\tMax\tOldest (UTC)\tNewest (UTC)")
	fmt.Fprintf(writer, "%s\t%g\t%g\t%s\t%s\n",
		stats.Symbol,
		stats.Min,
		stats.Max,
		formatInstant(stats.Oldest),
		formatInstant(stats.Newest),
	)
	return writer.Flush()
}

// Rank prints every symbol ordered by normalized range descending.
func (a *App) Rank(ctx context.Context) error {
	svc, closer, err := a.queryService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	ranking, err := svc.Ranking(ctx)
	if err != nil {
		return err
	}
	if len(ranking) == 0 {
		fmt.Fprintln(os.Stdout, "no symbols found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rank\tSymbol\tNormalized Range")
	for i, entry := range ranking {
		fmt.Fprintf(writer, "%d\t%s\t%.6f\n", i+1, entry.Symbol, entry.NormalizedRange)
	}
	return writer.Flush()
}

// Top prints the most volatile symbol for one day.
func (a *App) Top(ctx context.Context, date string) error {
	svc, closer, err := a.queryService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	winner, err := svc.MostVolatile(ctx, date)
	if err != nil {
		if errors.Is(err, service.ErrNoData) {
			fmt.Fprintf(os.Stdout, "no data for %s\n", date)
			return nil
		}
		return err
	}

	fmt.Fprintf(os.Stdout, "most volatile symbol on %s: %s\n", winner.Date, winner.Symbol)
	return nil
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
