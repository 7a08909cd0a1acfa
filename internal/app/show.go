package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints the most recent stored observations.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show observations")
	}
	defer closeStore()

	points, err := store.ListRecent(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Fprintln(os.Stdout, "no observations found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tSymbol\tPrice")

	for _, point := range points {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\n",
			point.Timestamp.UTC().Format(time.RFC3339),
			point.Symbol,
			point.Price.String(),
		)
	}

	writer.Flush()
	return nil
}
