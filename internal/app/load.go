package app

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Load ingests CSV price feeds into the store, either one symbol or all
// configured symbols.
func (a *App) Load(ctx context.Context, opts LoadOptions) error {
	if !opts.All && opts.Symbol == "" {
		return errors.New("either --all or a symbol argument must be provided")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to load price data")
	}
	defer closeStore()

	responseCache, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer responseCache.Close()

	svc := a.newService(store, responseCache)

	if opts.All {
		if err := svc.ReloadAll(ctx); err != nil {
			return err
		}
	} else {
		rows, err := svc.ReloadSymbol(ctx, opts.Symbol)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "loaded %d observations for %s\n", rows, opts.Symbol)
	}

	total, err := store.CountPoints(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "store now holds %d observations\n", total)
	return nil
}
