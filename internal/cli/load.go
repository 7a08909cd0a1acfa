package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"crypto-recommendations/internal/app"
)

var loadAll bool

var loadCmd = &cobra.Command{
	Use:   "load [symbol]",
	Short: "Load CSV price feeds into the store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.LoadOptions{All: loadAll}
		if len(args) == 1 {
			opts.Symbol = args[0]
		}
		if opts.All && opts.Symbol != "" {
			return fmt.Errorf("--all and a symbol argument are mutually exclusive")
		}

		return getApp().Load(cmd.Context(), opts)
	},
}

func init() {
	loadCmd.Flags().BoolVar(&loadAll, "all", false, "Load every configured symbol")
}
