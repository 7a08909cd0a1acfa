package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var topDate string

var statsCmd = &cobra.Command{
	Use:   "stats <symbol>",
	Short: "Display price statistics for one symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Stats(cmd.Context(), args[0])
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Display symbols ranked by normalized price range",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Rank(cmd.Context())
	},
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Display the most volatile symbol for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		if topDate == "" {
			return fmt.Errorf("--date must be provided")
		}
		return getApp().Top(cmd.Context(), topDate)
	},
}

func init() {
	topCmd.Flags().StringVar(&topDate, "date", "", "Day to inspect (YYYY-MM-DD, UTC)")
}
