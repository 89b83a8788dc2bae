package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	resolveOn      string
	resolveHistory bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <product-id> <country-code>",
	Short: "Resolve responsibility holders for a product in a market",
	Long: `Prints the resolved responsibility view: one winning entity per role,
ranked by confidence. With --on DATE the view is replayed point-in-time over
every assignment whose validity window contains the date.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRegistry()
		if err != nil {
			return err
		}

		if resolveHistory {
			history, err := r.resp.GetHistory(args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(history)
		}

		var validOn *time.Time
		if resolveOn != "" {
			t, err := time.Parse("2006-01-02", resolveOn)
			if err != nil {
				return fmt.Errorf("invalid --on date %q, want YYYY-MM-DD: %w", resolveOn, err)
			}
			validOn = &t
		}

		view, err := r.resp.GetResolved(args[0], args[1], validOn)
		if err != nil {
			return err
		}
		return printJSON(view)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveOn, "on", "", "Resolve as of this date (YYYY-MM-DD) instead of now")
	resolveCmd.Flags().BoolVar(&resolveHistory, "history", false, "Print the full assignment history instead of the resolved view")
}
