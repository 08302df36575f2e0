package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"aegis-sync/internal/app"
)

var (
	showLimit  int
	showWindow time.Duration
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display poll availability and recent notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:  showLimit,
			Window: showWindow,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of notifications to display")
	showCmd.Flags().DurationVar(&showWindow, "window", 24*time.Hour, "Availability window")
}
