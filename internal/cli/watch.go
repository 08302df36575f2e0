package cli

import (
	"github.com/spf13/cobra"

	"aegis-sync/internal/app"
)

var (
	watchFeed     bool
	watchListen   string
	watchContract int64
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the backend until interrupted, journaling and streaming state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context(), app.WatchOptions{
			Feed:           watchFeed,
			Listen:         watchListen,
			LogsContractID: watchContract,
		})
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchFeed, "feed", false, "Serve the state feed even if feed.enabled is false")
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "Feed listen address (defaults to feed.listen)")
	watchCmd.Flags().Int64Var(&watchContract, "logs-contract", 0, "Scope the log stream to one contract id")
}
