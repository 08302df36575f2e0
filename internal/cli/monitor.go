package cli

import (
	"github.com/spf13/cobra"

	"aegis-sync/internal/app"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Control the backend monitor",
}

func monitorAction(action app.MonitorAction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return getApp().Monitor(cmd.Context(), action)
		},
	}
}

func init() {
	monitorCmd.AddCommand(monitorAction(app.MonitorStart, "Start the backend monitor"))
	monitorCmd.AddCommand(monitorAction(app.MonitorStop, "Stop the backend monitor"))
	monitorCmd.AddCommand(monitorAction(app.MonitorStatus, "Show monitor status"))
}
