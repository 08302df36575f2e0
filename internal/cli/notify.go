package cli

import (
	"github.com/spf13/cobra"

	"aegis-sync/internal/alerting"
)

var (
	notifyLevel   string
	notifyTitle   string
	notifyMessage string
)

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "Send a test notification through the configured channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateNotification(cmd.Context(), alerting.ParseLevel(notifyLevel), notifyTitle, notifyMessage)
	},
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyLevel, "level", "info", "Notification level (success, info, warning, error)")
	notifyTestCmd.Flags().StringVar(&notifyTitle, "title", "", "Notification title")
	notifyTestCmd.Flags().StringVar(&notifyMessage, "message", "aegis-sync notification check", "Notification body")
}
