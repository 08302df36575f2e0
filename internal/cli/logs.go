package cli

import (
	"github.com/spf13/cobra"

	"aegis-sync/internal/app"
)

var logsOpts app.LogsOptions

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the classified backend log stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Logs(cmd.Context(), logsOpts)
	},
}

func init() {
	logsCmd.Flags().Int64Var(&logsOpts.ContractID, "contract", 0, "Scope to one contract id")
	logsCmd.Flags().Int64SliceVar(&logsOpts.Expand, "expand", nil, "Expand the given entry ids")
	logsCmd.Flags().BoolVar(&logsOpts.ExpandAll, "all", false, "Expand every entry")
	logsCmd.Flags().BoolVar(&logsOpts.JSON, "json", false, "Emit entries as JSON")
}
