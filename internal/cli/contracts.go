package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"aegis-sync/internal/backend"
)

var newContract backend.NewContract

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "List and manage tracked contracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListContracts(cmd.Context())
	},
}

var contractsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked contracts",
	RunE:  contractsCmd.RunE,
}

var contractsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a contract for monitoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := getApp().AddContract(cmd.Context(), newContract)
		return err
	},
}

var contractsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Stop monitoring a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return getApp().DeleteContract(cmd.Context(), id)
	},
}

var contractsInspectCmd = &cobra.Command{
	Use:   "inspect <id>",
	Short: "Read a tracked contract's on-chain state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return getApp().Inspect(cmd.Context(), id)
	},
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid contract id %q", raw)
	}
	return id, nil
}

func init() {
	flags := contractsAddCmd.Flags()
	flags.StringVar(&newContract.ContractAddress, "address", "", "Contract address (0x-prefixed)")
	flags.StringVar(&newContract.Network, "network", "", "Network the contract is deployed on")
	flags.StringVar(&newContract.EmergencyFunction, "emergency-function", "", "Function to call when a threat is detected")
	flags.StringArrayVar(&newContract.Emails, "email", nil, "Alert recipient (repeatable)")
	flags.StringVar(&newContract.Description, "description", "", "Free-form description")
	flags.StringVar(&newContract.AlertThreshold, "threshold", "", "Alert threshold")
	flags.StringVar(&newContract.MonitoringFrequency, "frequency", "", "Monitoring frequency")
	flags.StringVar(&newContract.SubgraphURL, "subgraph", "", "Subgraph URL")

	contractsCmd.AddCommand(contractsListCmd)
	contractsCmd.AddCommand(contractsAddCmd)
	contractsCmd.AddCommand(contractsDeleteCmd)
	contractsCmd.AddCommand(contractsInspectCmd)
}
