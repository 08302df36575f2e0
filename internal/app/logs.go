package app

import (
	"context"
	"encoding/json"
	"fmt"

	"aegis-sync/internal/logview"
	"aegis-sync/internal/resource"
)

// Logs prints the classified log stream. Long entries stay collapsed unless
// listed in Expand or ExpandAll is set.
func (a *App) Logs(ctx context.Context, opts LogsOptions) error {
	scope := a.logsScope(opts.ContractID)
	dash := a.oneShot(ctx, scope)
	defer dash.Close()

	for _, id := range opts.Expand {
		dash.ExpandLog(id)
	}
	if opts.ExpandAll {
		for _, entry := range dash.Logs() {
			dash.ExpandLog(entry.ID)
		}
	}

	views := dash.LogViews()
	if opts.JSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	if dash.Degraded(resource.Logs) {
		fmt.Fprintln(a.Out, "log stream unavailable; showing placeholder entries")
	}
	if len(views) == 0 {
		if scope != nil {
			fmt.Fprintf(a.Out, "no log entries for contract %d\n", *scope)
		} else {
			fmt.Fprintln(a.Out, "no log entries")
		}
		return nil
	}
	logview.Render(a.Out, views)
	return nil
}
