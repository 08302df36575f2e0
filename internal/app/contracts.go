package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"aegis-sync/internal/backend"
	"aegis-sync/internal/chain"
	"aegis-sync/internal/dashboard"
)

const placeholderBanner = "backend unavailable; showing placeholder data"

// ListContracts prints the tracked contracts.
func (a *App) ListContracts(ctx context.Context) error {
	dash := a.oneShot(ctx, nil)
	defer dash.Close()

	a.printBanner(dash)
	a.printContracts(dash.Contracts())
	return nil
}

// AddContract validates in and registers it. While the backend is down the
// contract only lives in this process's placeholder list.
func (a *App) AddContract(ctx context.Context, in backend.NewContract) (backend.Contract, error) {
	if err := newContractValidator(a.Config).Check(&in); err != nil {
		return backend.Contract{}, err
	}

	dash := a.oneShot(ctx, nil)
	defer dash.Close()

	offline := dash.BackendDown()
	created, err := dash.AddContract(ctx, in)
	if err != nil {
		return backend.Contract{}, err
	}

	if offline {
		fmt.Fprintf(a.Out, "%s\ncontract #%d kept locally for this session only\n", placeholderBanner, created.ID)
	} else {
		fmt.Fprintf(a.Out, "contract #%d added: %s on %s\n", created.ID, created.Address, created.Network)
	}
	a.printContracts(dash.Contracts())
	return created, nil
}

// DeleteContract removes a tracked contract.
func (a *App) DeleteContract(ctx context.Context, id int64) error {
	dash := a.oneShot(ctx, nil)
	defer dash.Close()

	offline := dash.BackendDown()
	if err := dash.DeleteContract(ctx, id); err != nil {
		if backend.IsNotFound(err) {
			return fmt.Errorf("contract %d does not exist: %w", id, err)
		}
		return err
	}

	if offline {
		fmt.Fprintln(a.Out, placeholderBanner)
	}
	fmt.Fprintf(a.Out, "contract #%d removed\n", id)
	a.printContracts(dash.Contracts())
	return nil
}

// Inspect probes the chain for the contract tracked under id.
func (a *App) Inspect(ctx context.Context, id int64) error {
	dash := a.oneShot(ctx, nil)
	defer dash.Close()

	var target *backend.Contract
	for _, c := range dash.Contracts() {
		if c.ID == id {
			target = &c
			break
		}
	}
	if target == nil {
		return fmt.Errorf("contract %d is not tracked", id)
	}
	if dash.BackendDown() {
		fmt.Fprintln(a.Out, placeholderBanner)
	}

	prober := chain.NewProber(chain.Options{
		RPCURLs: a.Config.Chain.RPCURLs,
		Timeout: a.Config.Chain.RequestTimeout,
	}, a.Logger)
	defer prober.Close()

	res, err := prober.Inspect(ctx, target.Network, target.Address)
	if err != nil {
		return fmt.Errorf("inspect contract %d: %w", id, err)
	}

	paused := "unknown"
	if res.Paused != nil {
		paused = fmt.Sprintf("%t", *res.Paused)
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Contract\t#%d\n", id)
	fmt.Fprintf(writer, "Network\t%s\n", res.Network)
	fmt.Fprintf(writer, "Address\t%s\n", res.Address)
	fmt.Fprintf(writer, "Deployed code\t%t (%d bytes)\n", res.HasCode, res.CodeSize)
	fmt.Fprintf(writer, "Balance\t%s ETH\n", res.Balance.StringFixed(6))
	fmt.Fprintf(writer, "Paused\t%s\n", paused)
	fmt.Fprintf(writer, "Block\t%d\n", res.BlockNumber)
	writer.Flush()

	if !res.HasCode {
		return fmt.Errorf("no contract code at %s on %s", res.Address, res.Network)
	}
	return nil
}

func (a *App) printBanner(dash *dashboard.Dashboard) {
	if dash.BackendDown() {
		fmt.Fprintln(a.Out, placeholderBanner)
	}
}

func (a *App) printContracts(contracts []backend.Contract) {
	if len(contracts) == 0 {
		fmt.Fprintln(a.Out, "no contracts tracked")
		return
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNetwork\tAddress\tStatus\tThreat\tDescription")
	for _, c := range contracts {
		desc := ""
		if c.Description != nil {
			desc = sanitizeInline(*c.Description)
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Network, c.Address, c.Status, c.ThreatLevel, desc)
	}
	writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
