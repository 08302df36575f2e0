package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aegis-sync/internal/alerting"
	"aegis-sync/internal/backend"
	"aegis-sync/internal/resource"
)

// AddContract registers a contract. Input is assumed valid.
//
// With the backend reachable the create call is issued and the contract list is
// re-fetched; nothing is merged locally. While the contracts store is degraded no
// call is made: a record is synthesized and appended to the placeholder list so the
// dashboard stays usable offline. A failed create never flips the store to
// degraded; only polling does that.
func (d *Dashboard) AddContract(ctx context.Context, in backend.NewContract) (backend.Contract, error) {
	if d.contracts.Degraded() {
		return d.addOffline(ctx, in), nil
	}

	res, err := d.client.CreateContract(ctx, in)
	if err == nil && res.Rejected() {
		err = errors.New(firstNonEmpty(res.Message, "backend rejected the contract"))
	}
	if err != nil {
		d.logger.Error().Err(err).Str("address", in.ContractAddress).Msg("add contract failed")
		d.notify(ctx, resource.Contracts, alerting.LevelError, "Failed to add contract", err.Error())
		return backend.Contract{}, &MutationError{Op: OpAdd, Err: err}
	}

	created := contractFromInput(res.AssignedID(), in)
	d.refreshAfterWrite(ctx)
	d.notify(ctx, resource.Contracts, alerting.LevelSuccess, "Contract Monitoring Added", fmt.Sprintf("monitoring %s on %s", in.ContractAddress, in.Network))
	return created, nil
}

// addOffline assigns len(list)+1. After an offline delete that id can repeat one
// still in the list; a later delete of it removes every match.
func (d *Dashboard) addOffline(ctx context.Context, in backend.NewContract) backend.Contract {
	var created backend.Contract
	d.contracts.MutateFallback(func(list []backend.Contract) []backend.Contract {
		created = contractFromInput(int64(len(list)+1), in)
		return append(list, created)
	})
	d.logger.Info().Int64("contract_id", created.ID).Msg("backend unavailable; contract added to placeholder list")
	d.notify(ctx, resource.Contracts, alerting.LevelSuccess, "Contract Monitoring Added", "backend unavailable; kept locally until it recovers")
	return created
}

// DeleteContract removes a contract. While degraded the placeholder entry is
// dropped without a network call and the call always succeeds.
func (d *Dashboard) DeleteContract(ctx context.Context, id int64) error {
	if d.contracts.Degraded() {
		d.contracts.MutateFallback(func(list []backend.Contract) []backend.Contract {
			kept := list[:0]
			for _, c := range list {
				if c.ID != id {
					kept = append(kept, c)
				}
			}
			return kept
		})
		d.logger.Info().Int64("contract_id", id).Msg("backend unavailable; contract removed from placeholder list")
		return nil
	}

	if err := d.client.DeleteContract(ctx, id); err != nil {
		d.logger.Error().Err(err).Int64("contract_id", id).Msg("delete contract failed")
		d.notify(ctx, resource.Contracts, alerting.LevelError, "Failed to delete contract", err.Error())
		return &MutationError{Op: OpDelete, ContractID: id, Err: err}
	}

	d.refreshAfterWrite(ctx)
	d.notify(ctx, resource.Contracts, alerting.LevelSuccess, "Contract removed", fmt.Sprintf("contract %d is no longer monitored", id))
	return nil
}

// refreshAfterWrite re-fetches the resources a contract write changes. Failures
// are handled by the stores themselves.
func (d *Dashboard) refreshAfterWrite(ctx context.Context) {
	_ = d.contracts.Refresh(ctx)
	_ = d.stats.Refresh(ctx)
}

func contractFromInput(id int64, in backend.NewContract) backend.Contract {
	c := backend.Contract{
		ID:                  id,
		Network:             in.Network,
		Address:             in.ContractAddress,
		Status:              backend.StatusHealthy,
		ThreatLevel:         backend.ThreatLow,
		MonitoringFrequency: in.MonitoringFrequency,
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		c.Description = &desc
	}
	if url := strings.TrimSpace(in.SubgraphURL); url != "" {
		c.SubgraphURL = &url
	}
	return c
}

func (d *Dashboard) notify(ctx context.Context, resourceName string, level alerting.Level, title, message string) {
	note := alerting.Notification{
		Level:    level,
		Title:    title,
		Message:  message,
		Resource: resourceName,
		Time:     time.Now().UTC(),
	}
	if err := d.notifier.Notify(ctx, note); err != nil {
		d.logger.Error().Err(err).Msg("failed to deliver notification")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
