package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"aegis-sync/internal/storage"
)

// Export renders the poll journal as CSV and/or a PNG latency chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	defer closeStore()

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Polling.ResourcesInterval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	events, err := store.ListPollEventsBetween(ctx, opts.Resource, from, to)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		a.Logger.Info().Msg("no poll events found for export window")
		return nil
	}

	byResource := groupByResource(events)
	exported := 0
	for name, series := range byResource {
		byResource[name] = downsampleEvents(series, opts.MaxPoints)
		exported += len(byResource[name])
	}
	a.Logger.Info().Int("total", len(events)).Int("exported", exported).Int("resources", len(byResource)).Msg("exporting poll events")

	if opts.CSVPath != "" {
		if err := writeEventsCSV(opts.CSVPath, byResource); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeLatencyPNG(opts.PNGPath, byResource); err != nil {
			return err
		}
	}

	return nil
}

func groupByResource(events []storage.PollEvent) map[string][]storage.PollEvent {
	out := make(map[string][]storage.PollEvent)
	for _, e := range events {
		out[e.Resource] = append(out[e.Resource], e)
	}
	return out
}

func sortedResources(byResource map[string][]storage.PollEvent) []string {
	names := make([]string, 0, len(byResource))
	for name := range byResource {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func downsampleEvents(events []storage.PollEvent, max int) []storage.PollEvent {
	if max <= 0 || len(events) <= max {
		return events
	}
	if max == 1 {
		return events[len(events)-1:]
	}

	result := make([]storage.PollEvent, 0, max)
	step := float64(len(events)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(events) {
			idx = len(events) - 1
		}
		result = append(result, events[idx])
	}
	return result
}

func writeEventsCSV(path string, byResource map[string][]storage.PollEvent) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"observed_at", "resource", "degraded", "duration_ms", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, name := range sortedResources(byResource) {
		for _, e := range byResource[name] {
			errMsg := ""
			if e.Error != nil {
				errMsg = *e.Error
			}
			record := []string{
				e.ObservedAt.UTC().Format(time.RFC3339Nano),
				e.Resource,
				strconv.FormatBool(e.Degraded),
				strconv.FormatInt(e.DurationMS, 10),
				errMsg,
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeLatencyPNG(path string, byResource map[string][]storage.PollEvent) error {
	series := make([]chart.Series, 0, len(byResource))
	for _, name := range sortedResources(byResource) {
		events := byResource[name]
		// go-chart cannot scale a series with a single point.
		if len(events) < 2 {
			continue
		}
		x := make([]time.Time, len(events))
		latency := make([]float64, len(events))
		for i, e := range events {
			x[i] = e.ObservedAt
			latency[i] = float64(e.DurationMS)
		}
		series = append(series, chart.TimeSeries{
			Name:    name,
			XValues: x,
			YValues: latency,
		})
	}
	if len(series) == 0 {
		return errors.New("not enough poll events to chart; need two per resource")
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Fetch latency (ms)",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
