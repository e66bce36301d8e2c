package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/greenhaul/route-planner/internal/model"
	"github.com/greenhaul/route-planner/internal/report"
	"github.com/greenhaul/route-planner/internal/route"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect planning run history",
	Long:  "Commands for listing and viewing recorded planning runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List planning runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, model.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		return formatRun(os.Stdout, run, format)
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (planning, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsShowCmd.Flags().String("format", "json", "output format (json, yaml, geojson)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSHEET\tDEPARTURE\tSTATUS\tSTOPS\tKM\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-----\t---------\t------\t-----\t--\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		stops, km := "", ""
		if r.Summary != nil {
			stops = fmt.Sprintf("%d/%d", r.Summary.Stops, r.Summary.Customers)
			km = fmt.Sprintf("%.1f", r.Summary.TotalKm)
		}

		sheet := r.OrderSheet
		if len(sheet) > 30 {
			sheet = "..." + sheet[len(sheet)-27:]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			sheet,
			r.Departure,
			r.Status,
			stops,
			km,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRun writes one run as JSON, YAML or a GeoJSON route.
func formatRun(out io.Writer, run *model.Run, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(run); err != nil {
			return eris.Wrap(err, "runs show: encode yaml")
		}
		return enc.Close()
	case "geojson":
		return report.WriteGeoJSON(out, report.Document{RunID: run.ID, Plan: planFromRun(run)})
	default:
		return eris.Errorf("runs show: unknown format %q (json, yaml, geojson)", format)
	}
}

// planFromRun rebuilds the route of a stored run. The depot is taken from
// the current configuration.
func planFromRun(run *model.Run) *route.Plan {
	p := &route.Plan{Path: run.Path}
	if cfg != nil {
		p.DepotName = cfg.Depot.Name
		p.Depot = depotOf(cfg)
	}
	for _, s := range run.Stops {
		p.Legs = append(p.Legs, route.Leg{
			Rank:       s.Rank,
			Customer:   s.Customer,
			Coordinate: model.Coordinate{Lat: s.Lat, Lon: s.Lon},
			DistanceKm: s.DistanceKm,
			Hours:      s.Hours,
		})
		p.TotalKm += s.DistanceKm
		p.TotalHours += s.Hours
	}
	return p
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
