package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenhaul/route-planner/internal/config"
	"github.com/greenhaul/route-planner/internal/model"
	"github.com/greenhaul/route-planner/internal/ordersheet"
	"github.com/greenhaul/route-planner/internal/report"
	"github.com/greenhaul/route-planner/internal/resolve"
	"github.com/greenhaul/route-planner/internal/route"
	"github.com/greenhaul/route-planner/internal/store"
)

// planOptions holds the command-line overrides of a plan run.
type planOptions struct {
	Sheet     string
	Customers string
	OutDir    string
	Departure string
	DryRun    bool
}

var planOpts planOptions

// planResult is what a plan run produced.
type planResult struct {
	RunID      string
	Resolution *resolve.Resolution
	Plan       *route.Plan
	Files      []string
	Filled     int
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan the delivery route for an order sheet",
	Long:  "Resolves every customer of the order sheet, optimizes the trip from the depot and writes the loading list, summary, map link, route GeoJSON, stop table and completed order sheet.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("plan"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := runPlan(ctx, cfg, st, newGeocoder(cfg, st), newOptimizer(cfg), planOpts)
		if err != nil {
			return eris.Wrap(err, "plan")
		}

		if planOpts.DryRun {
			return printResolution(os.Stdout, res.Resolution, "table")
		}
		printPlanResult(os.Stdout, res)
		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planOpts.Sheet, "sheet", "", "order sheet (default input.order_sheet)")
	planCmd.Flags().StringVar(&planOpts.Customers, "customers", "", "customer reference database (default input.customer_db)")
	planCmd.Flags().StringVar(&planOpts.OutDir, "out", "", "output directory (default output.dir)")
	planCmd.Flags().StringVar(&planOpts.Departure, "departure", "", "departure label written to the summary")
	planCmd.Flags().BoolVar(&planOpts.DryRun, "dry-run", false, "resolve customers and stop before the optimizer")
	rootCmd.AddCommand(planCmd)
}

// runPlan executes one planning run. Unless DryRun is set the run is
// recorded in st; any failure after that marks the run failed.
func runPlan(ctx context.Context, c *config.Config, st store.Store, geo resolve.Geocoder, opt route.Optimizer, opts planOptions) (_ *planResult, err error) {
	sheet := firstNonEmpty(opts.Sheet, c.Input.OrderSheet)
	customers := firstNonEmpty(opts.Customers, c.Input.CustomerDB)
	outDir := firstNonEmpty(opts.OutDir, c.Output.Dir)

	out := &planResult{}
	if !opts.DryRun {
		run, cerr := st.CreateRun(ctx, sheet, opts.Departure)
		if cerr != nil {
			return nil, cerr
		}
		out.RunID = run.ID
		defer func() {
			if err == nil {
				return
			}
			if ferr := st.FailRun(context.WithoutCancel(ctx), run.ID, err); ferr != nil {
				zap.L().Error("plan: record failed run", zap.String("run_id", run.ID), zap.Error(ferr))
			}
		}()
	}

	queries, err := ordersheet.Read(sheet, c.Input.SheetName)
	if err != nil {
		return nil, err
	}
	resolver, err := loadResolver(ctx, c, customers)
	if err != nil {
		return nil, err
	}

	res, err := newPipeline(c, resolver, geo).Run(ctx, queries)
	if err != nil {
		return nil, err
	}
	out.Resolution = res
	if opts.DryRun {
		return out, nil
	}

	plan, err := route.NewPlanner(opt).Plan(ctx, res.Coordinates)
	if err != nil {
		return nil, err
	}
	out.Plan = plan

	doc := report.Document{
		RunID:        out.RunID,
		Departure:    opts.Departure,
		TruckLabel:   c.Output.TruckLabel,
		SummaryImage: c.Output.SummaryImage,
		Customers:    res.Customers,
		Plan:         plan,
	}
	files, err := report.NewWriter(outDir).WriteAll(doc)
	if err != nil {
		return nil, err
	}

	completed := filepath.Join(outDir, ordersheet.CompletedFile)
	filled, err := ordersheet.WriteCompleted(sheet, c.Input.SheetName, completed, res.Customers)
	if err != nil {
		return nil, err
	}
	out.Files = append(files, completed)
	out.Filled = filled

	summary := &model.RunSummary{
		Customers:  len(res.Customers),
		Stops:      len(plan.Legs),
		TotalKm:    plan.TotalKm,
		TotalHours: plan.TotalHours,
		Unmatched:  res.Unmatched(),
		Ungeocoded: res.Ungeocoded(),
	}
	if err := st.CompleteRun(ctx, out.RunID, summary, runStops(plan, res), plan.Path); err != nil {
		return nil, err
	}

	zap.L().Info("plan: run complete",
		zap.String("run_id", out.RunID),
		zap.Int("stops", summary.Stops),
		zap.Float64("total_km", summary.TotalKm),
		zap.Strings("excluded", res.Excluded()),
	)
	return out, nil
}

// runStops flattens the plan legs into persisted stops.
func runStops(plan *route.Plan, res *resolve.Resolution) []model.RunStop {
	stops := make([]model.RunStop, len(plan.Legs))
	for i, l := range plan.Legs {
		st := model.RunStop{
			Rank:       l.Rank,
			Customer:   l.Customer,
			Lat:        l.Coordinate.Lat,
			Lon:        l.Coordinate.Lon,
			DistanceKm: l.DistanceKm,
			Hours:      l.Hours,
		}
		if c, ok := res.Customer(l.Customer); ok && c.Address != nil {
			st.Country = c.Address.Country
			st.PostalCode = c.Address.PostalCode
		}
		stops[i] = st
	}
	return stops
}

func printPlanResult(out io.Writer, r *planResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", r.RunID)
	_, _ = fmt.Fprintf(w, "Customers:\t%d\n", len(r.Resolution.Customers))
	_, _ = fmt.Fprintf(w, "Stops:\t%d\n", len(r.Plan.Legs))
	_, _ = fmt.Fprintf(w, "Total distance:\t%.1f km\n", r.Plan.TotalKm)
	_, _ = fmt.Fprintf(w, "Total time:\t%.2f h\n", r.Plan.TotalHours)
	if excluded := r.Resolution.Excluded(); len(excluded) > 0 {
		_, _ = fmt.Fprintf(w, "Place manually:\t%s\n", strings.Join(excluded, ", "))
	}
	_, _ = fmt.Fprintf(w, "Sheet rows filled:\t%d\n", r.Filled)
	for _, f := range r.Files {
		_, _ = fmt.Fprintf(w, "Wrote:\t%s\n", f)
	}
	_ = w.Flush()
}
