package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/greenhaul/route-planner/internal/model"
	"github.com/greenhaul/route-planner/internal/ordersheet"
	"github.com/greenhaul/route-planner/internal/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve order-sheet customers without planning a route",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format != "table" && format != "json" {
			return eris.Errorf("resolve: unknown format %q (table, json)", format)
		}
		sheet, _ := cmd.Flags().GetString("sheet")
		customers, _ := cmd.Flags().GetString("customers")
		suggest, _ := cmd.Flags().GetInt("suggest")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		queries, err := ordersheet.Read(firstNonEmpty(sheet, cfg.Input.OrderSheet), cfg.Input.SheetName)
		if err != nil {
			return err
		}
		resolver, err := loadResolver(ctx, cfg, firstNonEmpty(customers, cfg.Input.CustomerDB))
		if err != nil {
			return err
		}

		res, err := newPipeline(cfg, resolver, newGeocoder(cfg, st)).Run(ctx, queries)
		if err != nil {
			return eris.Wrap(err, "resolve")
		}

		if err := printResolution(os.Stdout, res, format); err != nil {
			return err
		}
		if suggest > 0 && format == "table" {
			printSuggestions(os.Stdout, resolver, res.Unmatched(), suggest)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().String("sheet", "", "order sheet (default input.order_sheet)")
	resolveCmd.Flags().String("customers", "", "customer reference database (default input.customer_db)")
	resolveCmd.Flags().String("format", "table", "output format (table, json)")
	resolveCmd.Flags().Int("suggest", 3, "closest reference names to show per unresolved customer")
	rootCmd.AddCommand(resolveCmd)
}

// printResolution writes one line per customer, or the customers as JSON.
func printResolution(out io.Writer, res *resolve.Resolution, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Customers)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tCUSTOMER\tPROVENANCE\tCODE\tADDRESS\tSCORE\tCOORDINATE")
	_, _ = fmt.Fprintln(w, "---\t--------\t----------\t----\t-------\t-----\t----------")
	for _, c := range res.Customers {
		code, addr := "", ""
		if c.Address != nil {
			code = c.Address.Code
			addr = c.Address.Country + "-" + c.Address.PostalCode
		}
		score := ""
		if c.Provenance == model.ProvenanceMatched {
			score = fmt.Sprintf("%.3f", c.Score)
		}
		coord := ""
		if c.Geocoded() {
			coord = fmt.Sprintf("%.5f,%.5f", c.Coordinate.Lat, c.Coordinate.Lon)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Row, c.Name, c.Provenance, code, addr, score, coord,
		)
	}
	return w.Flush()
}

func printSuggestions(out io.Writer, resolver *resolve.AddressResolver, names []string, limit int) {
	for _, name := range names {
		cands := resolver.Suggest(name, limit)
		if len(cands) == 0 {
			continue
		}
		values := make([]string, len(cands))
		for i, c := range cands {
			values[i] = fmt.Sprintf("%s (%.2f)", c.Value, c.Score)
		}
		_, _ = fmt.Fprintf(out, "%s: did you mean %s?\n", name, strings.Join(values, ", "))
	}
}
