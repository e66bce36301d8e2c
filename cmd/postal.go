package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var postalCmd = &cobra.Command{
	Use:   "postal",
	Short: "Query and warm the postal-code coordinate source",
}

var postalLookupCmd = &cobra.Command{
	Use:   "lookup <country> <postal-code>",
	Short: "Look up the coordinates of one postal code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		r, err := newGeocoder(cfg, st).Lookup(ctx, args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "postal lookup")
		}
		if !r.Matched {
			return eris.Errorf("postal lookup: no coordinates for %s-%s", args[0], args[1])
		}
		_, _ = fmt.Fprintf(os.Stdout, "%.6f,%.6f\t%s\t(%s)\n", r.Latitude, r.Longitude, r.PlaceName, r.Source)
		return nil
	},
}

var postalWarmCmd = &cobra.Command{
	Use:   "warm <country>",
	Short: "Load a whole country dataset into the lookup cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		locs, err := newGeocoder(cfg, nil).Locations(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "postal warm")
		}
		if len(locs) == 0 {
			return eris.Errorf("postal warm: no postal dataset for %s", args[0])
		}

		n, err := st.ImportPostal(ctx, locs)
		if err != nil {
			return eris.Wrap(err, "postal warm")
		}
		zap.L().Info("postal: cache warmed", zap.String("country", args[0]), zap.Int64("codes", n))
		_, _ = fmt.Fprintf(os.Stdout, "cached %d postal codes for %s\n", n, args[0])
		return nil
	},
}

func init() {
	postalCmd.AddCommand(postalLookupCmd)
	postalCmd.AddCommand(postalWarmCmd)
	rootCmd.AddCommand(postalCmd)
}
