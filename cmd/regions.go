package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/giovannicarmo/ecoleta-ui/internal/regions"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Look up IBGE states and cities",
}

var regionsStatesCmd = &cobra.Command{
	Use:   "states",
	Short: "List the UF codes offered by the form",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}
		ctx := cmd.Context()

		svc, closeFn := lookupService(cmd)
		defer closeFn()

		ufs, err := svc.States(ctx)
		if err != nil {
			return eris.Wrap(err, "regions states")
		}
		printLines(os.Stdout, ufs)
		return nil
	},
}

var regionsCitiesCmd = &cobra.Command{
	Use:   "cities <uf>",
	Short: "List the cities of a UF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}
		ctx := cmd.Context()

		svc, closeFn := lookupService(cmd)
		defer closeFn()

		cities, err := svc.Cities(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "regions cities")
		}
		if len(cities) == 0 {
			fmt.Fprintln(os.Stderr, "No cities found.")
			return nil
		}
		printLines(os.Stdout, cities)
		return nil
	},
}

// lookupService builds the region service, caching through the store
// unless --no-cache is set or the store cannot be opened.
func lookupService(cmd *cobra.Command) (*regions.Service, func()) {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	if noCache {
		return initRegions(nil), func() {}
	}

	st, err := initStore(cmd.Context())
	if err != nil {
		zap.L().Warn("lookup cache unavailable", zap.Error(err))
		return initRegions(nil), func() {}
	}
	return initRegions(st), func() { st.Close() } //nolint:errcheck
}

func printLines(out io.Writer, lines []string) {
	for _, l := range lines {
		_, _ = fmt.Fprintln(out, l)
	}
}

func init() {
	regionsCmd.PersistentFlags().Bool("no-cache", false, "bypass the lookup cache")

	regionsCmd.AddCommand(regionsStatesCmd)
	regionsCmd.AddCommand(regionsCitiesCmd)
	rootCmd.AddCommand(regionsCmd)
}
