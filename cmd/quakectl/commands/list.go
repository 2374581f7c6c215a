package commands

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-data-etl/internal/app"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/query"
)

func newListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list [--limit N]",
		Short: "Prints stored records, most recent first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				records, err := a.Query.Latest(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if records == nil {
					records = []domain.EarthquakeRecord{}
				}
				return printJSON(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", query.DefaultLimit, "maximum number of records to print")
	return cmd
}
