package main

import (
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import data into the database",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "charts <file.csv|file.parquet>",
		Short: "Load the chart catalog",
		Long: `Loads chart metadata from a CSV or parquet file. CSV rows hold title,
difficulty, level, chart constant, an unused column, note count, three unused
columns and artist. Charts already present are left as they are.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.progress(cmd, "📥 Importing charts from %s...", args[0])
			summary, err := a.svc.ImportCharts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.progress(cmd, "✅ %d charts read, %d new", summary.Rows, summary.Created)
			return a.printer.Value(summary)
		},
	})

	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export data from the database",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "charts <file.csv|file.parquet>",
		Short: "Write the chart catalog to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.svc.ExportCharts(args[0])
			if err != nil {
				return err
			}
			a.progress(cmd, "✅ Wrote %d charts to %s", n, args[0])
			return nil
		},
	})

	return cmd
}
