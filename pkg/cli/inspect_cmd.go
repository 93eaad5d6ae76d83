package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"driftline/internal/profile"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Profile a local file without a server",
		Long:  "Runs the column profiler against a local CSV or Parquet file. No server connection is required.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.New()
			if err != nil {
				return fmt.Errorf("open profiler: %w", err)
			}
			defer func() { _ = p.Close() }()

			fp, err := p.Profile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("profile file: %w", err)
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, fp)
			}

			_, _ = fmt.Fprintf(os.Stdout, "%s: %d rows\n\n", fp.Path, fp.Rows)
			columns := []string{"column", "type", "nulls", "distinct", "min", "max"}
			rows := make([][]string, 0, len(fp.Columns))
			for _, col := range fp.Columns {
				rows = append(rows, []string{
					col.Name,
					col.Type,
					strconv.FormatInt(col.Nulls, 10),
					strconv.FormatInt(col.Distinct, 10),
					col.Min,
					col.Max,
				})
			}
			PrintTable(os.Stdout, columns, rows)
			return nil
		},
	}
}
