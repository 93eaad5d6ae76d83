package cli

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func newScanCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan every active dataset's landing zone",
		Long:  "Scans the landing zone of every unpaused dataset and dispatches folder runs for anything past the watermark.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchJSON(client, http.MethodPost, "/scan", nil, nil)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, data)
			}
			PrintDetail(os.Stdout, data)
			return nil
		},
	}
}
