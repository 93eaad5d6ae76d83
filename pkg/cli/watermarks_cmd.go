package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var watermarkColumns = []string{"source", "folder_ts", "updated_at"}

func newWatermarksCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watermarks",
		Short: "Inspect and reset incremental-load watermarks",
	}

	cmd.AddCommand(newWatermarksListCmd(client))
	cmd.AddCommand(newWatermarksGetCmd(client))
	cmd.AddCommand(newWatermarksResetCmd(client))

	return cmd
}

func newWatermarksListCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List watermarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := fetchList(client, "/watermarks", "watermarks", nil, false)
			if err != nil {
				return err
			}
			return printItems(cmd, items, "source", watermarkColumns)
		},
	}
}

func newWatermarksGetCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <source>",
		Short: "Show the watermark for a dataset source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := fetchJSON(client, http.MethodGet, "/watermarks/"+args[0], nil, nil)
			if err != nil {
				return err
			}
			return printResource(cmd, data, "source")
		},
	}
}

func newWatermarksResetCmd(client *Client) *cobra.Command {
	var (
		to  string
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "reset <source>",
		Short: "Reset the watermark for a dataset source",
		Long:  "Moves the watermark to the given folder timestamp. Without --to the watermark is cleared, so the next scan reloads every folder.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]

			prompt := fmt.Sprintf("Reset watermark for %q to %q? Folders after it will be re-ingested. [y/N] ", source, to)
			if to == "" {
				prompt = fmt.Sprintf("Clear watermark for %q? The next scan reloads every folder. [y/N] ", source)
			}
			ok, err := confirmOrSkip(yes, prompt)
			if err != nil || !ok {
				return err
			}

			body := map[string]string{"folder_ts": to}
			data, err := fetchJSON(client, http.MethodPost, "/watermarks/"+source+"/reset", nil, body)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, data)
			}
			if to == "" {
				_, _ = fmt.Fprintf(os.Stdout, "Watermark for %q cleared.\n", source)
				return nil
			}
			_, _ = fmt.Fprintf(os.Stdout, "Watermark for %q reset to %s.\n", source, ExtractField(data, "folder_ts"))
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Folder timestamp to reset to (empty clears the watermark)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip interactive confirmation prompt")

	return cmd
}
