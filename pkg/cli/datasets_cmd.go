package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var datasetColumns = []string{"name", "table", "bucket", "prefix", "paused", "schedule_cron"}

func newDatasetsCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Manage dataset definitions",
	}

	cmd.AddCommand(newDatasetsListCmd(client))
	cmd.AddCommand(newDatasetsGetCmd(client))
	cmd.AddCommand(newDatasetsDeleteCmd(client))
	cmd.AddCommand(newDatasetsTriggerCmd(client))
	cmd.AddCommand(newDatasetsPauseCmd(client))
	cmd.AddCommand(newDatasetsResumeCmd(client))

	return cmd
}

func newDatasetsListCmd(client *Client) *cobra.Command {
	var (
		all        bool
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if maxResults > 0 {
				q.Set("max_results", strconv.Itoa(maxResults))
			}
			items, err := fetchList(client, "/datasets", "datasets", q, all)
			if err != nil {
				return err
			}
			return printItems(cmd, items, "name", datasetColumns)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Fetch all pages")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Maximum number of results per page")

	return cmd
}

func newDatasetsGetCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := fetchJSON(client, http.MethodGet, "/datasets/"+args[0], nil, nil)
			if err != nil {
				return err
			}
			return printResource(cmd, data, "name")
		},
	}
}

func newDatasetsDeleteCmd(client *Client) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a dataset and its run history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			ok, err := confirmOrSkip(yes, fmt.Sprintf("Delete dataset %q and its run history? [y/N] ", name))
			if err != nil || !ok {
				return err
			}

			resp, err := client.Do(http.MethodDelete, "/datasets/"+name, nil, nil)
			if err != nil {
				return err
			}
			if err := CheckError(resp); err != nil {
				return err
			}
			_ = resp.Body.Close()

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"deleted": name})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Dataset %q deleted.\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip interactive confirmation prompt")

	return cmd
}

func newDatasetsTriggerCmd(client *Client) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "trigger <name>",
		Short: "Scan a dataset's landing zone and dispatch folder runs",
		Long:  "Scans the dataset's landing zone immediately. Folders at or behind the watermark are skipped unless --force is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if force {
				q.Set("force", "true")
			}
			data, err := fetchJSON(client, http.MethodPost, "/datasets/"+args[0]+"/trigger", q, nil)
			if err != nil {
				return err
			}

			if isQuiet(cmd) {
				ids, _ := data["run_ids"].([]any)
				for _, id := range ids {
					if s, ok := id.(string); ok {
						_, _ = fmt.Fprintln(os.Stdout, s)
					}
				}
				return nil
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, data)
			}
			PrintDetail(os.Stdout, data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-dispatch folders even when the watermark gates them")

	return cmd
}

func newDatasetsPauseCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <name>",
		Short: "Pause scheduled and scanned ingestion for a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setDatasetPaused(cmd, client, args[0], true)
		},
	}
}

func newDatasetsResumeCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <name>",
		Short: "Resume ingestion for a paused dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setDatasetPaused(cmd, client, args[0], false)
		},
	}
}

func setDatasetPaused(cmd *cobra.Command, client *Client, name string, paused bool) error {
	body := map[string]any{"paused": paused}
	data, err := fetchJSON(client, http.MethodPatch, "/datasets/"+name, nil, body)
	if err != nil {
		return err
	}
	return printResource(cmd, data, "name")
}
