package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	runColumns      = []string{"id", "dataset", "folder_ts", "status", "trigger_type", "rows_loaded", "created_at"}
	runEventColumns = []string{"at", "level", "step", "message"}
)

func newRunsCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect folder ingestion runs",
	}

	cmd.AddCommand(newRunsListCmd(client))
	cmd.AddCommand(newRunsGetCmd(client))
	cmd.AddCommand(newRunsEventsCmd(client))
	cmd.AddCommand(newRunsWatchCmd(client))

	return cmd
}

func newRunsListCmd(client *Client) *cobra.Command {
	var (
		dataset    string
		status     string
		all        bool
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if dataset != "" {
				q.Set("dataset", dataset)
			}
			if status != "" {
				q.Set("status", status)
			}
			if maxResults > 0 {
				q.Set("max_results", strconv.Itoa(maxResults))
			}
			items, err := fetchList(client, "/runs", "runs", q, all)
			if err != nil {
				return err
			}
			return printItems(cmd, items, "id", runColumns)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Filter by dataset name")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCESS, FAILED, SKIPPED, CANCELLED)")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch all pages")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Maximum number of results per page")

	return cmd
}

func newRunsGetCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := fetchJSON(client, http.MethodGet, "/runs/"+args[0], nil, nil)
			if err != nil {
				return err
			}
			return printResource(cmd, data, "id")
		},
	}
}

func newRunsEventsCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "events <id>",
		Short: "Show the step log of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := fetchRunEvents(client, args[0])
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, events)
			}
			PrintTable(os.Stdout, runEventColumns, extractItemRows(events, runEventColumns))
			return nil
		},
	}
}

func newRunsWatchCmd(client *Client) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Stream a run's step log until it finishes",
		Long:  "Polls the run and prints new step events as they appear. Exits when the run reaches a terminal status; a failed run exits non-zero.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			seen := 0

			for {
				run, err := fetchJSON(client, http.MethodGet, "/runs/"+id, nil, nil)
				if err != nil {
					return err
				}
				events, err := fetchRunEvents(client, id)
				if err != nil {
					return err
				}
				for _, item := range events[seen:] {
					ev, ok := item.(map[string]any)
					if !ok {
						continue
					}
					_, _ = fmt.Fprintf(os.Stdout, "%s  %-5s  %-10s  %s\n",
						ExtractField(ev, "at"), ExtractField(ev, "level"),
						ExtractField(ev, "step"), ExtractField(ev, "message"))
				}
				seen = len(events)

				status := ExtractField(run, "status")
				if isTerminalRunStatus(status) {
					_, _ = fmt.Fprintf(os.Stdout, "\nRun %s finished: %s (rows_loaded=%s, rows_dropped=%s)\n",
						id, status, ExtractField(run, "rows_loaded"), ExtractField(run, "rows_dropped"))
					if status == "FAILED" {
						if msg := ExtractField(run, "error_message"); msg != "" {
							_, _ = fmt.Fprintf(os.Stdout, "Error: %s\n", msg)
						}
						os.Exit(1)
					}
					return nil
				}
				time.Sleep(interval)
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Poll interval")

	return cmd
}

func fetchRunEvents(client *Client, id string) ([]any, error) {
	data, err := fetchJSON(client, http.MethodGet, "/runs/"+id+"/events", nil, nil)
	if err != nil {
		return nil, err
	}
	events, _ := data["events"].([]any)
	return events, nil
}

func isTerminalRunStatus(status string) bool {
	switch status {
	case "SUCCESS", "FAILED", "SKIPPED", "CANCELLED":
		return true
	}
	return false
}
