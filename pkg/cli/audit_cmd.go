package cli

import (
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var auditColumns = []string{"created_at", "principal_name", "action", "resource_type", "resource_name", "status"}

func newAuditCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
	}

	cmd.AddCommand(newAuditListCmd(client))

	return cmd
}

func newAuditListCmd(client *Client) *cobra.Command {
	var (
		principal  string
		action     string
		status     string
		since      string
		maxResults int
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if principal != "" {
				q.Set("principal", principal)
			}
			if action != "" {
				q.Set("action", action)
			}
			if status != "" {
				q.Set("status", status)
			}
			if since != "" {
				// Accept either a duration ("24h") or an RFC 3339 timestamp.
				if d, err := time.ParseDuration(since); err == nil {
					q.Set("since", time.Now().Add(-d).UTC().Format(time.RFC3339))
				} else {
					q.Set("since", since)
				}
			}
			if maxResults > 0 {
				q.Set("max_results", strconv.Itoa(maxResults))
			}

			items, err := fetchList(client, "/audit", "entries", q, all)
			if err != nil {
				return err
			}
			return printItems(cmd, items, "id", auditColumns)
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Filter by principal name")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (success, error, denied)")
	cmd.Flags().StringVar(&since, "since", "", "Only entries newer than a duration (24h) or RFC 3339 timestamp")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Maximum number of results per page")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch all pages")

	return cmd
}
