package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var apiKeyColumns = []string{"id", "name", "key_prefix", "created_by", "expires_at", "created_at"}

func newKeysCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys for machine clients",
	}

	cmd.AddCommand(newKeysListCmd(client))
	cmd.AddCommand(newKeysCreateCmd(client))
	cmd.AddCommand(newKeysRevokeCmd(client))

	return cmd
}

func newKeysListCmd(client *Client) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := fetchList(client, "/keys", "keys", nil, all)
			if err != nil {
				return err
			}
			return printItems(cmd, items, "id", apiKeyColumns)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Fetch all pages")

	return cmd
}

func newKeysCreateCmd(client *Client) *cobra.Command {
	var (
		name    string
		expires time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		Long:  "Creates an API key and prints the raw key. The raw key is shown exactly once; only its prefix is stored.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body := map[string]any{"name": name}
			if expires > 0 {
				body["expires_at"] = time.Now().Add(expires).UTC().Format(time.RFC3339)
			}

			data, err := fetchJSON(client, http.MethodPost, "/keys", nil, body)
			if err != nil {
				return err
			}
			rawKey := ExtractField(data, "key")

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, data)
			}
			// Piped output gets just the key so scripts can capture it.
			if isQuiet(cmd) || !IsStdoutTTY() {
				_, _ = fmt.Fprintln(os.Stdout, rawKey)
				return nil
			}

			_, _ = fmt.Fprintf(os.Stdout, "API key created. Save this key now; it is not shown again.\n\n  %s\n\n", rawKey)
			if keyInfo, ok := data["api_key"].(map[string]any); ok {
				PrintDetail(os.Stdout, keyInfo)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Key name (required)")
	cmd.Flags().DurationVar(&expires, "expires", 0, "Expiry duration from now (0 means no expiry)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newKeysRevokeCmd(client *Client) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			ok, err := confirmOrSkip(yes, fmt.Sprintf("Revoke API key %s? Clients using it stop working immediately. [y/N] ", id))
			if err != nil || !ok {
				return err
			}

			resp, err := client.Do(http.MethodDelete, "/keys/"+id, nil, nil)
			if err != nil {
				return err
			}
			if err := CheckError(resp); err != nil {
				return err
			}
			_ = resp.Body.Close()

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"revoked": id})
			}
			_, _ = fmt.Fprintf(os.Stdout, "API key %s revoked.\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip interactive confirmation prompt")

	return cmd
}
