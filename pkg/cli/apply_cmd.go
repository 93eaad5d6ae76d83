package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"driftline/internal/declarative"
)

func newApplyCmd(client *Client) *cobra.Command {
	var (
		dir         string
		autoApprove bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply dataset definitions from a directory to the server",
		Long:  "Reads dataset definition YAML files, validates them locally, and submits them to the server for upsert.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// 1. Parse and validate locally before anything leaves the machine.
			docs, err := declarative.LoadDirectory(dir)
			if err != nil {
				return fmt.Errorf("load definitions: %w", err)
			}
			if len(docs) == 0 {
				_, _ = fmt.Fprintf(os.Stdout, "No dataset definitions found in %s.\n", dir)
				return nil
			}

			// 2. Show what will be applied.
			_, _ = fmt.Fprintf(os.Stdout, "Applying %d dataset definition(s) from %s:\n", len(docs), dir)
			for _, doc := range docs {
				_, _ = fmt.Fprintf(os.Stdout, "  - %s\n", doc.Metadata.Name)
			}

			// 3. Confirm unless auto-approved.
			if !autoApprove {
				if !IsStdinTTY() {
					return fmt.Errorf("confirmation required but stdin is not a terminal; use --auto-approve")
				}
				_, _ = fmt.Fprint(os.Stdout, "\nApply these definitions? [y/N] ")
				reader := bufio.NewReader(os.Stdin)
				answer, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read confirmation: %w", err)
				}
				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" && answer != "yes" {
					_, _ = fmt.Fprintln(os.Stdout, "Apply cancelled.")
					return nil
				}
			}

			// 4. Submit the raw files; the server re-validates and upserts.
			raw, err := readDefinitionFiles(dir)
			if err != nil {
				return err
			}
			resp, err := client.DoRaw(http.MethodPost, "/datasets/apply", nil, "application/yaml", bytes.NewReader(raw))
			if err != nil {
				return err
			}
			if err := CheckError(resp); err != nil {
				return err
			}
			respBody, err := ReadBody(resp)
			if err != nil {
				return err
			}

			var result struct {
				Results []struct {
					Name   string `json:"name"`
					Action string `json:"action"`
					Error  string `json:"error"`
				} `json:"results"`
			}
			if err := json.Unmarshal(respBody, &result); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, result)
			}

			// 5. Print per-definition outcomes and a summary.
			_, _ = fmt.Fprintln(os.Stdout)
			var succeeded, failed int
			for _, res := range result.Results {
				if res.Error != "" {
					_, _ = fmt.Fprintf(os.Stdout, "  %s %q ... failed: %s\n", res.Action, res.Name, res.Error)
					failed++
				} else {
					_, _ = fmt.Fprintf(os.Stdout, "  %s %q ... ok\n", res.Action, res.Name)
					succeeded++
				}
			}
			_, _ = fmt.Fprintf(os.Stdout, "\nApply complete: %d succeeded, %d failed.\n", succeeded, failed)
			if failed > 0 {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./datasets", "Path to the dataset definitions directory")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip interactive confirmation prompt")

	return cmd
}

// readDefinitionFiles concatenates every .yaml and .yml file directly under
// dir, in filename order, as one multi-document YAML stream. The selection
// matches what LoadDirectory parses so the server sees the same documents
// that passed local validation.
func readDefinitionFiles(dir string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}

	var buf bytes.Buffer
	first := true
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if !first {
			buf.WriteString("\n---\n")
		}
		buf.Write(data)
		first = false
	}
	return buf.Bytes(), nil
}
