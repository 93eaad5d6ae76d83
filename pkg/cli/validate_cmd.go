package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

func newValidateCmd(client *Client) *cobra.Command {
	var filename string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Upload a file for validation and profiling",
		Long:  "Uploads a local landing-zone file to the server, which runs drop-gate validation and a column profile against it. A file that fails validation exits non-zero.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer func() { _ = f.Close() }()

			name := filename
			if name == "" {
				name = filepath.Base(path)
			}
			q := url.Values{}
			q.Set("filename", name)

			resp, err := client.DoRaw(http.MethodPost, "/validate", q, "text/csv", f)
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

			var report validationReport
			if err := json.Unmarshal(respBody, &report); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if getOutputFormat(cmd) == "json" {
				var raw any
				if err := json.Unmarshal(respBody, &raw); err != nil {
					return fmt.Errorf("parse response: %w", err)
				}
				if err := PrintJSON(os.Stdout, raw); err != nil {
					return err
				}
				if !report.ok() {
					os.Exit(1)
				}
				return nil
			}

			printValidationReport(&report)
			if !report.ok() {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filename, "filename", "", "Override the filename sent to the server")

	return cmd
}

type validationReport struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Result    *struct {
		Header        []string       `json:"header"`
		RowCount      int            `json:"row_count"`
		NullRows      []int          `json:"null_rows"`
		NullsByColumn map[string]int `json:"nulls_by_column"`
		OK            bool           `json:"ok"`
		Reason        string         `json:"reason"`
	} `json:"result"`
	Profile *struct {
		Rows    int64 `json:"rows"`
		Columns []struct {
			Name     string `json:"name"`
			Type     string `json:"type"`
			Nulls    int64  `json:"nulls"`
			Distinct int64  `json:"distinct"`
			Min      string `json:"min"`
			Max      string `json:"max"`
		} `json:"columns"`
	} `json:"profile"`
	ProfileError string `json:"profile_error"`
}

func (r *validationReport) ok() bool {
	return r.Result != nil && r.Result.OK
}

func printValidationReport(report *validationReport) {
	_, _ = fmt.Fprintf(os.Stdout, "%s (%d bytes)\n", report.Filename, report.SizeBytes)

	if report.ok() {
		_, _ = fmt.Fprintf(os.Stdout, "Validation passed: %d rows, %d columns.\n",
			report.Result.RowCount, len(report.Result.Header))
		if n := len(report.Result.NullRows); n > 0 {
			_, _ = fmt.Fprintf(os.Stdout, "%d row(s) would be dropped by the null gate.\n", n)
		}
	} else {
		reason := "unknown"
		if report.Result != nil && report.Result.Reason != "" {
			reason = report.Result.Reason
		}
		_, _ = fmt.Fprintf(os.Stdout, "Validation failed: %s\n", reason)
	}

	if report.Profile != nil {
		_, _ = fmt.Fprintln(os.Stdout)
		columns := []string{"column", "type", "nulls", "distinct", "min", "max"}
		rows := make([][]string, 0, len(report.Profile.Columns))
		for _, col := range report.Profile.Columns {
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
	} else if report.ProfileError != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Profile unavailable: %s\n", report.ProfileError)
	}
}
