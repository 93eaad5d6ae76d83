package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// outputValue is the --output flag: a format name validated at parse time,
// so a typo fails the command instead of silently rendering a table.
type outputValue string

var _ pflag.Value = (*outputValue)(nil)

func newOutputValue(def string) *outputValue {
	v := outputValue(def)
	return &v
}

func (o *outputValue) String() string { return string(*o) }

func (o *outputValue) Type() string { return "format" }

func (o *outputValue) Set(value string) error {
	if err := validateOutputFormat(value); err != nil {
		return err
	}
	*o = outputValue(value)
	return nil
}

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	if f := cmd.Root().PersistentFlags().Lookup("output"); f != nil {
		return f.Value.String()
	}
	return "table"
}

// isQuiet reports whether --quiet was set on the root command.
func isQuiet(cmd *cobra.Command) bool {
	v, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// confirmOrSkip gates a destructive action behind an interactive prompt.
// It returns false when the user declines. Without a terminal the yes flag
// is required.
func confirmOrSkip(yes bool, prompt string) (bool, error) {
	if yes {
		return true, nil
	}
	if !IsStdinTTY() {
		return false, fmt.Errorf("confirmation required but stdin is not a terminal; use --yes")
	}
	_, _ = fmt.Fprint(os.Stdout, prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer != "y" && answer != "yes" {
		_, _ = fmt.Fprintln(os.Stdout, "Cancelled.")
		return false, nil
	}
	return true, nil
}

// printItems renders a decoded listing in the requested format. In quiet
// mode only the idField of each item is printed, one per line.
func printItems(cmd *cobra.Command, items []any, idField string, columns []string) error {
	if isQuiet(cmd) {
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				_, _ = fmt.Fprintln(os.Stdout, ExtractField(obj, idField))
			}
		}
		return nil
	}
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(os.Stdout, items)
	}
	PrintTable(os.Stdout, columns, extractItemRows(items, columns))
	return nil
}

// printResource renders a single decoded resource in the requested format.
func printResource(cmd *cobra.Command, data map[string]any, idField string) error {
	if isQuiet(cmd) {
		_, _ = fmt.Fprintln(os.Stdout, ExtractField(data, idField))
		return nil
	}
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(os.Stdout, data)
	}
	PrintDetail(os.Stdout, data)
	return nil
}
