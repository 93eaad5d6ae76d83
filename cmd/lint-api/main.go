// Command lint-api checks an OpenAPI 3.x spec for project convention
// violations. Without an argument it lints the spec embedded in the server.
//
// Usage:
//
//	go run ./cmd/lint-api [flags] [openapi.yaml]
//
// Flags:
//
//	-severity    Minimum severity to report: error, warning, info (default: all)
//	-config      Path to an .apilint.yaml with per-rule severity overrides
//	-list-rules  Print the registered rules and exit
package main

import (
	"flag"
	"fmt"
	"os"

	"driftline/internal/api"
	"driftline/pkg/apilint"
)

func main() {
	severity := flag.String("severity", "", "minimum severity to report: error, warning, info (default: all)")
	configPath := flag.String("config", "", "path to an .apilint.yaml with per-rule severity overrides")
	listRules := flag.Bool("list-rules", false, "print the registered rules and exit")
	flag.Parse()

	if *listRules {
		for _, r := range apilint.Rules() {
			fmt.Printf("%-26s %-8s %s\n", r.ID, r.Severity, r.Description)
		}
		return
	}

	var (
		linter *apilint.Linter
		path   string
		err    error
	)
	if flag.NArg() > 0 {
		path = flag.Arg(0)
		linter, err = apilint.New(path)
	} else {
		path = "internal/api/openapi.yaml"
		linter, err = apilint.NewFromBytes(path, api.SpecYAML)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	var cfg *apilint.Config
	if *configPath != "" {
		cfg, err = apilint.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
	}

	violations := linter.RunWithConfig(cfg)

	if *severity != "" {
		sev := apilint.Severity(*severity)
		switch sev {
		case apilint.SeverityError, apilint.SeverityWarning, apilint.SeverityInfo:
			violations = apilint.Filter(violations, sev)
		default:
			fmt.Fprintf(os.Stderr, "error: unknown severity %q (use: error, warning, info)\n", *severity)
			os.Exit(2)
		}
	}

	for _, v := range violations {
		fmt.Println(v)
	}

	if len(violations) == 0 {
		fmt.Printf("%s: ok (0 violations)\n", path)
	} else {
		fmt.Printf("\n%d violation(s) found\n", len(violations))
	}

	if apilint.HasErrors(violations) {
		os.Exit(1)
	}
}
