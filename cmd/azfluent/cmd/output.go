package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

func parseOutput(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case outputTable, outputJSON, outputYAML:
		return f, nil
	}
	return "", fmt.Errorf("invalid output format %q (want table, json or yaml)", s)
}

// listing is a command result: a table for terminals and the raw resources for
// json and yaml output.
type listing struct {
	headers []string
	rows    [][]string
	items   any
}

func (l *listing) add(cells ...string) {
	l.rows = append(l.rows, cells)
}

// write renders l to w in format.
func (l *listing) write(w io.Writer, format outputFormat) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(l.items)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(l.items); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(l.headers, "\t"))
	for _, row := range l.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// render writes l to the command's output in the --output format.
func render(cmd *cobra.Command, l *listing) error {
	format, err := parseOutput(opts.output)
	if err != nil {
		return err
	}
	return l.write(cmd.OutOrStdout(), format)
}
