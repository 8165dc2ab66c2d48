package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cawebapp/ca-backend/internal/normalize"

	"github.com/spf13/cobra"
)

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [file]",
		Short: "Clean and validate a saved model reply (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 1 && args[0] != "-" {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			return printNormalized(cmd.OutOrStdout(), string(raw))
		},
	}
}

// printNormalized writes the parsed summary as indented JSON, or the cleaned
// text that failed to parse followed by the error.
func printNormalized(w io.Writer, raw string) error {
	content, stats, err := normalize.SummaryWithStats(raw)
	var parseErr *normalize.OutputParseError
	if errors.As(err, &parseErr) {
		fmt.Fprintln(w, "Cleaned output that failed to parse:")
		fmt.Fprintln(w, parseErr.Cleaned)
		return err
	}
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	if stats.Dropped() > 0 {
		fmt.Fprintf(w, "Dropped entries: mcqs=%d summary=%d gk_points=%d\n",
			stats.DroppedMCQs, stats.DroppedSummary, stats.DroppedGKPoints)
	}
	return nil
}
