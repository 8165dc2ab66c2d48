package main

import (
	"fmt"
	"os"

	"github.com/cawebapp/ca-backend/internal/pdftext"

	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	var printText bool

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Extract the text of a PDF and report its length",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := extractFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Extracted text length:", len([]rune(text)))
			if printText {
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&printText, "print", false, "print the extracted text")
	return cmd
}

func extractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("PDF not found at path %s: %w", path, err)
	}
	return pdftext.Extract(data)
}
