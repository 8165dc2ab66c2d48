package main

import (
	"fmt"

	"github.com/cawebapp/ca-backend/internal/config"
	"github.com/cawebapp/ca-backend/internal/gemini"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "run <pdf>",
		Short: "Extract a PDF, ask Gemini for a summary and print the parsed result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadModel()
			if err != nil {
				return err
			}
			if model != "" {
				cfg.Name = model
			}

			text, err := extractFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Extracted text length:", len([]rune(text)))

			ctx := cmd.Context()
			client, err := gemini.NewClient(ctx, *cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			raw, err := client.Generate(ctx, gemini.TaskSummarize, gemini.Build(gemini.TaskSummarize, text))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "\nGemini raw output:")
			fmt.Fprintln(out, raw)
			fmt.Fprintln(out)

			return printNormalized(out, raw)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Gemini model name (default from GENAI_MODEL)")
	return cmd
}
