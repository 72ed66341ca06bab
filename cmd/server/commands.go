package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gwi.com/chart-bot/internal/auth"
	"gwi.com/chart-bot/internal/config"
	"gwi.com/chart-bot/internal/dataset"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.GenerateJWT(config.AppConfig.JWTSecret, userID, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a CSV or JSON file and print the HTML report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			name := args[0]
			if name == "-" {
				name = "stdin.json"
			}
			ds, err := dataset.ParseFile(name, data)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			a, err := newApp(cmd.Context(), config.AppConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), config.AppConfig.LLMTimeout)
			defer cancel()
			report, err := a.services.Analysis.Analyze(ctx, ds, prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "Summarize this dataset", "question to ask about the data")
	return cmd
}

func newCheckGeminiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-gemini",
		Short: "Send a test prompt to the fallback Gemini model",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), config.AppConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), config.AppConfig.LLMTimeout)
			defer cancel()
			text, err := a.services.Charts.Ping(ctx)
			if err != nil {
				return fmt.Errorf("failed to connect to Gemini API: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

// readInput reads a file argument, with "-" meaning stdin.
func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}
