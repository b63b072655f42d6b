package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/logger"
	"github.com/templui/codekeeper/internal/vision"
)

func VisionCmd() *cobra.Command {
	v := &cobra.Command{
		Use:   "vision",
		Short: "Vision model tools",
	}

	var apiKey string
	check := &cobra.Command{
		Use:   "check",
		Short: "Check that a Gemini key can reach the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), "")

			key := apiKey
			if key == "" {
				key = cfg.GeminiAPIKey
			}
			if key == "" {
				return errors.New("no key: pass --key or set GEMINI_API_KEY")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.VisionTimeout)
			defer cancel()

			client, err := vision.New(ctx, vision.Config{
				APIKey:  key,
				Model:   cfg.GeminiModel,
				Timeout: cfg.VisionTimeout,
			})
			if err != nil {
				return err
			}
			if err := client.Ping(ctx); err != nil {
				return fmt.Errorf("key check failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s answered\n", cfg.GeminiModel)
			return nil
		},
	}
	check.Flags().StringVar(&apiKey, "key", "", "Gemini API key (defaults to GEMINI_API_KEY)")

	v.AddCommand(check)
	return v
}
