package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/codekeeper/internal/app"
	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/logger"
)

func NotifyCmd() *cobra.Command {
	notify := &cobra.Command{
		Use:   "notify",
		Short: "Deadline notification tools",
	}

	notify.AddCommand(&cobra.Command{
		Use:   "run-once",
		Short: "Email owners of goals whose deadline has passed, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			sent, err := a.DeadlineNotifier.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d notice(s)\n", sent)
			return nil
		},
	})

	return notify
}
