package main

import (
	"fmt"

	"crm-agent-backend/service/mq"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup-sessions",
	Short: "Delete sessions whose expiry is in the past",
	Long: `Runs the expired-session sweep once. With --async the sweep is requested through
RocketMQ and performed by a running server instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		async, _ := cmd.Flags().GetBool("async")
		if async {
			if a.mqClient == nil {
				return fmt.Errorf("--async requires mq to be enabled")
			}
			if err := a.mqClient.Start(); err != nil {
				return err
			}
			if err := mq.RequestSessionCleanup(cmd.Context(), a.mqClient, "cli"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleanup requested")
			return nil
		}

		n, err := a.sessions.CleanupExpiredSessions(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired session(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().Bool("async", false, "Publish a cleanup request to RocketMQ instead of sweeping locally")
}
