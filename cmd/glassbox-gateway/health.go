package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := newAnalysisService()
		if err != nil {
			return err
		}
		health, err := service.CheckHealth(cmd.Context())
		if err != nil {
			return fmt.Errorf("health: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "status: %s\nupstream connected: %t\nstore connected: %t\n",
			health.Status, health.UpstreamConnected, health.StoreConnected)
		return nil
	},
}
